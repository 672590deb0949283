package models

import (
	"time"
)

// DefaultArticleImage is the placeholder shown for articles without an image.
const DefaultArticleImage = "default_article_image.jpg"

// Article represents a published article. The owner is fixed at creation and
// CreatedAt never changes afterwards, so edits keep the original feed order.
type Article struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:50;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Image     string    `gorm:"not null;default:default_article_image.jpg" json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
