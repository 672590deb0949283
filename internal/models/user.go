// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// DefaultProfileImage is the placeholder shown until a user uploads their own.
const DefaultProfileImage = "default_profile_image.jpg"

// User represents an account that can author articles.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:15;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:150;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	ProfileImage string    `gorm:"not null;default:default_profile_image.jpg" json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Articles     []Article `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"articles,omitempty"`
}
