// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the login password for every seeded account.
const DemoPassword = "password123"

// Seeder populates the database with fake users and articles.
type Seeder struct {
	db  *gorm.DB
	rnd *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:  db,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all seeded data. Articles go first so the user delete
// never trips the foreign key.
func (s *Seeder) ClearAll() error {
	if err := s.db.Exec("DELETE FROM articles").Error; err != nil {
		return fmt.Errorf("clearing articles: %w", err)
	}
	if err := s.db.Exec("DELETE FROM users").Error; err != nil {
		return fmt.Errorf("clearing users: %w", err)
	}
	log.Println("Cleared existing data")
	return nil
}

// SeedUsers creates count users with distinct usernames and a shared demo
// password.
func (s *Seeder) SeedUsers(count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i)
		if len(username) > 15 {
			username = username[:15]
		}
		users = append(users, models.User{
			Username:     username,
			Email:        fmt.Sprintf("%d_%s", i, gofakeit.Email()),
			PasswordHash: string(hash),
			ProfileImage: models.DefaultProfileImage,
		})
	}
	if err := s.db.CreateInBatches(&users, 50).Error; err != nil {
		return nil, fmt.Errorf("seeding users: %w", err)
	}
	log.Printf("Created %d users (password %q)", len(users), DemoPassword)
	return users, nil
}

// SeedArticles creates count articles spread across the given users with a
// realistic created_at spread over the past 90 days.
func (s *Seeder) SeedArticles(users []models.User, count int) error {
	if len(users) == 0 {
		return fmt.Errorf("no users to own articles")
	}

	articles := make([]models.Article, 0, count)
	for i := 0; i < count; i++ {
		owner := users[s.rnd.Intn(len(users))]
		title := gofakeit.Sentence(4)
		if len(title) > 50 {
			title = title[:50]
		}
		daysBack := s.rnd.Intn(90)
		minsBack := s.rnd.Intn(24 * 60)
		articles = append(articles, models.Article{
			Title:     title,
			Body:      gofakeit.Paragraph(2, 4, 8, "\n\n"),
			Image:     models.DefaultArticleImage,
			UserID:    owner.ID,
			CreatedAt: time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(minsBack)*time.Minute),
		})
	}
	if err := s.db.CreateInBatches(&articles, 50).Error; err != nil {
		return fmt.Errorf("seeding articles: %w", err)
	}
	log.Printf("Created %d articles", len(articles))
	return nil
}
