package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupArticleTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Article{}))
	return db
}

func seedAuthor(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		ProfileImage: models.DefaultProfileImage,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedArticles creates count articles with strictly increasing timestamps, so
// the last one created is the newest.
func seedArticles(t *testing.T, db *gorm.DB, owner *models.User, count int) {
	t.Helper()
	base := time.Now().Add(-time.Duration(count) * time.Hour)
	for i := 0; i < count; i++ {
		article := &models.Article{
			Title:     fmt.Sprintf("Article %d", i+1),
			Body:      "Body text",
			Image:     models.DefaultArticleImage,
			UserID:    owner.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Create(article).Error)
	}
}

func TestArticleRepository_Pagination(t *testing.T) {
	db := setupArticleTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	author := seedAuthor(t, db, "alice")
	seedArticles(t, db, author, 12)

	page1, err := repo.ListPage(ctx, 1, 5)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 5)
	assert.Equal(t, "Article 12", page1.Items[0].Title)
	assert.Equal(t, "Article 8", page1.Items[4].Title)
	assert.Equal(t, int64(12), page1.Total)
	assert.Equal(t, 3, page1.TotalPages)
	assert.True(t, page1.HasNext)
	assert.False(t, page1.HasPrev)

	page3, err := repo.ListPage(ctx, 3, 5)
	require.NoError(t, err)
	assert.Len(t, page3.Items, 2)
	assert.Equal(t, "Article 2", page3.Items[0].Title)
	assert.Equal(t, "Article 1", page3.Items[1].Title)
	assert.False(t, page3.HasNext)
	assert.True(t, page3.HasPrev)

	page4, err := repo.ListPage(ctx, 4, 5)
	require.NoError(t, err)
	assert.Empty(t, page4.Items)
	assert.False(t, page4.HasNext)
}

func TestArticleRepository_TimestampTieBreak(t *testing.T) {
	db := setupArticleTestDB(t)
	repo := NewArticleRepository(db)

	author := seedAuthor(t, db, "alice")
	now := time.Now()
	for i := 1; i <= 3; i++ {
		require.NoError(t, db.Create(&models.Article{
			Title:     fmt.Sprintf("Same Time %d", i),
			Body:      "Body text",
			Image:     models.DefaultArticleImage,
			UserID:    author.ID,
			CreatedAt: now,
		}).Error)
	}

	page, err := repo.ListPage(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	// Equal timestamps fall back to id descending.
	assert.Equal(t, "Same Time 3", page.Items[0].Title)
	assert.Equal(t, "Same Time 1", page.Items[2].Title)
}

func TestArticleRepository_ListByUserPage(t *testing.T) {
	db := setupArticleTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	alice := seedAuthor(t, db, "alice")
	bob := seedAuthor(t, db, "bob")
	seedArticles(t, db, alice, 3)
	seedArticles(t, db, bob, 2)

	page, err := repo.ListByUserPage(ctx, alice.ID, 1, 5)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, int64(3), page.Total)
	for _, item := range page.Items {
		assert.Equal(t, alice.ID, item.UserID)
		assert.Equal(t, "alice", item.User.Username)
	}
}

func TestArticleRepository_DeleteOwned(t *testing.T) {
	db := setupArticleTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	alice := seedAuthor(t, db, "alice")
	bob := seedAuthor(t, db, "bob")
	seedArticles(t, db, alice, 1)

	var article models.Article
	require.NoError(t, db.First(&article).Error)

	// A non-owner gets NotFound and the article survives.
	err := repo.DeleteOwned(ctx, article.ID, bob.ID)
	assert.True(t, models.IsCode(err, models.ErrCodeNotFound))

	var count int64
	require.NoError(t, db.Model(&models.Article{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The owner's delete goes through.
	require.NoError(t, repo.DeleteOwned(ctx, article.ID, alice.ID))
	require.NoError(t, db.Model(&models.Article{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// A second delete of the same id is NotFound.
	err = repo.DeleteOwned(ctx, article.ID, alice.ID)
	assert.True(t, models.IsCode(err, models.ErrCodeNotFound))
}

func TestArticleRepository_GetByIDPreloadsAuthor(t *testing.T) {
	db := setupArticleTestDB(t)
	repo := NewArticleRepository(db)

	alice := seedAuthor(t, db, "alice")
	seedArticles(t, db, alice, 1)

	var created models.Article
	require.NoError(t, db.First(&created).Error)

	article, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", article.User.Username)

	_, err = repo.GetByID(context.Background(), 999)
	assert.True(t, models.IsCode(err, models.ErrCodeNotFound))
}
