package repository

import (
	"context"
	"errors"

	"quill/internal/models"

	"gorm.io/gorm"
)

// DefaultPageSize is the number of articles per listing page.
const DefaultPageSize = 5

// ArticlePage is one page of an article listing plus navigation metadata.
type ArticlePage struct {
	Items      []models.Article
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// PrevPage is the page number before this one. Meaningful only when HasPrev.
func (p *ArticlePage) PrevPage() int {
	return p.Page - 1
}

// NextPage is the page number after this one. Meaningful only when HasNext.
func (p *ArticlePage) NextPage() int {
	return p.Page + 1
}

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id uint) (*models.Article, error)
	ListPage(ctx context.Context, page, pageSize int) (*ArticlePage, error)
	ListByUserPage(ctx context.Context, userID uint, page, pageSize int) (*ArticlePage, error)
	Update(ctx context.Context, article *models.Article) error
	DeleteOwned(ctx context.Context, id, ownerID uint) error
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository returns a new ArticleRepository implementation.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	if err := r.db.WithContext(ctx).Create(article).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *articleRepository) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := r.db.WithContext(ctx).Preload("User").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Article", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &article, nil
}

func (r *articleRepository) ListPage(ctx context.Context, page, pageSize int) (*ArticlePage, error) {
	return r.listPage(ctx, r.db.WithContext(ctx).Model(&models.Article{}), page, pageSize)
}

func (r *articleRepository) ListByUserPage(ctx context.Context, userID uint, page, pageSize int) (*ArticlePage, error) {
	query := r.db.WithContext(ctx).Model(&models.Article{}).Where("user_id = ?", userID)
	return r.listPage(ctx, query, page, pageSize)
}

// listPage orders newest-first with id as a stable tie-break.
func (r *articleRepository) listPage(ctx context.Context, query *gorm.DB, page, pageSize int) (*ArticlePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	// Fresh sessions: Count and Find must not share one executed statement.
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var items []models.Article
	if err := query.Session(&gorm.Session{}).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &ArticlePage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

func (r *articleRepository) Update(ctx context.Context, article *models.Article) error {
	if err := r.db.WithContext(ctx).Save(article).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteOwned deletes only when both id and owner match, so a non-owner
// observes the same NotFound as a missing article.
func (r *articleRepository) DeleteOwned(ctx context.Context, id, ownerID uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Article{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Article", id)
	}
	return nil
}
