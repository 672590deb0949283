package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

// ArticleService handles article CRUD with owner-scoped mutations.
type ArticleService struct {
	articleRepo repository.ArticleRepository
	userRepo    repository.UserRepository
}

// NewArticleService returns an ArticleService over the given repositories.
func NewArticleService(articleRepo repository.ArticleRepository, userRepo repository.UserRepository) *ArticleService {
	return &ArticleService{articleRepo: articleRepo, userRepo: userRepo}
}

// CreateArticleInput carries a validated article form. Image is the stored
// filename, or empty to keep the default placeholder.
type CreateArticleInput struct {
	Title  string
	Body   string
	Image  string
	UserID uint
}

// UpdateArticleInput carries a validated edit form for an existing article.
type UpdateArticleInput struct {
	Title string
	Body  string
	Image string
}

// Create persists a new article owned by in.UserID. CreatedAt is assigned by
// the database and never changes afterwards.
func (s *ArticleService) Create(ctx context.Context, in CreateArticleInput) (*models.Article, error) {
	article := &models.Article{
		Title:  in.Title,
		Body:   in.Body,
		UserID: in.UserID,
	}
	if in.Image != "" {
		article.Image = in.Image
	} else {
		article.Image = models.DefaultArticleImage
	}
	if err := s.articleRepo.Create(ctx, article); err != nil {
		return nil, err
	}
	observability.ArticlesCreatedTotal.Inc()
	return article, nil
}

// GetByID fetches a single article with its author preloaded.
func (s *ArticleService) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	return s.articleRepo.GetByID(ctx, id)
}

// ListPage returns one page of the newest-first article feed.
func (s *ArticleService) ListPage(ctx context.Context, page int) (*repository.ArticlePage, error) {
	return s.articleRepo.ListPage(ctx, page, repository.DefaultPageSize)
}

// ListByAuthor returns one page of a single author's articles, newest first.
// An unknown author id is a not-found, not an empty page.
func (s *ArticleService) ListByAuthor(ctx context.Context, authorID uint, page int) (*models.User, *repository.ArticlePage, error) {
	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, nil, err
	}
	pageData, err := s.articleRepo.ListByUserPage(ctx, author.ID, page, repository.DefaultPageSize)
	if err != nil {
		return nil, nil, err
	}
	return author, pageData, nil
}

// Update edits an article owned by requesterID. A requester who is not the
// owner gets the same not-found as a missing article, so the route leaks
// nothing about which articles exist.
func (s *ArticleService) Update(ctx context.Context, id, requesterID uint, in UpdateArticleInput) (*models.Article, error) {
	article, err := s.articleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.UserID != requesterID {
		return nil, models.NewNotFoundError("article", id)
	}

	article.Title = in.Title
	article.Body = in.Body
	if in.Image != "" {
		article.Image = in.Image
	}
	if err := s.articleRepo.Update(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

// Delete removes an article if and only if requesterID owns it. The ownership
// check happens inside a single scoped delete, so a non-owner cannot tell the
// article apart from one that never existed.
func (s *ArticleService) Delete(ctx context.Context, id, requesterID uint) error {
	return s.articleRepo.DeleteOwned(ctx, id, requesterID)
}
