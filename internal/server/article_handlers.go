package server

import (
	"fmt"

	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/session"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Home renders the paginated newest-first article feed.
func (s *Server) Home(c *fiber.Ctx) error {
	page, err := s.articleService.ListPage(c.UserContext(), parsePage(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "home", viewContext{
		Title: "Home",
		Page:  page,
	})
}

// ArticlesByAuthor renders one author's articles, newest first. An unknown
// author id is a 404.
func (s *Server) ArticlesByAuthor(c *fiber.Ctx) error {
	authorID, err := parseID(c, "authorId")
	if err != nil {
		return err
	}
	author, page, err := s.articleService.ListByAuthor(c.UserContext(), authorID, parsePage(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "home", viewContext{
		Title:  fmt.Sprintf("Articles by %s", author.Username),
		Author: author,
		Page:   page,
	})
}

// FullArticle renders a single article. 404 if it does not exist.
func (s *Server) FullArticle(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	article, err := s.articleService.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "full_article", viewContext{
		Title:   article.Title,
		Article: article,
	})
}

// ShowNewArticle renders the blank article form.
func (s *Server) ShowNewArticle(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "article_form", viewContext{Title: "New Article"})
}

// CreateArticle persists a new article for the signed-in user. The image is
// optional; a rejected upload aborts the whole request before anything is
// stored.
func (s *Server) CreateArticle(c *fiber.Ctx) error {
	user := session.CurrentUser(c)

	form := validation.Form{
		"title": formValue(c, "title"),
		"body":  formValue(c, "body"),
	}
	result := validation.Apply(validation.ArticleRules, form)
	if !result.OK {
		return s.render(c, fiber.StatusOK, "article_form", viewContext{
			Title:  "New Article",
			Form:   form,
			Errors: result.Errors,
		})
	}

	imageName, err := s.saveUploadedImage(c, service.CategoryArticles)
	if err != nil {
		return err
	}

	article, err := s.articleService.Create(c.UserContext(), service.CreateArticleInput{
		Title:  form["title"],
		Body:   form["body"],
		Image:  imageName,
		UserID: user.ID,
	})
	if err != nil {
		s.discardUpload(imageName, service.CategoryArticles)
		return err
	}

	s.sessions.AddFlash(c, "success", "Your article has been created!")
	return c.Redirect(fmt.Sprintf("/full_article/%d", article.ID), fiber.StatusSeeOther)
}

// ShowEditArticle renders the article form prefilled with an existing
// article. A requester who is not the owner gets a 404, same as a missing id.
func (s *Server) ShowEditArticle(c *fiber.Ctx) error {
	user := session.CurrentUser(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	article, err := s.articleService.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	if article.UserID != user.ID {
		return models.NewNotFoundError("article", id)
	}
	return s.render(c, fiber.StatusOK, "article_form", viewContext{
		Title:   "Edit Article",
		Article: article,
		Form: map[string]string{
			"title": article.Title,
			"body":  article.Body,
		},
	})
}

// UpdateArticle applies an edit to an owned article.
func (s *Server) UpdateArticle(c *fiber.Ctx) error {
	user := session.CurrentUser(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	form := validation.Form{
		"title": formValue(c, "title"),
		"body":  formValue(c, "body"),
	}
	result := validation.Apply(validation.ArticleRules, form)
	if !result.OK {
		article, err := s.articleService.GetByID(c.UserContext(), id)
		if err != nil {
			return err
		}
		if article.UserID != user.ID {
			return models.NewNotFoundError("article", id)
		}
		return s.render(c, fiber.StatusOK, "article_form", viewContext{
			Title:   "Edit Article",
			Article: article,
			Form:    form,
			Errors:  result.Errors,
		})
	}

	imageName, err := s.saveUploadedImage(c, service.CategoryArticles)
	if err != nil {
		return err
	}

	article, err := s.articleService.Update(c.UserContext(), id, user.ID, service.UpdateArticleInput{
		Title: form["title"],
		Body:  form["body"],
		Image: imageName,
	})
	if err != nil {
		s.discardUpload(imageName, service.CategoryArticles)
		return err
	}

	s.sessions.AddFlash(c, "success", "Your article has been updated!")
	return c.Redirect(fmt.Sprintf("/full_article/%d", article.ID), fiber.StatusSeeOther)
}

// DeleteArticle removes an owned article. Deleting an id the user does not
// own, or one that never existed, flashes the same notice and redirects home
// rather than rendering a hard 404.
func (s *Server) DeleteArticle(c *fiber.Ctx) error {
	user := session.CurrentUser(c)
	id, err := parseID(c, "id")
	if err != nil {
		s.sessions.AddFlash(c, "warning", "Article not found.")
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	if err := s.articleService.Delete(c.UserContext(), id, user.ID); err != nil {
		if models.IsCode(err, models.ErrCodeNotFound) {
			s.sessions.AddFlash(c, "warning", "Article not found.")
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return err
	}

	s.sessions.AddFlash(c, "success", "Your article has been deleted!")
	return c.Redirect("/", fiber.StatusSeeOther)
}

// saveUploadedImage buffers and stores an optional image field, returning the
// stored filename or empty when no file was submitted.
func (s *Server) saveUploadedImage(c *fiber.Ctx, category string) (string, error) {
	content, filename, err := readFormFile(c, "image")
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", nil
	}
	return s.uploadService.Save(content, filename, category)
}
