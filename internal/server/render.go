package server

import (
	"bytes"
	"fmt"
	"html/template"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// viewContext carries everything a page template can reference. Pages use the
// subset they need; unused fields stay zero.
type viewContext struct {
	Title       string
	CurrentUser *models.User
	Flashes     []session.Flash
	Errors      map[string]string
	Form        map[string]string
	Page        *repository.ArticlePage
	Article     *models.Article
	Author      *models.User
	NextPath    string
}

var pageNames = []string{
	"home",
	"full_article",
	"article_form",
	"signup",
	"login",
	"account",
	"error",
}

// parseTemplates compiles each page against the shared layout. Every page is
// parsed up front so a broken template fails startup, not a request.
func parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"pageURL": func(base string, page int) string {
			return fmt.Sprintf("%s?page=%d", base, page)
		},
	}

	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

// render executes a page template into the response. Flash messages queued on
// the session are drained into the view here, so they show exactly once.
func (s *Server) render(c *fiber.Ctx, status int, page string, view viewContext) error {
	tmpl, ok := s.templates[page]
	if !ok {
		return models.NewInternalError(fmt.Errorf("unknown template %q", page))
	}

	view.CurrentUser = session.CurrentUser(c)
	if view.Flashes == nil {
		view.Flashes = s.sessions.PopFlashes(c)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", view); err != nil {
		return models.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// renderError maps an application error onto the shared error page.
func (s *Server) renderError(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)

	title := "Something went wrong"
	message := "An unexpected error occurred. Please try again."
	switch status {
	case fiber.StatusNotFound:
		title = "Page not found"
		message = "The page you are looking for does not exist."
	case fiber.StatusUnsupportedMediaType:
		title = "Upload rejected"
		var appErr *models.AppError
		if ok := asAppError(err, &appErr); ok {
			message = appErr.Message
		}
	}

	return s.render(c, status, "error", viewContext{
		Title:  title,
		Errors: map[string]string{"detail": message},
	})
}
