package server

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

func asAppError(err error, target **models.AppError) bool {
	return errors.As(err, target)
}

// parseID reads a positive integer route parameter, or a not-found error for
// anything that does not look like an id.
func parseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError("page", 0)
	}
	return uint(id), nil
}

// parsePage reads the ?page query parameter, defaulting to 1. Garbage and
// non-positive values collapse to page 1 rather than erroring.
func parsePage(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// formValue reads a trimmed form field.
func formValue(c *fiber.Ctx, name string) string {
	return strings.TrimSpace(c.FormValue(name))
}

// readFormFile buffers an optional multipart upload. A form without the field
// (or with an empty file input) yields nil content and no error.
func readFormFile(c *fiber.Ctx, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil || header == nil || header.Filename == "" {
		return nil, "", nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return content, header.Filename, nil
}

// discardUpload removes a freshly stored upload that no record ended up
// referencing. Best effort; a leftover file is not worth failing the request.
func (s *Server) discardUpload(filename, category string) {
	if filename == "" {
		return
	}
	_ = s.uploadService.Remove(filename, category)
}

// safeNextPath validates a post-login redirect target. Only local absolute
// paths pass; anything scheme-qualified or protocol-relative falls back to
// the home page so the login form cannot be used as an open redirect.
func safeNextPath(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	if strings.Contains(raw, "\\") {
		return "/"
	}
	return raw
}
