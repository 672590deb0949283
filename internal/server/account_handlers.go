package server

import (
	"quill/internal/service"
	"quill/internal/session"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ShowAccount renders the account form prefilled with the current profile.
func (s *Server) ShowAccount(c *fiber.Ctx) error {
	user := session.CurrentUser(c)
	return s.render(c, fiber.StatusOK, "account", viewContext{
		Title: "Account",
		Form: map[string]string{
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// UpdateAccount changes the signed-in user's username, email, and optionally
// their profile image. Unchanged fields never trip the uniqueness checks.
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	user := session.CurrentUser(c)

	form := validation.Form{
		"username": formValue(c, "username"),
		"email":    formValue(c, "email"),
	}
	result := validation.Apply(validation.AccountRules, form)
	if !result.OK {
		return s.render(c, fiber.StatusOK, "account", viewContext{
			Title:  "Account",
			Form:   form,
			Errors: result.Errors,
		})
	}

	imageName, err := s.saveUploadedImage(c, service.CategoryProfiles)
	if err != nil {
		return err
	}

	_, fieldErrs, err := s.userService.UpdateAccount(c.UserContext(), service.UpdateAccountInput{
		UserID:       user.ID,
		Username:     form["username"],
		Email:        form["email"],
		ProfileImage: imageName,
	})
	if err != nil {
		s.discardUpload(imageName, service.CategoryProfiles)
		return err
	}
	if len(fieldErrs) > 0 {
		s.discardUpload(imageName, service.CategoryProfiles)
		return s.render(c, fiber.StatusOK, "account", viewContext{
			Title:  "Account",
			Form:   form,
			Errors: fieldErrs,
		})
	}

	// The old image is unreferenced once the update lands. Remove skips the
	// shared placeholder.
	if imageName != "" {
		s.discardUpload(user.ProfileImage, service.CategoryProfiles)
	}

	s.sessions.AddFlash(c, "success", "Your account has been updated!")
	return c.Redirect("/account/", fiber.StatusSeeOther)
}
