package server

import (
	"fmt"

	"quill/internal/observability"
	"quill/internal/service"
	"quill/internal/session"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ShowSignup renders the signup form. Signed-in users are sent home.
func (s *Server) ShowSignup(c *fiber.Ctx) error {
	if session.CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return s.render(c, fiber.StatusOK, "signup", viewContext{Title: "Sign Up"})
}

// Signup creates an account from the submitted form. Validation failures and
// duplicate username/email re-render the form with inline field errors; on
// success the visitor is sent to the login page.
func (s *Server) Signup(c *fiber.Ctx) error {
	if session.CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	form := validation.Form{
		"username":  formValue(c, "username"),
		"email":     formValue(c, "email"),
		"password":  formValue(c, "password"),
		"password2": formValue(c, "password2"),
	}
	result := validation.Apply(validation.SignupRules, form)
	if !result.OK {
		return s.render(c, fiber.StatusOK, "signup", viewContext{
			Title:  "Sign Up",
			Form:   form,
			Errors: result.Errors,
		})
	}

	user, fieldErrs, err := s.userService.Signup(c.UserContext(), service.SignupInput{
		Username: form["username"],
		Email:    form["email"],
		Password: form["password"],
	})
	if err != nil {
		return err
	}
	if len(fieldErrs) > 0 {
		return s.render(c, fiber.StatusOK, "signup", viewContext{
			Title:  "Sign Up",
			Form:   form,
			Errors: fieldErrs,
		})
	}

	observability.SignupsTotal.Inc()
	s.sessions.AddFlash(c, "success",
		fmt.Sprintf("Account created for %s! You can now log in.", user.Username))
	return c.Redirect("/login/", fiber.StatusSeeOther)
}

// ShowLogin renders the login form, carrying the optional ?next target
// through to the form submit.
func (s *Server) ShowLogin(c *fiber.Ctx) error {
	if session.CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return s.render(c, fiber.StatusOK, "login", viewContext{
		Title:    "Log In",
		NextPath: safeNextPath(c.Query("next")),
	})
}

// Login authenticates the submitted credentials and establishes a session.
// Bad credentials get one generic warning, never a hint about which field
// was wrong.
func (s *Server) Login(c *fiber.Ctx) error {
	if session.CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	form := validation.Form{
		"email":    formValue(c, "email"),
		"password": formValue(c, "password"),
	}
	next := safeNextPath(formValue(c, "next"))

	result := validation.Apply(validation.LoginRules, form)
	if !result.OK {
		return s.render(c, fiber.StatusOK, "login", viewContext{
			Title:    "Log In",
			Form:     form,
			Errors:   result.Errors,
			NextPath: next,
		})
	}

	user, err := s.userService.Authenticate(c.UserContext(), form["email"], form["password"])
	if err != nil {
		return err
	}
	if user == nil {
		observability.LoginsTotal.WithLabelValues("failure").Inc()
		return s.render(c, fiber.StatusOK, "login", viewContext{
			Title:    "Log In",
			Form:     form,
			Flashes:  []session.Flash{{Category: "warning", Message: "Login unsuccessful. Please check email and password."}},
			NextPath: next,
		})
	}

	remember := formValue(c, "remember") != ""
	if err := s.sessions.Login(c, user, remember); err != nil {
		return err
	}
	observability.LoginsTotal.WithLabelValues("success").Inc()
	// Queued after Login so the notice lands in the rotated session.
	s.sessions.AddFlash(c, "success", "You have logged in successfully!")
	return c.Redirect(next, fiber.StatusSeeOther)
}

// Logout clears the session and remember-me cookie and redirects home.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c); err != nil {
		return err
	}
	s.sessions.AddFlash(c, "success", "You have been logged out.")
	return c.Redirect("/", fiber.StatusSeeOther)
}
