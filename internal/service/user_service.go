// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService handles account creation, authentication, and profile updates.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService returns a UserService backed by the given repository.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// SignupInput carries a validated signup form.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// UpdateAccountInput carries a validated account update form. Empty
// ProfileImage leaves the current image untouched.
type UpdateAccountInput struct {
	UserID       uint
	Username     string
	Email        string
	ProfileImage string
}

// Signup creates an account with a bcrypt-hashed password. Duplicate username
// or email come back as field errors so the form can render them inline.
// The check-then-insert window is a known limitation of this single-process
// design; the repository's unique-constraint mapping is the backstop.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, map[string]string, error) {
	fieldErrs := make(map[string]string)

	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		fieldErrs["username"] = "This username is already taken."
	}

	existing, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		fieldErrs["email"] = "This email is already registered."
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		ProfileImage: models.DefaultProfileImage,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	return user, nil, nil
}

// Authenticate verifies credentials. It returns (nil, nil) for a wrong email
// or password so the handler can flash a generic warning without revealing
// which part failed.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

// GetByID resolves a user id to the stored record.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateAccount changes username, email, and optionally the profile image.
// Uniqueness checks skip the caller's own current values, so an unchanged
// field never collides with itself.
func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, map[string]string, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, nil, err
	}

	fieldErrs := make(map[string]string)

	if in.Username != user.Username {
		existing, err := s.userRepo.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			fieldErrs["username"] = "This username is already taken."
		}
	}

	if in.Email != user.Email {
		existing, err := s.userRepo.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			fieldErrs["email"] = "This email is already registered."
		}
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs, nil
	}

	user.Username = in.Username
	user.Email = in.Email
	if in.ProfileImage != "" {
		user.ProfileImage = in.ProfileImage
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, err
	}
	return user, nil, nil
}
