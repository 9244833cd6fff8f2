package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	r "github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	ResetCodeTTL = 15 * time.Minute
	// MaxResetAttempts is how many guesses one reset code allows.
	MaxResetAttempts = 5
)

type RegisterInput struct {
	Name     string
	Email    string
	Mobile   string
	Password string
}

type UserService struct {
	repo     r.UserRepository
	logger   *slog.Logger
	hashCost int
	now      func() time.Time
}

func NewUserService(repo r.UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:     repo,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, newError(ErrValidation, "Name is required", nil)
	case email == "":
		return nil, newError(ErrValidation, "Email is required", nil)
	case in.Password == "":
		return nil, newError(ErrValidation, "Password is required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Mobile:       strings.TrimSpace(in.Mobile),
		PasswordHash: string(hash),
		Tokens:       []string{},
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, r.ErrDuplicateEmail) {
			return nil, newError(ErrEmailExists, "Email already exists", err)
		}
		return nil, newError(ErrPersistence, "failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials and issues a new bearer token.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, r.ErrUserNotFound) {
			return nil, "", newError(ErrInvalidCredentials, "Invalid Email", err)
		}
		return nil, "", newError(ErrPersistence, "failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", newError(ErrInvalidCredentials, "Invalid Password", err)
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, newError(ErrUnauthorized, "Please authenticate", nil)
	}

	user, err := s.repo.GetUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, r.ErrUserNotFound) {
			return nil, newError(ErrUnauthorized, "Please authenticate", err)
		}
		return nil, newError(ErrPersistence, "failed to load user", err)
	}
	return user, nil
}

func (s *UserService) Logout(ctx context.Context, userID, token string) error {
	if err := s.repo.RemoveToken(ctx, userID, token); err != nil {
		if errors.Is(err, r.ErrUserNotFound) {
			return newError(ErrUnauthorized, "Please authenticate", err)
		}
		return newError(ErrPersistence, "failed to remove token", err)
	}
	return nil
}

// ForgotPassword stores a six digit reset code for the user. Mail delivery is not
// wired up, so the code only reaches the debug log.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return newError(ErrValidation, "Email is required", nil)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, r.ErrUserNotFound) {
			return newError(ErrNotFound, "User not found", err)
		}
		return newError(ErrPersistence, "failed to load user", err)
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	if err := s.repo.SetResetCode(ctx, user.ID, code, s.now().Add(ResetCodeTTL)); err != nil {
		return newError(ErrPersistence, "failed to store reset code", err)
	}

	s.logger.Info("password reset requested", "user_id", user.ID)
	s.logger.Debug("password reset code", "email", user.Email, "code", code)
	return nil
}

// ResetPassword swaps the password when code matches an unexpired reset code,
// then logs the user in.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) (*domain.User, string, error) {
	email = domain.NormalizeEmail(email)
	switch {
	case email == "":
		return nil, "", newError(ErrValidation, "Email is required", nil)
	case code == "":
		return nil, "", newError(ErrValidation, "Password reset code is required", nil)
	case newPassword == "":
		return nil, "", newError(ErrValidation, "New password is required", nil)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, r.ErrUserNotFound) {
			return nil, "", newError(ErrNotFound, "User not found", err)
		}
		return nil, "", newError(ErrPersistence, "failed to load user", err)
	}

	if user.ResetCode == "" || s.now().After(user.ResetCodeExpiresAt) {
		return nil, "", newError(ErrInvalidResetCode, "Invalid or expired reset code", nil)
	}
	// the attempt is spent before comparing so parallel guesses share one budget
	if err := s.repo.ConsumeResetAttempt(ctx, user.ID, MaxResetAttempts); err != nil {
		if errors.Is(err, r.ErrResetLocked) {
			s.logger.Warn("password reset locked", "user_id", user.ID)
			return nil, "", newError(ErrInvalidResetCode, "Too many attempts, request a new reset code", err)
		}
		return nil, "", newError(ErrPersistence, "failed to record reset attempt", err)
	}
	if subtle.ConstantTimeCompare([]byte(user.ResetCode), []byte(code)) != 1 {
		return nil, "", newError(ErrInvalidResetCode, "Invalid or expired reset code", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return nil, "", newError(ErrPersistence, "failed to update password", err)
	}
	user.PasswordHash = string(hash)
	user.ResetCode = ""
	user.ResetCodeExpiresAt = time.Time{}
	user.ResetAttempts = 0

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) issueToken(ctx context.Context, user *domain.User) (string, error) {
	token := uuid.NewString()
	if err := s.repo.AddToken(ctx, user.ID, token); err != nil {
		return "", newError(ErrPersistence, "failed to store token", err)
	}
	return token, nil
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
