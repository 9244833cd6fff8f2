package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/service"
)

type UserService interface {
	Authenticator
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Logout(ctx context.Context, userID, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) (*domain.User, string, error)
}

type UsersHandler struct {
	users   UserService
	timeout time.Duration
}

func NewUsersHandler(users UserService, timeout time.Duration) *UsersHandler {
	return &UsersHandler{
		users:   users,
		timeout: timeout,
	}
}

type RegisterRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequestDTO struct {
	Email string `json:"email"`
}

type ResetPasswordRequestDTO struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type RegisterResponseDTO struct {
	User *domain.User `json:"User"`
}

type AuthResponseDTO struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type MessageResponseDTO struct {
	Message string `json:"message"`
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// POST /api/users/register
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if !decode(w, r, &req) {
		return
	}

	user, err := h.users.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RegisterResponseDTO{User: user})
}

// POST /api/users/login
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decode(w, r, &req) {
		return
	}

	user, token, err := h.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AuthResponseDTO{User: user, Token: token})
}

// POST /api/users/forgotPassword
func (h *UsersHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ForgotPasswordRequestDTO
	if !decode(w, r, &req) {
		return
	}

	if err := h.users.ForgotPassword(ctx, req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponseDTO{Message: "Password reset code generated"})
}

// POST /api/users/resetPassword
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ResetPasswordRequestDTO
	if !decode(w, r, &req) {
		return
	}

	user, token, err := h.users.ResetPassword(ctx, req.Email, req.Code, req.NewPassword)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AuthResponseDTO{User: user, Token: token})
}

// POST /api/users/logout
func (h *UsersHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Please authenticate")
		return
	}

	if err := h.users.Logout(ctx, user.ID, tokenFromContext(r.Context())); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, true)
}

// GET /api/users/isauth
func (h *UsersHandler) IsAuth(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Please authenticate")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
