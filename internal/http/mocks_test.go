package http

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/service"
)

type CheckoutServiceMock struct {
	result       *service.CheckoutResult
	order        *domain.Order
	err          error
	gotCart      domain.Cart
	gotUser      domain.Purchaser
	gotSessionID string
	gotSignature string
}

func (m *CheckoutServiceMock) InitiateCheckout(_ context.Context, cart domain.Cart, user domain.Purchaser) (*service.CheckoutResult, error) {
	m.gotCart = cart
	m.gotUser = user
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *CheckoutServiceMock) FinalizeCheckout(_ context.Context, sessionID, signature string) (*domain.Order, error) {
	m.gotSessionID = sessionID
	m.gotSignature = signature
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type OrderListerMock struct {
	orders    []*domain.Order
	err       error
	gotUserID string
}

func (m *OrderListerMock) ListOrders(_ context.Context, userID string) ([]*domain.Order, error) {
	m.gotUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

type UserServiceMock struct {
	user  *domain.User
	token string
	err   error

	// Authenticate consults these independently of err
	tokens  map[string]*domain.User
	authErr error

	gotRegister    service.RegisterInput
	gotLogoutUser  string
	gotLogoutToken string
	gotEmail       string
}

func (m *UserServiceMock) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if m.authErr != nil {
		return nil, m.authErr
	}
	if u, ok := m.tokens[token]; ok {
		return u, nil
	}
	return nil, &service.Error{Kind: service.ErrUnauthorized, Message: "Please authenticate"}
}

func (m *UserServiceMock) Register(_ context.Context, in service.RegisterInput) (*domain.User, error) {
	m.gotRegister = in
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *UserServiceMock) Login(_ context.Context, email, _ string) (*domain.User, string, error) {
	m.gotEmail = email
	if m.err != nil {
		return nil, "", m.err
	}
	return m.user, m.token, nil
}

func (m *UserServiceMock) Logout(_ context.Context, userID, token string) error {
	m.gotLogoutUser = userID
	m.gotLogoutToken = token
	return m.err
}

func (m *UserServiceMock) ForgotPassword(_ context.Context, email string) error {
	m.gotEmail = email
	return m.err
}

func (m *UserServiceMock) ResetPassword(_ context.Context, email, _, _ string) (*domain.User, string, error) {
	m.gotEmail = email
	if m.err != nil {
		return nil, "", m.err
	}
	return m.user, m.token, nil
}

func testUser() *domain.User {
	return &domain.User{
		ID:           "user-1",
		Name:         "John",
		Email:        "john@example.com",
		PasswordHash: "$2a$10$hash",
		Tokens:       []string{"token-1"},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
