package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/metrics"
	"github.com/fjod/go_cart/storefront-service/internal/payment"
	r "github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/fjod/go_cart/storefront-service/internal/signing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	svc       *CheckoutService
	sessions  *MockSessionRepository
	orders    *MockOrderRepository
	gateway   *MockGateway
	publisher *MockPublisher
	cache     *MockOrderCache
	signer    *signing.Signer
	metrics   *metrics.Metrics
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		sessions:  NewMockSessionRepository(),
		orders:    NewMockOrderRepository(),
		gateway:   &MockGateway{Session: &payment.Session{ID: "cs_test_123", URL: "https://pay.example/cs_test_123"}},
		publisher: &MockPublisher{},
		cache:     NewMockOrderCache(),
		signer:    signing.NewSigner("test-secret"),
		metrics:   metrics.New(),
	}
	f.svc = NewCheckoutService(CheckoutDeps{
		Sessions:  f.sessions,
		Orders:    f.orders,
		Gateway:   f.gateway,
		Signer:    f.signer,
		Publisher: f.publisher,
		Cache:     f.cache,
		Metrics:   f.metrics,
		Logger:    discardLogger(),
	}, CheckoutConfig{
		Currency:      "inr",
		PublicBaseURL: "http://localhost:8080/",
		CancelURL:     "http://localhost:3000/cart",
	})
	return f
}

func scenarioCart() domain.Cart {
	return domain.Cart{
		{Name: "A", Price: 500, Amount: 2},
		{Name: "B", Price: 300, Amount: 1},
	}
}

var buyer = domain.Purchaser{Email: "buyer@example.com", UserID: "user-1"}

func TestInitiateCheckout_Success(t *testing.T) {
	f := newCheckoutFixture()

	result, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", result.PaymentSessionID)
	assert.True(t, result.Total.Equal(decimal.RequireFromString("13.00")))
	assert.Equal(t, "13.00", result.Total.StringFixed(2))

	stored, err := f.sessions.FindSession(context.Background(), result.CheckoutSessionID)
	require.NoError(t, err)
	assert.Equal(t, scenarioCart(), stored.Cart)
	assert.Equal(t, buyer, stored.User)
	assert.True(t, stored.Total.Equal(result.Total))

	require.Len(t, f.gateway.Requests, 1)
	req := f.gateway.Requests[0]
	assert.Equal(t, "inr", req.Currency)
	assert.Equal(t, "http://localhost:3000/cart", req.CancelURL)
	assert.Equal(t, []payment.LineItem{
		{Name: "A", UnitAmount: 500, Quantity: 2},
		{Name: "B", UnitAmount: 300, Quantity: 1},
	}, req.LineItems)

	success, err := url.Parse(req.SuccessURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", success.Host)
	assert.Equal(t, "/api/users/checkout/success", success.Path)
	assert.Equal(t, result.CheckoutSessionID, success.Query().Get("sessionId"))
	assert.NoError(t, f.signer.Verify(result.CheckoutSessionID, success.Query().Get("sig")))

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SessionsCreated))
}

func TestInitiateCheckout_SessionIDsAreUnique(t *testing.T) {
	f := newCheckoutFixture()

	first, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	require.NoError(t, err)
	second, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	require.NoError(t, err)

	assert.NotEqual(t, first.CheckoutSessionID, second.CheckoutSessionID)
	assert.Equal(t, 2, f.sessions.Len())
}

func TestInitiateCheckout_InvalidCart(t *testing.T) {
	tests := []struct {
		name string
		cart domain.Cart
	}{
		{name: "empty cart", cart: domain.Cart{}},
		{name: "nil cart", cart: nil},
		{name: "zero price", cart: domain.Cart{{Name: "A", Price: 0, Amount: 1}}},
		{name: "negative amount", cart: domain.Cart{{Name: "A", Price: 100, Amount: -1}}},
		{name: "missing name", cart: domain.Cart{{Name: " ", Price: 100, Amount: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()

			result, err := f.svc.InitiateCheckout(context.Background(), tt.cart, buyer)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 0, f.sessions.Len())
			assert.Empty(t, f.gateway.Requests)
		})
	}
}

func TestInitiateCheckout_GatewayFailureLeavesSession(t *testing.T) {
	f := newCheckoutFixture()
	f.gateway.Err = errors.New("processor down")

	result, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Equal(t, 1, f.sessions.Len())
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.SessionsCreated))
}

func TestInitiateCheckout_BreakerOpen(t *testing.T) {
	f := newCheckoutFixture()
	f.gateway.Err = payment.ErrGatewayUnavailable

	_, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
}

func TestInitiateCheckout_StoreFailure(t *testing.T) {
	f := newCheckoutFixture()
	f.sessions.InsertErr = errors.New("mongo down")

	_, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, f.gateway.Requests)
}

func initiate(t *testing.T, f *checkoutFixture) (string, string) {
	t.Helper()
	result, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	require.NoError(t, err)
	return result.CheckoutSessionID, f.signer.Sign(result.CheckoutSessionID)
}

func TestFinalizeCheckout_Success(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)
	f.cache.entries[buyer.UserID] = nil

	order, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	require.NoError(t, err)

	assert.Equal(t, sessionID, order.SessionID)
	assert.Equal(t, buyer, order.User)
	assert.Equal(t, []domain.OrderProduct{
		{Quantity: 2, Product: domain.CartItem{Name: "A", Price: 500, Amount: 2}},
		{Quantity: 1, Product: domain.CartItem{Name: "B", Price: 300, Amount: 1}},
	}, order.Products)
	assert.Equal(t, "13.00", order.Total.StringFixed(2))

	assert.False(t, f.sessions.Has(sessionID))
	assert.Equal(t, 1, f.orders.Len())
	assert.False(t, f.cache.Has(buyer.UserID))
	require.Equal(t, 1, f.publisher.Count())
	assert.Equal(t, order.ID, f.publisher.Published[0].ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OrdersFinalized))

	orders, err := f.orders.ListOrdersByUserID(context.Background(), buyer.UserID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.Products, orders[0].Products)
}

func TestFinalizeCheckout_SecondCallIsNotFound(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)

	_, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	require.NoError(t, err)

	_, err = f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, f.orders.Len())
}

func TestFinalizeCheckout_MissingSessionID(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.FinalizeCheckout(context.Background(), "", "whatever")
	require.ErrorIs(t, err, ErrValidation)

	var svcErr *Error
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "Missing session ID", svcErr.Message)
}

func TestInitiateCheckout_LogsSessionExpiry(t *testing.T) {
	f := newCheckoutFixture()
	var buf bytes.Buffer
	f.svc.logger = slog.New(slog.NewJSONHandler(&buf, nil))
	now := time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.InitiateCheckout(context.Background(), scenarioCart(), buyer)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"expires_at":"2026-02-12T11:00:00Z"`)
}

func TestInitiateCheckout_TotalBeyondOrderStoreRejected(t *testing.T) {
	f := newCheckoutFixture()

	carts := []domain.Cart{
		// price*amount wraps int64
		{{Name: "A", Price: math.MaxInt64 / 2, Amount: 3}},
		{{Name: "A", Price: domain.MaxTotalMinor, Amount: 1}, {Name: "B", Price: 1, Amount: 1}},
	}
	for _, cart := range carts {
		result, err := f.svc.InitiateCheckout(context.Background(), cart, buyer)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorIs(t, err, domain.ErrInvalidCartItem)
	}

	assert.Equal(t, 0, f.sessions.Len())
	assert.Empty(t, f.gateway.Requests)
}

func TestFinalizeCheckout_InvalidSignature(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, _ := initiate(t, f)

	for _, sig := range []string{"", "deadbeef", f.signer.Sign("other-session")} {
		_, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorIs(t, err, signing.ErrInvalidSignature)
	}

	assert.True(t, f.sessions.Has(sessionID))
	assert.Equal(t, 0, f.orders.Len())
}

func TestFinalizeCheckout_UnknownSession(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.FinalizeCheckout(context.Background(), "never-issued", f.signer.Sign("never-issued"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.orders.Len())
}

func TestFinalizeCheckout_ConcurrentExactlyOneSucceeds(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)

	const callers = 16
	var successes, notFound atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrNotFound):
				notFound.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(callers-1), notFound.Load())
	assert.Equal(t, 1, f.orders.Len())
	assert.False(t, f.sessions.Has(sessionID))
	assert.Equal(t, 1, f.publisher.Count())
}

func TestFinalizeCheckout_RecoversWhenOrderAlreadyStored(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)

	// an earlier attempt stored the order but died before removing the session
	session, err := f.sessions.FindSession(context.Background(), sessionID)
	require.NoError(t, err)
	existing := domain.NewOrderFromSession(session, session.CreatedAt)
	require.NoError(t, f.orders.CreateOrder(context.Background(), existing))

	order, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, order.ID)
	assert.Equal(t, 1, f.orders.Len())
	assert.False(t, f.sessions.Has(sessionID))
	require.Equal(t, 1, f.publisher.Count())
	assert.Equal(t, existing.ID, f.publisher.Published[0].ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.FinalizeConflict))
}

func TestFinalizeCheckout_SessionRemovedAfterLookupIsConflict(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)
	// the record was read live, then swept before the delete reached it
	f.sessions.DeleteErr = r.ErrSessionNotFound

	_, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.FinalizeConflict))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.OrdersFinalized))
	assert.Equal(t, 0, f.publisher.Count())
}

func TestFinalizeCheckout_OrderStoreFailureKeepsSession(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)
	f.orders.CreateErr = errors.New("disk full")

	_, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, f.sessions.Has(sessionID))
	assert.Equal(t, 0, f.publisher.Count())
}

func TestFinalizeCheckout_LookupFailure(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)
	f.sessions.FindErr = errors.New("connection reset")

	_, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFinalizeCheckout_PublishFailureDoesNotFail(t *testing.T) {
	f := newCheckoutFixture()
	sessionID, sig := initiate(t, f)
	f.publisher.Err = errors.New("broker unreachable")

	order, err := f.svc.FinalizeCheckout(context.Background(), sessionID, sig)
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, 1, f.orders.Len())
}

func TestNewCheckoutService_DefaultsPublisher(t *testing.T) {
	svc := NewCheckoutService(CheckoutDeps{}, CheckoutConfig{})
	assert.NotNil(t, svc.publisher)
	assert.NotNil(t, svc.logger)
}
