package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumate-app/resumate/internal/domain"
)

func TestSignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)

	assert.True(t, VerifySignature("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifySignature("secret", "order_1", "pay_1", ""))
}

func TestRazorpay_CreateOrder(t *testing.T) {
	var got OrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":2900,"amount_due":2900,"currency":"USD","receipt":"receipt-1","status":"created","notes":{"userId":"u1"},"created_at":1700000000}`))
	}))
	defer server.Close()

	client := NewRazorpay(server.URL+"/", "rzp_key", "rzp_secret")
	order, err := client.CreateOrder(context.Background(), OrderRequest{
		Amount:   2900,
		Currency: "USD",
		Receipt:  "receipt-1",
		Notes:    map[string]string{"userId": "u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(2900), order.AmountDue)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, int64(2900), got.Amount)
	assert.Equal(t, "u1", got.Notes["userId"])
}

func TestRazorpay_CreateOrderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
	}))
	defer server.Close()

	_, err := NewRazorpay(server.URL, "k", "s").CreateOrder(context.Background(), OrderRequest{Amount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication failed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRazorpay(server.URL, "k", "s").CreateOrder(ctx, OrderRequest{Amount: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRazorpay_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultGatewayURL, NewRazorpay("", "k", "s").baseURL)
}

type fakeGateway struct {
	req OrderRequest
	err error
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &Order{ID: "order_1", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

type fakeOrders struct {
	orders []*domain.PaymentOrder
	sub    *domain.Subscription
}

func (f *fakeOrders) CreateOrder(ctx context.Context, o *domain.PaymentOrder) error {
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeOrders) Activate(ctx context.Context, orderID, paymentID string) (*domain.PaymentOrder, *domain.Subscription, error) {
	for _, o := range f.orders {
		if o.OrderID == orderID && o.Status == domain.PaymentPending {
			o.Status = domain.PaymentSuccessful
			o.PaymentID = paymentID
			expiry := o.Plan.Extend(time.Now())
			f.sub = &domain.Subscription{
				UserID:           o.UserID,
				Plan:             o.Plan,
				GatewayOrderID:   orderID,
				GatewayPaymentID: paymentID,
				PaymentStatus:    domain.PaymentSuccessful,
				Expiry:           &expiry,
			}
			return o, f.sub, nil
		}
	}
	return nil, nil, domain.ErrNotFound
}

func (f *fakeOrders) GetByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	if f.sub == nil || f.sub.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return f.sub, nil
}

type fakeCredits struct{ credit int }

func (f *fakeCredits) GetCredit(ctx context.Context, userID string) (int, error) {
	return f.credit, nil
}

func (f *fakeCredits) DecrementCredit(ctx context.Context, userID string) (int, error) {
	if f.credit <= 0 {
		return 0, domain.ErrNoCredits
	}
	f.credit--
	return f.credit, nil
}

type fakeNotifier struct{ notified []string }

func (f *fakeNotifier) PaymentSucceeded(ctx context.Context, userID string, sub *domain.Subscription) error {
	f.notified = append(f.notified, userID+":"+string(sub.Plan))
	return nil
}

type recordedEvent struct {
	eventType string
	data      any
}

type fakePublisher struct{ events []recordedEvent }

func (f *fakePublisher) Publish(ctx context.Context, eventType string, data any) error {
	f.events = append(f.events, recordedEvent{eventType, data})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fixture struct {
	svc       *Service
	gateway   *fakeGateway
	orders    *fakeOrders
	credits   *fakeCredits
	notifier  *fakeNotifier
	publisher *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		gateway:   &fakeGateway{},
		orders:    &fakeOrders{},
		credits:   &fakeCredits{credit: 2},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	f.svc = NewService(f.gateway, f.orders, f.credits, f.notifier, f.publisher, Config{
		KeyID:         "rzp_key",
		KeySecret:     "rzp_secret",
		MonthlyPrice:  29,
		LifetimePrice: 140,
	}, nil)
	f.svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return f
}

var testUser = &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}

func TestCreateOrder(t *testing.T) {
	f := newFixture()

	checkout, err := f.svc.CreateOrder(context.Background(), testUser, domain.PlanMonthly)
	require.NoError(t, err)

	assert.Equal(t, "order_1", checkout.ID)
	assert.Equal(t, domain.PlanMonthly, checkout.SubscriptionType)
	assert.Equal(t, "rzp_key", checkout.KeyID)

	assert.Equal(t, int64(2900), f.gateway.req.Amount)
	assert.Equal(t, "USD", f.gateway.req.Currency)
	assert.Equal(t, "receipt-1700000000123", f.gateway.req.Receipt)
	assert.Equal(t, map[string]string{
		"subscriptionType": "MONTHLY",
		"planDescription":  "1 Month subscription for resumate at $29",
		"userId":           "u1",
		"userName":         "Ada",
		"userEmail":        "ada@example.com",
	}, f.gateway.req.Notes)

	require.Len(t, f.orders.orders, 1)
	assert.Equal(t, domain.PaymentPending, f.orders.orders[0].Status)
	assert.Equal(t, int64(2900), f.orders.orders[0].Amount)
	assert.Nil(t, f.orders.sub, "subscription untouched until payment is verified")

	body, err := json.Marshal(checkout)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"order_1","entity":"","amount":2900,"amount_paid":0,"amount_due":0,"currency":"USD","receipt":"receipt-1700000000123","status":"created","attempts":0,"notes":null,"created_at":0,"subscriptionType":"MONTHLY","keyId":"rzp_key"}`, string(body))
}

func TestCreateOrder_Lifetime(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateOrder(context.Background(), testUser, domain.PlanLifetime)
	require.NoError(t, err)
	assert.Equal(t, int64(14000), f.gateway.req.Amount)
	assert.Equal(t, "Lifetime subscription for resumate at $140", f.gateway.req.Notes["planDescription"])
}

func TestCreateOrder_Errors(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateOrder(context.Background(), testUser, "WEEKLY")
	assert.ErrorIs(t, err, ErrUnknownPlan)

	f.gateway.err = errors.New("gateway down")
	_, err = f.svc.CreateOrder(context.Background(), testUser, domain.PlanMonthly)
	assert.Error(t, err)
	assert.Empty(t, f.orders.orders)
}

func TestVerify(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateOrder(context.Background(), testUser, domain.PlanLifetime)
	require.NoError(t, err)

	sub, err := f.svc.Verify(context.Background(), VerifyRequest{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: Sign("rzp_secret", "order_1", "pay_1"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentSuccessful, sub.PaymentStatus)
	assert.Equal(t, domain.PlanLifetime, sub.Plan)
	assert.Equal(t, []string{"u1:LIFETIME"}, f.notifier.notified)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "payment.verified", f.publisher.events[0].eventType)

	status, err := f.svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, status.IsSubscribed)
	assert.Equal(t, 2, status.Credits)
}

func TestVerify_BadSignature(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateOrder(context.Background(), testUser, domain.PlanMonthly)
	require.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "deadbeef"})
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Nil(t, f.orders.sub)
	assert.Empty(t, f.notifier.notified)
}

func TestVerify_UnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Verify(context.Background(), VerifyRequest{
		OrderID:   "order_x",
		PaymentID: "pay_1",
		Signature: Sign("rzp_secret", "order_x", "pay_1"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.publisher.events)
}

func TestStatus_NoSubscription(t *testing.T) {
	f := newFixture()

	status, err := f.svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, status.IsSubscribed)
	assert.Nil(t, status.Subscription)
	assert.Equal(t, 2, status.Credits)
}

func TestCharge(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.Charge(context.Background(), "u1"))
	require.NoError(t, f.svc.Charge(context.Background(), "u1"))
	assert.ErrorIs(t, f.svc.Charge(context.Background(), "u1"), domain.ErrNoCredits)

	future := time.UnixMilli(1700000000123).Add(time.Hour)
	f.orders.sub = &domain.Subscription{UserID: "u1", PaymentStatus: domain.PaymentSuccessful, Expiry: &future}
	assert.NoError(t, f.svc.Charge(context.Background(), "u1"), "subscribers are not charged")
	assert.Equal(t, 0, f.credits.credit)
}

func TestUseCredit(t *testing.T) {
	f := newFixture()

	remaining, err := f.svc.UseCredit(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}
