// Package billing sells subscription plans through the Razorpay gateway and
// tracks AI credits for users without a subscription.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/events"
)

var (
	// ErrUnknownPlan is returned for a plan other than MONTHLY or LIFETIME
	ErrUnknownPlan = errors.New(`invalid subscription type. Use "MONTHLY" or "LIFETIME"`)
	// ErrVerificationFailed is returned when a checkout signature does not match
	ErrVerificationFailed = errors.New("payment verification failed")
)

// Config holds gateway credentials and plan prices in major units
type Config struct {
	KeyID         string
	KeySecret     string
	Currency      string
	MonthlyPrice  float64
	LifetimePrice float64
}

// OrderStore records checkout attempts and activates subscriptions
type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.PaymentOrder) error
	Activate(ctx context.Context, orderID, paymentID string) (*domain.PaymentOrder, *domain.Subscription, error)
	GetByUser(ctx context.Context, userID string) (*domain.Subscription, error)
}

// CreditStore reads and consumes AI credits
type CreditStore interface {
	GetCredit(ctx context.Context, userID string) (int, error)
	DecrementCredit(ctx context.Context, userID string) (int, error)
}

// Notifier tells the user about a successful payment
type Notifier interface {
	PaymentSucceeded(ctx context.Context, userID string, sub *domain.Subscription) error
}

// Checkout is what the client needs to open the hosted checkout
type Checkout struct {
	Order
	SubscriptionType domain.Plan `json:"subscriptionType"`
	KeyID            string      `json:"keyId"`
}

// VerifyRequest is the checkout callback payload
type VerifyRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"razorpayPaymentId" validate:"required"`
	Signature string `json:"razorpaySignature" validate:"required"`
}

// Status summarises a user's plan and credits
type Status struct {
	IsSubscribed bool                 `json:"isSubscribed"`
	Credits      int                  `json:"credits"`
	Subscription *domain.Subscription `json:"subscription,omitempty"`
}

// Service implements plan purchase and credit accounting
type Service struct {
	gateway  Gateway
	orders   OrderStore
	credits  CreditStore
	notifier Notifier
	events   events.Publisher
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a billing service. A nil notifier or publisher
// disables that side effect.
func NewService(gateway Gateway, orders OrderStore, credits CreditStore, notifier Notifier, publisher events.Publisher, cfg Config, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Service{
		gateway:  gateway,
		orders:   orders,
		credits:  credits,
		notifier: notifier,
		events:   publisher,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Price returns the plan price in major units
func (s *Service) Price(plan domain.Plan) (float64, error) {
	switch plan {
	case domain.PlanMonthly:
		return s.config.MonthlyPrice, nil
	case domain.PlanLifetime:
		return s.config.LifetimePrice, nil
	default:
		return 0, ErrUnknownPlan
	}
}

func (s *Service) describe(plan domain.Plan, price float64) string {
	if plan == domain.PlanMonthly {
		return fmt.Sprintf("1 Month subscription for resumate at $%s", formatPrice(price))
	}
	return fmt.Sprintf("Lifetime subscription for resumate at $%s", formatPrice(price))
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// CreateOrder opens a gateway order for plan and records it as pending. The
// user's current subscription is left alone until the payment is verified.
func (s *Service) CreateOrder(ctx context.Context, user *domain.User, plan domain.Plan) (*Checkout, error) {
	price, err := s.Price(plan)
	if err != nil {
		return nil, err
	}
	amount := int64(math.Round(price * 100))

	order, err := s.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   amount,
		Currency: s.config.Currency,
		Receipt:  fmt.Sprintf("receipt-%d", s.now().UnixMilli()),
		Notes: map[string]string{
			"subscriptionType": string(plan),
			"planDescription":  s.describe(plan, price),
			"userId":           user.ID,
			"userName":         user.Name,
			"userEmail":        user.Email,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	err = s.orders.CreateOrder(ctx, &domain.PaymentOrder{
		OrderID:  order.ID,
		UserID:   user.ID,
		Plan:     plan,
		Amount:   amount,
		Currency: s.config.Currency,
		Status:   domain.PaymentPending,
	})
	if err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}

	s.logger.Info("payment order created",
		zap.String("user_id", user.ID),
		zap.String("order_id", order.ID),
		zap.String("plan", string(plan)),
		zap.Int64("amount", amount))

	return &Checkout{Order: *order, SubscriptionType: plan, KeyID: s.config.KeyID}, nil
}

// Verify checks the checkout signature and activates the subscription the
// order paid for
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*domain.Subscription, error) {
	if !VerifySignature(s.config.KeySecret, req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("payment signature mismatch", zap.String("order_id", req.OrderID))
		return nil, ErrVerificationFailed
	}

	order, sub, err := s.orders.Activate(ctx, req.OrderID, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("activate subscription: %w", err)
	}

	s.logger.Info("payment verified",
		zap.String("user_id", order.UserID),
		zap.String("order_id", order.OrderID),
		zap.String("plan", string(sub.Plan)))

	if s.notifier != nil {
		if err := s.notifier.PaymentSucceeded(ctx, order.UserID, sub); err != nil {
			s.logger.Error("failed to queue payment email", zap.String("user_id", order.UserID), zap.Error(err))
		}
	}

	err = s.events.Publish(ctx, events.PaymentVerified, map[string]any{
		"user_id":    order.UserID,
		"order_id":   order.OrderID,
		"payment_id": req.PaymentID,
		"plan":       sub.Plan,
		"amount":     order.Amount,
		"currency":   order.Currency,
	})
	if err != nil {
		s.logger.Warn("failed to publish payment event", zap.Error(err))
	}
	return sub, nil
}

func (s *Service) subscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.orders.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// Status reports the user's subscription and remaining credits
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	sub, err := s.subscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	credits, err := s.credits.GetCredit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credits: %w", err)
	}
	return &Status{
		IsSubscribed: sub.Active(s.now()),
		Credits:      credits,
		Subscription: sub,
	}, nil
}

// UseCredit takes one credit and returns the remaining balance
func (s *Service) UseCredit(ctx context.Context, userID string) (int, error) {
	return s.credits.DecrementCredit(ctx, userID)
}

// Charge admits one AI call. Subscribers are never charged; everyone else
// pays one credit or gets domain.ErrNoCredits.
func (s *Service) Charge(ctx context.Context, userID string) error {
	sub, err := s.subscription(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if sub.Active(s.now()) {
		return nil
	}
	_, err = s.credits.DecrementCredit(ctx, userID)
	return err
}
