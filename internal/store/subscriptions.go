package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resumate-app/resumate/internal/domain"
)

// SubscriptionStore persists gateway orders and the subscription they buy
type SubscriptionStore struct {
	db  *sql.DB
	tx  *TxManager
	now func() time.Time
}

// NewSubscriptionStore creates a subscription store
func NewSubscriptionStore(db *sql.DB, tx *TxManager) *SubscriptionStore {
	return &SubscriptionStore{db: db, tx: tx, now: time.Now}
}

// CreateOrder records a pending gateway order
func (s *SubscriptionStore) CreateOrder(ctx context.Context, o *domain.PaymentOrder) error {
	o.Status = domain.PaymentPending
	err := s.db.QueryRowContext(ctx, `
INSERT INTO payment_orders (order_id, user_id, plan, amount, currency, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`,
		o.OrderID, o.UserID, string(o.Plan), o.Amount, o.Currency, string(o.Status),
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", mapError(err))
	}
	return nil
}

// Activate marks the pending order paid and upserts the owner's subscription.
// The new expiry extends from the current expiry while it is still active, so
// renewing early loses no time. A paid or unknown order yields
// domain.ErrNotFound.
func (s *SubscriptionStore) Activate(ctx context.Context, orderID, paymentID string) (*domain.PaymentOrder, *domain.Subscription, error) {
	var (
		order domain.PaymentOrder
		sub   domain.Subscription
	)

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.now().UTC()

		var orderPlan, orderStatus string
		err := tx.QueryRowContext(ctx, `
UPDATE payment_orders SET status = $3, payment_id = $2, verified_at = $4
WHERE order_id = $1 AND status = $5
RETURNING order_id, user_id, plan, amount, currency, status, created_at`,
			orderID, paymentID, string(domain.PaymentSuccessful), now, string(domain.PaymentPending),
		).Scan(&order.OrderID, &order.UserID, &orderPlan, &order.Amount, &order.Currency, &orderStatus, &order.CreatedAt)
		if err != nil {
			return mapError(err)
		}
		order.Plan = domain.Plan(orderPlan)
		order.Status = domain.PaymentStatus(orderStatus)
		order.PaymentID = paymentID
		order.VerifiedAt = &now

		current, err := getSubscription(ctx, tx, order.UserID, true)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		from := now
		if current.Active(now) && current.Expiry.After(from) {
			from = *current.Expiry
		}
		plan, expiry := order.Plan, order.Plan.Extend(from)
		if current.Active(now) && current.Plan == domain.PlanLifetime {
			// never downgrade a lifetime plan
			plan, expiry = domain.PlanLifetime, *current.Expiry
		}

		row := tx.QueryRowContext(ctx, `
INSERT INTO subscriptions (id, user_id, plan, gateway_order_id, gateway_payment_id, payment_status, amount, currency, expiry)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id) DO UPDATE SET
	plan = EXCLUDED.plan,
	gateway_order_id = EXCLUDED.gateway_order_id,
	gateway_payment_id = EXCLUDED.gateway_payment_id,
	payment_status = EXCLUDED.payment_status,
	amount = EXCLUDED.amount,
	currency = EXCLUDED.currency,
	expiry = EXCLUDED.expiry,
	updated_at = NOW()
RETURNING `+subscriptionColumns,
			uuid.NewString(), order.UserID, string(plan), order.OrderID, paymentID,
			string(domain.PaymentSuccessful), order.Amount, order.Currency, expiry)
		saved, err := scanSubscription(row)
		if err != nil {
			return mapError(err)
		}
		sub = *saved
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("activate order %s: %w", orderID, err)
	}
	return &order, &sub, nil
}

// GetByUser returns the user's subscription, or domain.ErrNotFound
func (s *SubscriptionStore) GetByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	return getSubscription(ctx, s.db, userID, false)
}

const subscriptionColumns = `id, user_id, plan, gateway_order_id, gateway_payment_id, payment_status, amount, currency, expiry, created_at, updated_at`

func getSubscription(ctx context.Context, q querier, userID string, forUpdate bool) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	sub, err := scanSubscription(q.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, mapError(err)
	}
	return sub, nil
}

func scanSubscription(row interface{ Scan(...any) error }) (*domain.Subscription, error) {
	var (
		sub          domain.Subscription
		plan, status string
		paymentID    sql.NullString
		expiry       sql.NullTime
	)
	err := row.Scan(&sub.ID, &sub.UserID, &plan, &sub.GatewayOrderID, &paymentID, &status,
		&sub.Amount, &sub.Currency, &expiry, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Plan = domain.Plan(plan)
	sub.PaymentStatus = domain.PaymentStatus(status)
	sub.GatewayPaymentID = paymentID.String
	if expiry.Valid {
		sub.Expiry = &expiry.Time
	}
	return &sub, nil
}
