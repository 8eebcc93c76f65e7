package domain

import "time"

// Plan is a purchasable subscription
type Plan string

const (
	PlanMonthly  Plan = "MONTHLY"
	PlanLifetime Plan = "LIFETIME"
)

// Valid reports whether p is a known plan
func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanLifetime
}

// PaymentStatus is the gateway state of a subscription payment
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentSuccessful PaymentStatus = "SUCCESSFUL"
	PaymentFailed     PaymentStatus = "FAILED"
)

// Subscription is a user's plan and its payment state. A user has at most one.
type Subscription struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	Plan             Plan          `json:"plan"`
	GatewayOrderID   string        `json:"orderId"`
	GatewayPaymentID string        `json:"paymentId,omitempty"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Expiry           *time.Time    `json:"expiry,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Active reports whether the subscription is paid and unexpired at now
func (s *Subscription) Active(now time.Time) bool {
	if s == nil || s.PaymentStatus != PaymentSuccessful || s.Expiry == nil {
		return false
	}
	return s.Expiry.After(now)
}

// MonthlyPeriod is how long one MONTHLY purchase extends a subscription
const MonthlyPeriod = 30 * 24 * time.Hour

// lifetimeExpiry stands in for "never" in the expiry column
var lifetimeExpiry = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Extend returns the expiry a successful purchase of p grants when the
// current paid period ends at from.
func (p Plan) Extend(from time.Time) time.Time {
	if p == PlanLifetime {
		return lifetimeExpiry
	}
	return from.Add(MonthlyPeriod)
}

// PaymentOrder is one gateway order created for a plan purchase
type PaymentOrder struct {
	OrderID    string        `json:"orderId"`
	UserID     string        `json:"userId"`
	Plan       Plan          `json:"plan"`
	Amount     int64         `json:"amount"`
	Currency   string        `json:"currency"`
	Status     PaymentStatus `json:"status"`
	PaymentID  string        `json:"paymentId,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	VerifiedAt *time.Time    `json:"verifiedAt,omitempty"`
}
