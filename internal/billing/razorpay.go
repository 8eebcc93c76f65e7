package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
)

// DefaultGatewayURL is the Razorpay API base URL
const DefaultGatewayURL = "https://api.razorpay.com"

// OrderRequest is the body of a create-order call
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is a gateway order as returned by Razorpay
type Order struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	Notes      map[string]string `json:"notes"`
	CreatedAt  int64             `json:"created_at"`
}

// Gateway creates payment orders
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// Razorpay creates orders through the Razorpay Go SDK
type Razorpay struct {
	baseURL string
	client  *razorpay.Client
}

// NewRazorpay creates a client. An empty baseURL selects DefaultGatewayURL.
func NewRazorpay(baseURL, keyID, keySecret string) *Razorpay {
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := razorpay.NewClient(keyID, keySecret)
	client.Request.BaseURL = baseURL
	return &Razorpay{baseURL: baseURL, client: client}
}

// CreateOrder creates an order for req.Amount minor units. The SDK call is
// not cancellable, so ctx is only checked before it starts.
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway order failed: %w", err)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}
	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned an order without id")
	}
	return &order, nil
}
