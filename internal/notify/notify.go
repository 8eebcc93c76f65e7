// Package notify turns user-facing side effects (transactional email,
// object cleanup) into background jobs and runs them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/blob"
	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/web/jobs"
)

// Job types
const (
	TypeVerificationEmail   = "mail.verification"
	TypePasswordResetEmail  = "mail.password_reset"
	TypePaymentSuccessEmail = "mail.payment_success"
	TypeBlobDelete          = "blob.delete"
	TypePurge               = "jobs.purge"
)

// TokenPayload carries a single-use email token
type TokenPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// PaymentPayload identifies the user and plan of a verified payment
type PaymentPayload struct {
	UserID string      `json:"user_id"`
	Plan   domain.Plan `json:"plan"`
}

// BlobPayload names an object to remove
type BlobPayload struct {
	URL string `json:"url"`
}

// Dispatcher enqueues jobs
type Dispatcher interface {
	Dispatch(ctx context.Context, jobType string, payload any, priority jobs.JobPriority) error
}

// Notifier queues notifications and cleanup work
type Notifier struct {
	jobs Dispatcher
}

// New creates a Notifier on top of d
func New(d Dispatcher) *Notifier {
	return &Notifier{jobs: d}
}

// QueueVerification queues the email-verification message
func (n *Notifier) QueueVerification(ctx context.Context, email, token string) error {
	return n.jobs.Dispatch(ctx, TypeVerificationEmail, TokenPayload{Email: email, Token: token}, jobs.PriorityHigh)
}

// QueuePasswordReset queues the password-reset message
func (n *Notifier) QueuePasswordReset(ctx context.Context, email, token string) error {
	return n.jobs.Dispatch(ctx, TypePasswordResetEmail, TokenPayload{Email: email, Token: token}, jobs.PriorityHigh)
}

// PaymentSucceeded queues the payment confirmation
func (n *Notifier) PaymentSucceeded(ctx context.Context, userID string, sub *domain.Subscription) error {
	return n.jobs.Dispatch(ctx, TypePaymentSuccessEmail, PaymentPayload{UserID: userID, Plan: sub.Plan}, jobs.PriorityNormal)
}

// DeleteBlob queues removal of a stored object
func (n *Notifier) DeleteBlob(ctx context.Context, url string) error {
	return n.jobs.Dispatch(ctx, TypeBlobDelete, BlobPayload{URL: url}, jobs.PriorityLow)
}

// Mailer sends the transactional messages
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendPaymentSuccess(ctx context.Context, email, plan string) error
}

// UserReader resolves the recipient of a payment email
type UserReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// BlobDeleter removes stored objects
type BlobDeleter interface {
	Delete(ctx context.Context, url string) error
}

// Purger removes finished jobs
type Purger interface {
	PurgeCompleted(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Registrar is the part of the worker pool handlers are registered on
type Registrar interface {
	RegisterHandler(jobType string, handler jobs.Handler)
}

// Handlers holds the dependencies of the job handlers
type Handlers struct {
	Mailer     Mailer
	Users      UserReader
	Blobs      BlobDeleter
	Jobs       Purger
	PurgeAfter time.Duration
	Logger     *zap.Logger
}

// Register installs every handler on r. Handlers whose dependency is nil
// are skipped.
func (h *Handlers) Register(r Registrar) {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	if h.Mailer != nil {
		r.RegisterHandler(TypeVerificationEmail, h.verification)
		r.RegisterHandler(TypePasswordResetEmail, h.passwordReset)
		if h.Users != nil {
			r.RegisterHandler(TypePaymentSuccessEmail, h.paymentSuccess)
		}
	}
	if h.Blobs != nil {
		r.RegisterHandler(TypeBlobDelete, h.blobDelete)
	}
	if h.Jobs != nil {
		r.RegisterHandler(TypePurge, h.purge)
	}
}

func decode(job *jobs.Job, v any) error {
	if err := job.Decode(v); err != nil {
		return jobs.Permanent(err)
	}
	return nil
}

func (h *Handlers) verification(ctx context.Context, job *jobs.Job) error {
	var p TokenPayload
	if err := decode(job, &p); err != nil {
		return err
	}
	return h.Mailer.SendVerification(ctx, p.Email, p.Token)
}

func (h *Handlers) passwordReset(ctx context.Context, job *jobs.Job) error {
	var p TokenPayload
	if err := decode(job, &p); err != nil {
		return err
	}
	return h.Mailer.SendPasswordReset(ctx, p.Email, p.Token)
}

func (h *Handlers) paymentSuccess(ctx context.Context, job *jobs.Job) error {
	var p PaymentPayload
	if err := decode(job, &p); err != nil {
		return err
	}

	user, err := h.Users.GetByID(ctx, p.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return jobs.Permanent(fmt.Errorf("user %s: %w", p.UserID, err))
	}
	if err != nil {
		return err
	}
	return h.Mailer.SendPaymentSuccess(ctx, user.Email, string(p.Plan))
}

func (h *Handlers) blobDelete(ctx context.Context, job *jobs.Job) error {
	var p BlobPayload
	if err := decode(job, &p); err != nil {
		return err
	}

	err := h.Blobs.Delete(ctx, p.URL)
	if errors.Is(err, blob.ErrForeignURL) {
		h.Logger.Warn("skipping delete of foreign url", zap.String("url", p.URL))
		return nil
	}
	return err
}

func (h *Handlers) purge(ctx context.Context, job *jobs.Job) error {
	n, err := h.Jobs.PurgeCompleted(ctx, h.PurgeAfter)
	if err != nil {
		return err
	}
	h.Logger.Info("purged completed jobs", zap.Int64("count", n))
	return nil
}
