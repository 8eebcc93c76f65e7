package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/cache"
)

var (
	// ErrEmailNotVerified is returned by Login until the address is confirmed.
	// A fresh verification email is queued each time.
	ErrEmailNotVerified = errors.New("email not verified, confirmation email sent")

	// ErrGoogleDisabled is returned when no Google client is configured
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
)

// StateTTL bounds how long an OAuth state value stays valid
const StateTTL = 10 * time.Minute

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, hash string) error
	UpdateName(ctx context.Context, id, name string) error
	UpsertGoogle(ctx context.Context, email, name string, credit int) (*domain.User, error)
}

// TokenStore persists single-use email tokens
type TokenStore interface {
	Save(ctx context.Context, t domain.VerificationToken) error
	Consume(ctx context.Context, token string, kind domain.TokenKind) (*domain.VerificationToken, error)
}

// Mailer queues account emails
type Mailer interface {
	QueueVerification(ctx context.Context, email, token string) error
	QueuePasswordReset(ctx context.Context, email, token string) error
}

// ServiceConfig configures account creation
type ServiceConfig struct {
	FreeCredits     int
	VerificationTTL time.Duration
}

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6,max=72"`
}

// LoginRequest is the credentials sign-in payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewPasswordRequest completes a password reset
type NewPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"min=6,max=72"`
}

// SettingsRequest updates the profile. Changing the password needs both the
// current and the new one.
type SettingsRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Password    string  `json:"password,omitempty"`
	NewPassword string  `json:"newPassword,omitempty" validate:"omitempty,min=6,max=72"`
}

// Session is a signed-in user and their access token
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Service implements account registration and sign-in
type Service struct {
	users  UserStore
	tokens TokenStore
	mailer Mailer
	jwt    *TokenService
	google *GoogleProvider
	states cache.Cache
	config ServiceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an account service. google may be nil to disable
// Google sign-in.
func NewService(users UserStore, tokens TokenStore, mailer Mailer, jwt *TokenService, google *GoogleProvider, states cache.Cache, cfg ServiceConfig, logger *zap.Logger) *Service {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		jwt:    jwt,
		google: google,
		states: states,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// issue stores a new single-use token of kind for email
func (s *Service) issue(ctx context.Context, email string, kind domain.TokenKind) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	err = s.tokens.Save(ctx, domain.VerificationToken{
		Email:     email,
		Token:     token,
		Kind:      kind,
		ExpiresAt: s.now().Add(s.config.VerificationTTL),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sendVerification(ctx context.Context, email string) error {
	token, err := s.issue(ctx, email, domain.TokenEmailVerification)
	if err != nil {
		return err
	}
	return s.mailer.QueueVerification(ctx, email, token)
}

// Register creates an unverified account and queues the verification email.
// A taken email yields domain.ErrConflict.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, validation.Field("password", "must be at most 72 bytes")
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Credit:       s.config.FreeCredits,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user.Email); err != nil {
		return nil, fmt.Errorf("queue verification: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *Service) session(u *domain.User) (*Session, error) {
	token, err := s.jwt.GenerateToken(u.ID, u.Email, []string{u.Role})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, User: u}, nil
}

// Login checks credentials. Accounts without a password (Google sign-in)
// and wrong passwords both yield domain.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if user.EmailVerifiedAt == nil {
		if err := s.sendVerification(ctx, user.Email); err != nil {
			return nil, fmt.Errorf("queue verification: %w", err)
		}
		return nil, ErrEmailNotVerified
	}
	return s.session(user)
}

// consume redeems a single-use token. Unknown and expired tokens yield
// domain.ErrInvalidToken.
func (s *Service) consume(ctx context.Context, token string, kind domain.TokenKind) (*domain.VerificationToken, error) {
	t, err := s.tokens.Consume(ctx, token, kind)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if t.Expired(s.now()) {
		return nil, domain.ErrInvalidToken
	}
	return t, nil
}

// Verify confirms the email address the token was sent to
func (s *Service) Verify(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrInvalidToken
	}
	t, err := s.consume(ctx, token, domain.TokenEmailVerification)
	if err != nil {
		return err
	}
	if err := s.users.MarkVerified(ctx, t.Email); err != nil {
		return err
	}
	s.logger.Info("email verified", zap.String("email", t.Email))
	return nil
}

// RequestReset queues a reset email when an account exists. Unknown
// addresses succeed silently.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.Struct(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := s.issue(ctx, email, domain.TokenPasswordReset)
	if err != nil {
		return err
	}
	return s.mailer.QueuePasswordReset(ctx, email, token)
}

// ResetPassword sets a new password using a reset token. Completing a reset
// also proves ownership of the address.
func (s *Service) ResetPassword(ctx context.Context, req NewPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	t, err := s.consume(ctx, req.Token, domain.TokenPasswordReset)
	if err != nil {
		return err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return validation.Field("password", "must be at most 72 bytes")
	}
	if err := s.users.UpdatePassword(ctx, t.Email, hash); err != nil {
		return err
	}
	return s.users.MarkVerified(ctx, t.Email)
}

// UpdateSettings changes the name and, when both passwords are given, the
// password of the account
func (s *Service) UpdateSettings(ctx context.Context, userID string, req SettingsRequest) (*domain.User, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	switch {
	case req.Password != "" && req.NewPassword == "":
		return nil, validation.Field("newPassword", "is required")
	case req.NewPassword != "" && req.Password == "":
		return nil, validation.Field("password", "is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" && *req.Name != user.Name {
		if err := s.users.UpdateName(ctx, userID, *req.Name); err != nil {
			return nil, err
		}
		user.Name = *req.Name
	}

	if req.NewPassword != "" {
		if !CheckPassword(req.Password, user.PasswordHash) {
			return nil, validation.Field("password", "is incorrect")
		}
		hash, err := HashPassword(req.NewPassword)
		if err != nil {
			return nil, validation.Field("newPassword", "must be at most 72 bytes")
		}
		if err := s.users.UpdatePassword(ctx, user.Email, hash); err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	return user, nil
}

func stateKey(state string) string {
	return "oauth:state:" + state
}

// GoogleLoginURL records a fresh state value and returns the consent URL
func (s *Service) GoogleLoginURL(ctx context.Context) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	state, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.states.Set(ctx, stateKey(state), []byte("1"), StateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.google.AuthURL(state), nil
}

// GoogleCallback completes the flow. The state is single use; an unknown
// or replayed state yields domain.ErrInvalidToken.
func (s *Service) GoogleCallback(ctx context.Context, state, code string) (*Session, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	if state == "" || code == "" {
		return nil, domain.ErrInvalidToken
	}
	if _, err := s.states.Take(ctx, stateKey(state)); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("load oauth state: %w", err)
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if !profile.VerifiedEmail {
		return nil, validation.Field("email", "google account email is not verified")
	}

	user, err := s.users.UpsertGoogle(ctx, profile.Email, profile.Name, s.config.FreeCredits)
	if err != nil {
		return nil, err
	}
	s.logger.Info("google sign-in", zap.String("user_id", user.ID))
	return s.session(user)
}
