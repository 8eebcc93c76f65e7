package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/cache"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}, email: map[string]string{}}
}

func (m *memUsers) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[u.Email]; ok {
		return domain.ErrConflict
	}
	u.ID = uuid.NewString()
	cp := *u
	m.byID[u.ID] = &cp
	m.email[u.Email] = u.ID
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	id, ok := m.email[strings.ToLower(email)]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *memUsers) byEmail(email string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[m.email[email]]
}

func (m *memUsers) MarkVerified(ctx context.Context, email string) error {
	u := m.byEmail(email)
	if u == nil {
		return domain.ErrNotFound
	}
	now := time.Now()
	u.EmailVerifiedAt = &now
	return nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, email, hash string) error {
	u := m.byEmail(email)
	if u == nil {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) UpdateName(ctx context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Name = name
	return nil
}

func (m *memUsers) UpsertGoogle(ctx context.Context, email, name string, credit int) (*domain.User, error) {
	if u := m.byEmail(email); u != nil {
		_ = m.MarkVerified(ctx, email)
		return m.GetByID(ctx, u.ID)
	}
	now := time.Now()
	u := &domain.User{Email: email, Name: name, Role: domain.RoleUser, Credit: credit, EmailVerifiedAt: &now}
	if err := m.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]domain.VerificationToken
}

func (m *memTokens) Save(ctx context.Context, t domain.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, existing := range m.tokens {
		if existing.Email == t.Email && existing.Kind == t.Kind {
			delete(m.tokens, k)
		}
	}
	m.tokens[t.Token] = t
	return nil
}

func (m *memTokens) Consume(ctx context.Context, token string, kind domain.TokenKind) (*domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.Kind != kind {
		return nil, domain.ErrNotFound
	}
	delete(m.tokens, token)
	return &t, nil
}

type queuedMail struct {
	kind, email, token string
}

type recordingMailer struct {
	sent []queuedMail
}

func (r *recordingMailer) QueueVerification(ctx context.Context, email, token string) error {
	r.sent = append(r.sent, queuedMail{"verification", email, token})
	return nil
}

func (r *recordingMailer) QueuePasswordReset(ctx context.Context, email, token string) error {
	r.sent = append(r.sent, queuedMail{"reset", email, token})
	return nil
}

func (r *recordingMailer) last() queuedMail {
	return r.sent[len(r.sent)-1]
}

type fixture struct {
	svc    *Service
	users  *memUsers
	tokens *memTokens
	mailer *recordingMailer
	states *cache.MemoryCache
}

func newFixture(t *testing.T, google *GoogleProvider) *fixture {
	t.Helper()
	f := &fixture{
		users:  newMemUsers(),
		tokens: &memTokens{tokens: map[string]domain.VerificationToken{}},
		mailer: &recordingMailer{},
		states: cache.NewMemoryCache(cache.DefaultCacheConfig()),
	}
	t.Cleanup(func() { f.states.Close() })

	f.svc = NewService(f.users, f.tokens, f.mailer, NewTokenService("secret", time.Hour), google, f.states,
		ServiceConfig{FreeCredits: 5, VerificationTTL: time.Hour}, nil)
	return f
}

func (f *fixture) registerVerified(t *testing.T, email, password string) *domain.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterRequest{Name: "Ada", Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, f.svc.Verify(context.Background(), f.mailer.last().token))
	return u
}

func TestService_Register(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterRequest{Name: " Ada ", Email: " Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, 5, u.Credit)
	assert.Nil(t, u.EmailVerifiedAt)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "verification", f.mailer.sent[0].kind)
	assert.Len(t, f.mailer.sent[0].token, 64)

	_, err = f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestService_RegisterValidation(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Register(context.Background(), RegisterRequest{Name: " ", Email: "nope", Password: "12345"})
	verrs, ok := validation.As(err)
	require.True(t, ok)
	assert.Contains(t, verrs.Fields, "name")
	assert.Contains(t, verrs.Fields, "email")
	assert.Contains(t, verrs.Fields, "password")
	assert.Empty(t, f.mailer.sent)
}

func TestService_LoginFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	assert.Len(t, f.mailer.sent, 2, "unverified login re-sends the confirmation")

	require.NoError(t, f.svc.Verify(ctx, f.mailer.last().token))

	session, err := f.svc.Login(ctx, LoginRequest{Email: "ADA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.User.Email)

	claims, err := f.svc.jwt.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, []string{domain.RoleUser}, claims.Roles)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong!"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestService_VerifyTokens(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Verify(ctx, ""), domain.ErrInvalidToken)
	assert.ErrorIs(t, f.svc.Verify(ctx, "unknown"), domain.ErrInvalidToken)

	_, err := f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	token := f.mailer.last().token

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, f.svc.Verify(ctx, token), domain.ErrInvalidToken)
	assert.ErrorIs(t, f.svc.Verify(ctx, token), domain.ErrInvalidToken, "tokens are single use")
}

func TestService_PasswordReset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.registerVerified(t, "ada@example.com", "secret1")
	sentBefore := len(f.mailer.sent)

	require.NoError(t, f.svc.RequestReset(ctx, "ghost@example.com"))
	assert.Len(t, f.mailer.sent, sentBefore, "unknown address queues nothing")

	require.NoError(t, f.svc.RequestReset(ctx, "ada@example.com"))
	reset := f.mailer.last()
	assert.Equal(t, "reset", reset.kind)

	require.NoError(t, f.svc.ResetPassword(ctx, NewPasswordRequest{Token: reset.token, Password: "brandnew"}))
	_, err := f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "brandnew"})
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, NewPasswordRequest{Token: reset.token, Password: "another"})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestService_UpdateSettings(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.registerVerified(t, "ada@example.com", "secret1")

	name := "Ada Lovelace"
	updated, err := f.svc.UpdateSettings(ctx, u.ID, SettingsRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	_, err = f.svc.UpdateSettings(ctx, u.ID, SettingsRequest{Password: "secret1"})
	verrs, ok := validation.As(err)
	require.True(t, ok)
	assert.Contains(t, verrs.Fields, "newPassword")

	_, err = f.svc.UpdateSettings(ctx, u.ID, SettingsRequest{Password: "wrong1", NewPassword: "changed"})
	verrs, ok = validation.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"is incorrect"}, verrs.Fields["password"])

	_, err = f.svc.UpdateSettings(ctx, u.ID, SettingsRequest{Password: "secret1", NewPassword: "changed"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "changed"})
	assert.NoError(t, err)
}

func newGoogleServer(t *testing.T, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(GoogleUser{ID: "g1", Email: "grace@example.com", VerifiedEmail: verified, Name: "Grace"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testGoogleProvider(server *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider("client", "secret", "http://localhost/callback")
	p.config.Endpoint = oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"}
	p.userInfoURL = server.URL + "/userinfo"
	return p
}

func TestService_Google(t *testing.T) {
	server := newGoogleServer(t, true)
	f := newFixture(t, testGoogleProvider(server))
	ctx := context.Background()

	loginURL, err := f.svc.GoogleLoginURL(ctx)
	require.NoError(t, err)
	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, "select_account", parsed.Query().Get("prompt"))

	_, err = f.svc.GoogleCallback(ctx, "forged", "code")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	session, err := f.svc.GoogleCallback(ctx, state, "code")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", session.User.Email)
	assert.Equal(t, 5, session.User.Credit)
	assert.NotNil(t, session.User.EmailVerifiedAt)

	_, err = f.svc.GoogleCallback(ctx, state, "code")
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "state is single use")
}

func TestService_GoogleUnverifiedEmail(t *testing.T) {
	server := newGoogleServer(t, false)
	f := newFixture(t, testGoogleProvider(server))
	ctx := context.Background()

	loginURL, err := f.svc.GoogleLoginURL(ctx)
	require.NoError(t, err)
	parsed, _ := url.Parse(loginURL)

	_, err = f.svc.GoogleCallback(ctx, parsed.Query().Get("state"), "code")
	_, ok := validation.As(err)
	assert.True(t, ok)
}

func TestService_GoogleDisabled(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.GoogleLoginURL(context.Background())
	assert.ErrorIs(t, err, ErrGoogleDisabled)
	assert.Nil(t, NewGoogleProvider("", "", ""))
}
