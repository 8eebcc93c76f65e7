// Package api exposes the resumate services over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/ai"
	"github.com/resumate-app/resumate/internal/billing"
	"github.com/resumate-app/resumate/internal/coverletter"
	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/web/auth"
	"github.com/resumate-app/resumate/internal/web/cache"
	"github.com/resumate-app/resumate/internal/web/jobs"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/profiling"
	"github.com/resumate-app/resumate/internal/web/ratelimit"
	"github.com/resumate-app/resumate/internal/web/request"
	"github.com/resumate-app/resumate/internal/web/response"
	"github.com/resumate-app/resumate/internal/web/router"
	"github.com/resumate-app/resumate/internal/web/websocket"
)

// Accounts registers and signs in users
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.Session, error)
	Verify(ctx context.Context, token string) error
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req auth.NewPasswordRequest) error
	UpdateSettings(ctx context.Context, userID string, req auth.SettingsRequest) (*domain.User, error)
	GoogleLoginURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, state, code string) (*auth.Session, error)
}

// Users loads accounts by id
type Users interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Resumes stores the user's resumes
type Resumes interface {
	Save(ctx context.Context, userID string, values domain.ResumeValues) (*domain.ResumeValues, error)
	Get(ctx context.Context, userID, id string) (*domain.ResumeValues, error)
	List(ctx context.Context, userID string) ([]domain.ResumeSummary, error)
	Delete(ctx context.Context, userID, id string) error
	UploadPhoto(ctx context.Context, userID, resumeID string, body io.Reader, size int64, contentType string) (string, error)
}

// Assistant runs the LLM backed resume features
type Assistant interface {
	AnalyzeResume(ctx context.Context, resume domain.ResumeValues, jobDescription string) *ai.AtsAnalysisResult
	OptimizeResume(ctx context.Context, resume domain.ResumeValues, jobDescription string) domain.ResumeValues
	GenerateSummary(ctx context.Context, in ai.SummaryInput) (string, error)
	GenerateWorkExperience(ctx context.Context, description string) (domain.WorkExperience, error)
	GenerateProject(ctx context.Context, description string) (domain.Project, error)
}

// CoverLetters generates and stores cover letters
type CoverLetters interface {
	Generate(ctx context.Context, userID string, req coverletter.Request) (*domain.CoverLetter, error)
	List(ctx context.Context, userID string) ([]domain.CoverLetter, error)
	Get(ctx context.Context, userID, id string) (*domain.CoverLetter, error)
	UpdateContent(ctx context.Context, userID, id, content string) (*domain.CoverLetter, error)
	Delete(ctx context.Context, userID, id string) error
}

// Billing sells plans and accounts for AI credits
type Billing interface {
	CreateOrder(ctx context.Context, user *domain.User, plan domain.Plan) (*billing.Checkout, error)
	Verify(ctx context.Context, req billing.VerifyRequest) (*domain.Subscription, error)
	Status(ctx context.Context, userID string) (*billing.Status, error)
	UseCredit(ctx context.Context, userID string) (int, error)
	Charge(ctx context.Context, userID string) error
}

// QueueStats reports background job counts
type QueueStats interface {
	GetQueueStats(ctx context.Context, queueName string) (*jobs.QueueStats, error)
}

// Pinger checks a backing service for the health endpoint
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services are the dependencies handlers call into
type Services struct {
	Accounts     Accounts
	Users        Users
	Tokens       *auth.TokenService
	Resumes      Resumes
	Assistant    Assistant
	CoverLetters CoverLetters
	Billing      Billing
	Jobs         QueueStats
	DB           Pinger
	Hub          *websocket.Hub
}

// Config tunes the HTTP surface
type Config struct {
	Prefix         string
	CORSOrigins    []string
	RequestTimeout time.Duration
	AutosaveDelay  time.Duration
	JobsQueue      string
	// Profiling mounts pprof under /admin/debug for administrators
	Profiling bool

	// Nil limiters disable rate limiting for their routes
	AuthLimiter ratelimit.Limiter
	AILimiter   ratelimit.Limiter
}

// API holds the handlers for every endpoint
type API struct {
	svc      Services
	config   Config
	logger   *zap.Logger
	upgrader *websocket.Upgrader
	photos   *request.FileUploader
	files    *request.FileUploader
}

// New creates the API. A nil logger discards logs.
func New(svc Services, cfg Config, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.JobsQueue == "" {
		cfg.JobsQueue = "default"
	}
	if svc.Hub == nil {
		svc.Hub = websocket.NewHub()
	}
	return &API{
		svc:      svc,
		config:   cfg,
		logger:   logger,
		upgrader: websocket.NewUpgrader(svc.Hub, cfg.CORSOrigins, logger),
		photos: request.NewFileUploader(request.UploadConfig{
			MaxFileSize:  resumeMaxPhotoSize,
			AllowedTypes: []string{"image/"},
		}),
		files: request.NewFileUploader(request.UploadConfig{
			MaxFileSize: documentMaxSize,
		}),
	}
}

func (a *API) limit(l ratelimit.Limiter, key middleware.RateLimitKeyFunc) []middleware.Middleware {
	if l == nil {
		return nil
	}
	return []middleware.Middleware{middleware.RateLimit(l, key, a.logger)}
}

// Routes builds the router with all middleware attached
func (a *API) Routes() *router.Router {
	r := router.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(a.logger, "/healthz"),
		middleware.Recovery(a.logger),
		middleware.CORS(a.config.CORSOrigins),
	)

	r.Get("/healthz", a.health).Named("health")

	r.Group(a.config.Prefix, func(api *router.Router) {
		// The editor socket outlives any request timeout.
		api.Protected(func(ws *router.Router) {
			ws.Get("/editor/ws", a.editorSocket).Named("editor.ws")
		}, middleware.Auth(a.svc.Tokens))

		api.Group("", func(r *router.Router) {
			a.authRoutes(r)

			r.Protected(func(r *router.Router) {
				r.Get("/me", a.me).Named("me.show")
				r.Patch("/me", a.updateMe).Named("me.update")

				a.resumeRoutes(r)
				a.aiRoutes(r)
				a.coverLetterRoutes(r)
				a.billingRoutes(r)
				r.Post("/documents/extract", a.extractDocument).Named("documents.extract")

				r.With(middleware.RequirePermission(auth.JobsRead)).
					Get("/admin/jobs", a.jobStats).Named("admin.jobs")

				if a.config.Profiling {
					r.Group("/admin/debug", func(r *router.Router) {
						profiling.Register(r, profiling.DefaultConfig())
					}, middleware.RequirePermission(auth.DebugRead))
				}
			}, middleware.Auth(a.svc.Tokens))
		}, middleware.Timeout(a.config.RequestTimeout))
	})
	return r
}

// Handler returns the routes as an http.Handler
func (a *API) Handler() http.Handler {
	return a.Routes()
}

func (a *API) authRoutes(r *router.Router) {
	r.Group("/auth", func(r *router.Router) {
		r.Post("/register", a.register).Named("auth.register")
		r.Post("/login", a.login).Named("auth.login")
		r.Post("/verify", a.verify).Named("auth.verify")
		r.Post("/reset", a.requestReset).Named("auth.reset")
		r.Post("/new-password", a.newPassword).Named("auth.new_password")
		r.Get("/google/login", a.googleLogin).Named("auth.google.login")
		r.Get("/google/callback", a.googleCallback).Named("auth.google.callback")
	}, a.limit(a.config.AuthLimiter, middleware.IPKeyFunc)...)
}

func (a *API) resumeRoutes(r *router.Router) {
	r.Group("/resumes", func(r *router.Router) {
		r.With(middleware.Func(cache.ConditionalGET)).Get("/", a.listResumes).Named("resumes.index")
		r.Post("/", a.createResume).Named("resumes.create")
		r.With(middleware.Func(cache.ConditionalGET)).Get("/{id}", a.showResume).Named("resumes.show")
		r.Put("/{id}", a.updateResume).Named("resumes.update")
		r.Delete("/{id}", a.deleteResume).Named("resumes.delete")
		r.Post("/{id}/photo", a.uploadPhoto).Named("resumes.photo")
	}, middleware.RequirePermission(auth.ResumesWrite))
}

func (a *API) aiRoutes(r *router.Router) {
	mws := append([]middleware.Middleware{middleware.RequirePermission(auth.AIUse)},
		a.limit(a.config.AILimiter, middleware.UserKeyFunc)...)
	r.Group("/ai", func(r *router.Router) {
		r.Post("/ats", a.analyzeResume).Named("ai.ats")
		r.Post("/optimize", a.optimizeResume).Named("ai.optimize")
		r.Post("/summary", a.generateSummary).Named("ai.summary")
		r.Post("/work-experience", a.generateWorkExperience).Named("ai.work_experience")
		r.Post("/project", a.generateProject).Named("ai.project")
	}, mws...)
}

func (a *API) coverLetterRoutes(r *router.Router) {
	r.Group("/cover-letters", func(r *router.Router) {
		r.Get("/", a.listCoverLetters).Named("cover_letters.index")
		r.Post("/", a.createCoverLetter).Named("cover_letters.create")
		r.Get("/{id}", a.showCoverLetter).Named("cover_letters.show")
		r.Put("/{id}", a.updateCoverLetter).Named("cover_letters.update")
		r.Delete("/{id}", a.deleteCoverLetter).Named("cover_letters.delete")
	}, middleware.RequirePermission(auth.CoverLettersWrite))
}

func (a *API) billingRoutes(r *router.Router) {
	r.Group("/billing", func(r *router.Router) {
		r.Post("/orders", a.createOrder).Named("billing.orders")
		r.Post("/verify", a.verifyPayment).Named("billing.verify")
		r.Get("/subscription", a.subscription).Named("billing.subscription")
		r.Post("/credits/use", a.useCredit).Named("billing.credits.use")
	})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if a.svc.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.svc.DB.PingContext(ctx); err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	response.OK(w, status)
}

func (a *API) jobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Jobs.GetQueueStats(r.Context(), a.config.JobsQueue)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, stats)
}
