package commands

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/ai"
	"github.com/resumate-app/resumate/internal/api"
	"github.com/resumate-app/resumate/internal/billing"
	"github.com/resumate-app/resumate/internal/blob"
	"github.com/resumate-app/resumate/internal/config"
	"github.com/resumate-app/resumate/internal/coverletter"
	"github.com/resumate-app/resumate/internal/events"
	"github.com/resumate-app/resumate/internal/llm"
	"github.com/resumate-app/resumate/internal/mail"
	"github.com/resumate-app/resumate/internal/notify"
	"github.com/resumate-app/resumate/internal/resume"
	"github.com/resumate-app/resumate/internal/store"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/auth"
	"github.com/resumate-app/resumate/internal/web/cache"
	"github.com/resumate-app/resumate/internal/web/jobs"
	"github.com/resumate-app/resumate/internal/web/ratelimit"
	"github.com/resumate-app/resumate/internal/web/websocket"
)

// purgeInterval is how often the scheduler queues a purge of finished jobs
const purgeInterval = 24 * time.Hour

// app holds the connections shared by serve and worker
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db     *sql.DB
	redis  *redis.Client
	cache  cache.Cache
	events events.Publisher
	blobs  *blob.S3

	queue    *jobs.Queue
	users    *store.UserStore
	notifier *notify.Notifier
	mailer   *mail.Mailer

	closers []io.Closer
}

// newApp opens the database and the optional Redis, AMQP and S3 backends
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db}

	cacheCfg := cache.CacheConfig{DefaultTTL: 5 * time.Minute, Prefix: cfg.Redis.Prefix}
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		a.cache = cache.NewRedisCacheWithClient(client, cacheCfg)
	} else {
		logger.Warn("redis not configured, using in-memory cache and rate limits")
		memory := cache.NewMemoryCache(cacheCfg)
		a.cache = memory
		a.closers = append(a.closers, memory)
	}

	if cfg.AMQP.URL != "" {
		publisher, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.events = publisher
	} else {
		a.events = events.Nop{}
	}

	if cfg.Storage.Bucket != "" {
		blobs, err := blob.NewS3(ctx, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.blobs = blobs
	} else {
		logger.Warn("object storage not configured, photo uploads are disabled")
	}

	a.queue = jobs.NewQueue(db)
	a.users = store.NewUserStore(db)
	a.notifier = notify.New(jobs.NewDispatcher(a.queue, cfg.Jobs.Queue, cfg.Jobs.MaxAttempts, logger))

	var sender mail.Sender = mail.LogSender{Logger: logger}
	if cfg.Mail.APIKey != "" {
		sender = mail.NewResend(cfg.Mail.BaseURL, cfg.Mail.APIKey)
	}
	a.mailer = mail.New(sender, mail.Config{From: cfg.Mail.From, BaseURL: cfg.Server.BaseURL})

	return a, nil
}

// services builds the application services behind the HTTP API
func (a *app) services(ctx context.Context, hub *websocket.Hub) (api.Services, error) {
	cfg := a.cfg
	tx := store.NewTxManager(a.db)
	resumes := store.NewResumeStore(a.db, tx)
	subs := store.NewSubscriptionStore(a.db, tx)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		a.logger.Warn("auth.jwt_secret not set, tokens will not survive a restart")
	}
	tokens := auth.NewTokenService(secret, cfg.Auth.TokenTTL)
	google := auth.NewGoogleProvider(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.GoogleRedirectURL)
	accounts := auth.NewService(a.users, store.NewTokenStore(a.db), a.notifier, tokens, google, a.cache,
		auth.ServiceConfig{FreeCredits: cfg.Billing.FreeCredits, VerificationTTL: cfg.Auth.VerificationTTL}, a.logger)

	var photos resume.Photos = disabledPhotos{}
	if a.blobs != nil {
		photos = a.blobs
	}
	resumeSvc := resume.NewService(resumes, subs, photos,
		resume.Config{FreeResumeLimit: cfg.Billing.FreeResumeLimit},
		resume.WithLogger(a.logger),
		resume.WithPhotoCleanup(a.notifier.DeleteBlob))

	completer, models, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return api.Services{}, err
	}
	assistant := ai.NewService(completer, models, ai.WithCache(a.cache, cfg.LLM.CacheTTL), ai.WithLogger(a.logger))

	billingSvc := billing.NewService(
		billing.NewRazorpay(cfg.Billing.GatewayURL, cfg.Billing.KeyID, cfg.Billing.KeySecret),
		subs, a.users, a.notifier, a.events,
		billing.Config{
			KeyID:         cfg.Billing.KeyID,
			KeySecret:     cfg.Billing.KeySecret,
			Currency:      cfg.Billing.Currency,
			MonthlyPrice:  cfg.Billing.MonthlyPrice,
			LifetimePrice: cfg.Billing.LifetimePrice,
		}, a.logger)

	return api.Services{
		Accounts:     accounts,
		Users:        a.users,
		Tokens:       tokens,
		Resumes:      resumeSvc,
		Assistant:    assistant,
		CoverLetters: coverletter.NewService(resumeSvc, store.NewCoverLetterStore(a.db), a.logger),
		Billing:      billingSvc,
		Jobs:         a.queue,
		DB:           a.db,
		Hub:          hub,
	}, nil
}

// apiConfig maps the server and rate limit settings onto the API
func (a *app) apiConfig() (api.Config, error) {
	authLimiter, err := a.limiter("auth", a.cfg.RateLimit.AuthPerMinute)
	if err != nil {
		return api.Config{}, err
	}
	aiLimiter, err := a.limiter("ai", a.cfg.RateLimit.AIPerMinute)
	if err != nil {
		return api.Config{}, err
	}
	return api.Config{
		Prefix:        a.cfg.Server.APIPrefix,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		AutosaveDelay: a.cfg.Autosave.Debounce,
		JobsQueue:     a.cfg.Jobs.Queue,
		Profiling:     a.cfg.Server.Profiling,
		AuthLimiter:   authLimiter,
		AILimiter:     aiLimiter,
	}, nil
}

// limiter returns nil when the budget is disabled
func (a *app) limiter(name string, perMinute int) (ratelimit.Limiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	l, err := ratelimit.New(a.redis, a.cfg.Redis.Prefix, ratelimit.PerMinute(name, perMinute))
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", name, err)
	}
	if c, ok := l.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	return l, nil
}

// workers builds the job pool with every notification handler registered
func (a *app) workers() *jobs.WorkerPool {
	pool := jobs.NewWorkerPool(a.queue, a.cfg.Jobs.Queue, a.cfg.Jobs.Workers, a.logger)
	h := &notify.Handlers{
		Mailer:     a.mailer,
		Users:      a.users,
		Jobs:       a.queue,
		PurgeAfter: a.cfg.Jobs.PurgeAfter,
		Logger:     a.logger,
	}
	if a.blobs != nil {
		h.Blobs = a.blobs
	}
	h.Register(pool)
	return pool
}

// scheduler queues the daily purge of finished jobs
func (a *app) scheduler() (*jobs.CronScheduler, error) {
	s := jobs.NewCronScheduler(a.queue, a.logger)
	if err := s.AddSchedule(jobs.ScheduleEvery(purgeInterval, a.cfg.Jobs.Queue, notify.TypePurge, nil)); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases every backend in reverse order of opening
func (a *app) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		keep(a.closers[i].Close())
	}
	if a.events != nil {
		keep(a.events.Close())
	}
	if a.redis != nil {
		keep(a.redis.Close())
	}
	keep(a.db.Close())
	return first
}

// disabledPhotos rejects uploads when no bucket is configured
type disabledPhotos struct{}

func (disabledPhotos) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", validation.Field("photo", "photo uploads are not enabled on this server")
}

func (disabledPhotos) Delete(context.Context, string) error { return nil }

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
