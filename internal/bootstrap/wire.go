package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/otp-auth/internal/application/auth"
	"github.com/baechuer/otp-auth/internal/audit"
	"github.com/baechuer/otp-auth/internal/config"
	"github.com/baechuer/otp-auth/internal/infrastructure/db/migrate"
	"github.com/baechuer/otp-auth/internal/infrastructure/db/postgres"
	"github.com/baechuer/otp-auth/internal/infrastructure/mail"
	"github.com/baechuer/otp-auth/internal/infrastructure/memory"
	"github.com/baechuer/otp-auth/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/otp-auth/internal/infrastructure/redis"
	"github.com/baechuer/otp-auth/internal/infrastructure/security"
	"github.com/baechuer/otp-auth/internal/logger"
	http_handlers "github.com/baechuer/otp-auth/internal/transport/http/handlers"
	"github.com/baechuer/otp-auth/internal/transport/http/middleware"
	"github.com/baechuer/otp-auth/internal/transport/http/response"
	"github.com/baechuer/otp-auth/internal/transport/http/router"
)

const jwtIssuer = "otp-auth"

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB   func(addr string, debug bool) (*sql.DB, error)
	Migrate func(dsn string) error

	NewRedis func(addr, password string, db int) *redis.Client

	// NewPublisher is used when NOTIFIER=rabbitmq.
	NewPublisher func(url, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	auth.Notifier
	Ping(ctx context.Context) error
	Close() error
}

type userStore interface {
	auth.UserRepo
	Ping(ctx context.Context) error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) user store
	var users userStore
	if cfg.UseMemoryStore() {
		logger.Logger.Warn().Msg("DB_ADDR not set; using in-memory user store")
		users = memory.NewUserRepo()
	} else {
		if cfg.DBAutoMigrate {
			if err := deps.Migrate(cfg.DBAddr); err != nil {
				return fail(fmt.Errorf("migrate: %w", err))
			}
			logger.Logger.Info().Msg("migrations applied")
		}

		db, err := deps.NewDB(cfg.DBAddr, cfg.Env == "dev")
		if err != nil {
			return fail(fmt.Errorf("db: %w", err))
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })
		users = postgres.NewUserRepo(db)
	}

	// 2) redis (best-effort)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limits")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 3) notifier
	notifier, notifierPing, err := newNotifier(cfg, deps)
	if err != nil {
		return fail(err)
	}
	if c, ok := notifier.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 4) security
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, jwtIssuer, cfg.SessionTTL)

	// seed (dev only)
	if cfg.Env == "dev" {
		postgres.SeedUsers(context.Background(), users, hasher)
	}

	// 5) service
	authSvc := auth.NewService(
		users,
		hasher,
		signer,
		notifier,
		mail.NewRenderer(cfg.SenderEmail, cfg.VerifyOTPTTL, cfg.ResetOTPTTL),
		auth.Config{
			VerifyOTPTTL: cfg.VerifyOTPTTL,
			ResetOTPTTL:  cfg.ResetOTPTTL,
		},
	)

	authSvc = authSvc.WithAudit(audit.New(logger.Logger).Record)

	// 6) handlers + middleware
	cookies := security.CookieConfig{Secure: cfg.SecureCookies(), TTL: cfg.SessionTTL}
	authH := http_handlers.NewAuthHandler(authSvc, cookies)
	userH := http_handlers.NewUserHandler(authSvc)

	checks := map[string]http_handlers.Pinger{"db": users}
	if redisCli != nil {
		checks["redis"] = redisCli
	}
	if notifierPing != nil {
		checks["notifier"] = notifierPing
	}
	healthH := http_handlers.NewHealthHandler(checks)

	// rate limit: redis when available (fail-open), in-process otherwise
	var limiter middleware.RateLimiter
	if redisCli != nil {
		limiter = redis.NewFixedWindowLimiter(redisCli)
	}
	rl := func(scope string, limit int) router.Middleware {
		c := middleware.FixedWindowConfig{Scope: scope, Limit: limit, Window: time.Minute}
		if limiter != nil {
			return middleware.RateLimitFixedWindow(limiter, c, response.WriteError)
		}
		return middleware.LocalRateLimit(c, response.WriteError)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Auth:   authH,
		User:   userH,

		SessionMW:         middleware.SessionGate(signer, response.WriteError),
		OptionalSessionMW: middleware.OptionalSession(signer),
		OriginMW:          middleware.OriginGuard(cfg.CORSAllowedOrigin, response.WriteError),
		CORSMW:            middleware.CORS(cfg.CORSAllowedOrigin),

		RegisterLimitMW: rl("auth.register", cfg.RegisterLimit),
		LoginLimitMW:    rl("auth.login", cfg.LoginLimit),
		OTPLimitMW:      rl("auth.otp", cfg.OTPLimit),

		Metrics: promhttp.Handler(),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// newNotifier picks the outgoing mail path. The returned pinger is nil when
// the notifier has no remote dependency to check.
func newNotifier(cfg *config.Config, deps Deps) (auth.Notifier, http_handlers.Pinger, error) {
	switch cfg.Notifier {
	case config.NotifierSMTP:
		s, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SenderEmail,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case config.NotifierRabbitMQ:
		pub, err := deps.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			if cfg.Env == "dev" {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; logging outgoing mail")
				return memory.NewLogNotifier(), nil, nil
			}
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return pub, pub, nil

	default:
		return memory.NewLogNotifier(), nil, nil
	}
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate: func(dsn string) error {
			return migrate.Run(dsn, "up")
		},
		NewRedis: redis.New,
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
