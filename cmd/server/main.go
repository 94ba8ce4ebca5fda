package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/authgate/handler"
	"github.com/dmitrymomot/authgate/modules/account"
	"github.com/dmitrymomot/authgate/modules/account/views"
	"github.com/dmitrymomot/authgate/pkg/authsession"
	"github.com/dmitrymomot/authgate/pkg/clientip"
	"github.com/dmitrymomot/authgate/pkg/config"
	"github.com/dmitrymomot/authgate/pkg/cookie"
	"github.com/dmitrymomot/authgate/pkg/environment"
	"github.com/dmitrymomot/authgate/pkg/httpserver"
	"github.com/dmitrymomot/authgate/pkg/identity"
	"github.com/dmitrymomot/authgate/pkg/identity/appwrite"
	"github.com/dmitrymomot/authgate/pkg/identity/memory"
	"github.com/dmitrymomot/authgate/pkg/logger"
	"github.com/dmitrymomot/authgate/pkg/metrics"
	"github.com/dmitrymomot/authgate/pkg/ratelimiter"
	"github.com/dmitrymomot/authgate/pkg/redis"
	"github.com/dmitrymomot/authgate/pkg/session"
)

type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	AppName string `env:"APP_NAME" envDefault:"authgate"`

	// IdentityDriver selects the identity backend: "appwrite" or "memory".
	IdentityDriver string `env:"IDENTITY_DRIVER" envDefault:"appwrite"`

	ManagerIdleTTL time.Duration `env:"AUTH_MANAGER_IDLE_TTL" envDefault:"30m"`

	FormRateLimit  int           `env:"FORM_RATE_LIMIT" envDefault:"10"`
	FormRateWindow time.Duration `env:"FORM_RATE_WINDOW" envDefault:"1m"`

	HTTP     httpserver.Config
	Cookie   cookie.Config
	Session  session.Config
	Redis    redis.Config
	Appwrite appwrite.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.AppName),
		logger.WithContextExtractors(
			environment.LoggerExtractor(),
			session.LoggerExtractor(),
			clientip.LoggerExtractor(),
			requestIDExtractor,
		),
	)
	logger.SetAsDefault(log)

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return err
	}

	var checks []httpserver.Check
	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		store = session.NewRedisStore(client)
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	case "memory", "":
		mem := session.NewMemoryStore(cfg.Session.CleanupInterval)
		defer mem.Close()
		store = mem
	default:
		return fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
	sessions := session.NewFromConfig(cfg.Session, store, cookies, session.WithLogger(log))

	factory, err := identityFactory(cfg, log)
	if err != nil {
		return err
	}

	collector := metrics.New(cfg.AppName)

	registry := authsession.NewRegistry(factory,
		authsession.WithIdleTTL(cfg.ManagerIdleTTL),
		authsession.WithRegistryLogger(log),
		authsession.WithManagerOptions(
			authsession.WithLogger(log),
			authsession.WithNavigator(account.Navigator()),
			authsession.WithObserver(collector),
		),
	)
	collector.TrackManagers(registry.Len)

	limiterStore := ratelimiter.NewMemoryStore()
	defer limiterStore.Close()
	formLimiter, err := ratelimiter.NewBucket(limiterStore, ratelimiter.Config{
		Capacity:       cfg.FormRateLimit,
		RefillRate:     cfg.FormRateLimit,
		RefillInterval: cfg.FormRateWindow,
	})
	if err != nil {
		return err
	}

	errorHandler := handler.NewErrorHandler(log, handler.ErrorHandlerConfig{
		ErrorPage:  views.ErrorPage,
		ErrorToast: views.ErrorToast,
	})

	accounts := account.NewService(registry, sessions, cookies, views.Default(),
		account.WithErrorHandler(errorHandler),
		account.WithFormLimiter(formLimiter),
		account.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		clientip.New().Middleware,
		middleware.Recoverer,
		environment.Middleware(environment.Parse(cfg.Env)),
		collector.Middleware,
	)
	r.Get("/livez", httpserver.LivenessHandler())
	r.Get("/healthz", httpserver.ReadinessHandler(log, checks...))
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		r.Mount("/", accounts.Handle())
	})

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(l *slog.Logger) {
			registry.Close()
			l.Info("auth session managers released")
		}),
	)
	return srv.Run(ctx, r)
}

func identityFactory(cfg Config, log *slog.Logger) (identity.Factory, error) {
	switch cfg.IdentityDriver {
	case "appwrite":
		if cfg.Appwrite.ProjectID == "" {
			return nil, fmt.Errorf("APPWRITE_PROJECT_ID is required for the appwrite identity driver")
		}
		return appwrite.NewFactory(cfg.Appwrite, appwrite.WithLogger(log)), nil
	case "memory":
		if environment.Parse(cfg.Env) == environment.Production {
			log.Warn("in-memory identity backend in production; accounts are lost on restart")
		}
		limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
			Capacity:       5,
			RefillRate:     1,
			RefillInterval: 10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return memory.NewStore(memory.WithLoginLimiter(limiter), memory.WithLogger(log)).Factory(), nil
	default:
		return nil, fmt.Errorf("unknown identity driver %q", cfg.IdentityDriver)
	}
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.RequestID(id), true
	}
	return slog.Attr{}, false
}
