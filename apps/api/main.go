package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	accountshandler "github.com/sciencegate/registration-portal/domains/accounts/be/handler"
	accountsrepo "github.com/sciencegate/registration-portal/domains/accounts/be/repo"
	accountsservice "github.com/sciencegate/registration-portal/domains/accounts/be/service"
	identityhandler "github.com/sciencegate/registration-portal/domains/identity/be/handler"
	registrationshandler "github.com/sciencegate/registration-portal/domains/registrations/be/handler"
	registrationsrepo "github.com/sciencegate/registration-portal/domains/registrations/be/repo"
	registrationsservice "github.com/sciencegate/registration-portal/domains/registrations/be/service"
	platformauth "github.com/sciencegate/registration-portal/platform/go/auth"
	platformlogging "github.com/sciencegate/registration-portal/platform/go/logging"
	platformmiddleware "github.com/sciencegate/registration-portal/platform/go/middleware"
	"github.com/sciencegate/registration-portal/platform/go/notify"
	"github.com/sciencegate/registration-portal/platform/go/orcid"
	"github.com/sciencegate/registration-portal/platform/go/persistence"
	"github.com/sciencegate/registration-portal/platform/go/prefill"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	JWTSecret       string        `env:"JWT_SECRET,required"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	ORCID orcid.Config
	Mail  notify.MailConfig
	Redis prefill.RedisConfig
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	accountStore, err := persistence.NewAccountStore(pool)
	if err != nil {
		logger.Fatal("init account store", zap.Error(err))
	}

	registrationStore, err := persistence.NewRegistrationStore(pool)
	if err != nil {
		logger.Fatal("init registration store", zap.Error(err))
	}

	prefillCache := buildPrefillCache(ctx, cfg, logger)
	notifier := notify.NewMailer(cfg.Mail, logger)
	orcidClient := orcid.New(cfg.ORCID, logger)

	accountRepo := accountsrepo.NewPostgresRepository(accountStore)
	accountService := accountsservice.New(accountRepo, []byte(cfg.JWTSecret), cfg.SessionTTL, logger)
	accountHTTPHandler := accountshandler.New(accountService, logger)

	registrationRepo := registrationsrepo.NewPostgresRepository(registrationStore)
	registrationService := registrationsservice.New(registrationRepo, notifier, prefillCache, logger)
	registrationHTTPHandler := registrationshandler.New(registrationService, logger)

	identityHTTPHandler := identityhandler.New(orcidClient, prefillCache, logger)

	authMiddleware := platformauth.JWT(platformauth.SessionTokenVerifier([]byte(cfg.JWTSecret)))

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, logger)

	specValidator := mustNewSpecValidator(logger, "contracts/registration.yaml")

	apiRouter := chi.NewRouter()
	apiRouter.Use(specValidator)
	apiRouter.Use(authMiddleware)
	apiRouter.Use(platformmiddleware.RequestActor)

	apiRouter.Post("/auth/login", accountHTTPHandler.Login)
	apiRouter.Post("/auth/register", registrationHTTPHandler.Register)
	apiRouter.Mount("/identity", identityHTTPHandler.Routes())
	apiRouter.Mount("/profile", registrationHTTPHandler.ProfileRoutes())
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireRole("admin"))
		r.Mount("/admin/registrations", registrationHTTPHandler.AdminRoutes())
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildPrefillCache selects the pre-fill backend: redis when REDIS_URL is
// set, otherwise a process-local cache for single-node deployments.
func buildPrefillCache(ctx context.Context, cfg config, logger *zap.Logger) prefill.Cache {
	if strings.TrimSpace(cfg.Redis.URL) == "" {
		logger.Warn("REDIS_URL not set; using in-memory prefill cache")
		return prefill.NewMemoryCache(cfg.Redis.TTL)
	}

	cache, err := prefill.NewRedisCache(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("init redis prefill cache", zap.Error(err))
	}
	return cache
}

// mustNewSpecValidator loads the OpenAPI document and builds validator
// middleware so every request is checked against the published contract.
func mustNewSpecValidator(logger *zap.Logger, path string) func(http.Handler) http.Handler {
	spec := mustLoadSpec(logger, path)

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: platformmiddleware.ValidateAuthenticationViaSwagger,
		},
	})
}

// mustLoadSpec loads and returns the OpenAPI document for validation and docs serving.
func mustLoadSpec(logger *zap.Logger, path string) *openapi3.T {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	absPath, err := filepath.Abs(path)
	if err != nil {
		logger.Fatal("resolve spec path", zap.String("path", path), zap.Error(err))
	}

	baseDir := filepath.Dir(absPath)
	loader.ReadFromURIFunc = func(loader *openapi3.Loader, ref *url.URL) ([]byte, error) {
		if ref == nil {
			return nil, errors.New("nil reference URI")
		}
		if ref.IsAbs() {
			switch ref.Scheme {
			case "file":
				data, err := os.ReadFile(ref.Path)
				if err != nil {
					return nil, fmt.Errorf("read reference %q: %w", ref.Path, err)
				}
				return data, nil
			default:
				return nil, fmt.Errorf("unsupported reference scheme %q", ref.String())
			}
		}
		refPath := filepath.Clean(ref.Path)
		if refPath == "" {
			return nil, fmt.Errorf("empty reference path for %q", ref.String())
		}
		candidate := filepath.Join(baseDir, refPath)
		data, err := os.ReadFile(candidate)
		if err != nil {
			return nil, fmt.Errorf("read reference %q: %w", candidate, err)
		}
		return data, nil
	}

	spec, err := loader.LoadFromFile(absPath)
	if err != nil {
		logger.Fatal("load openapi spec", zap.String("path", path), zap.Error(err))
	}

	logSecuritySchemes(logger, path, spec)
	return spec
}

func logSecuritySchemes(logger *zap.Logger, path string, spec *openapi3.T) {
	if spec.Components.SecuritySchemes == nil {
		spec.Components.SecuritySchemes = openapi3.SecuritySchemes{}
	}

	if _, ok := spec.Components.SecuritySchemes["bearerAuth"]; !ok {
		spec.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:   "http",
				Scheme: "bearer",
			},
		}
		logger.Warn("injecting default bearerAuth security scheme", zap.String("path", path))
	}

	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for name := range spec.Components.SecuritySchemes {
		names = append(names, name)
	}
	logger.Info("loaded security schemes", zap.String("path", path), zap.Strings("names", names))
}
