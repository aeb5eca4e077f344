package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"achievement-service/internal/achievement"
	"achievement-service/internal/auth"
	"achievement-service/internal/cache"
	"achievement-service/internal/config"
	"achievement-service/internal/db"
	"achievement-service/internal/event"
	"achievement-service/internal/events"
	"achievement-service/internal/health"
	"achievement-service/internal/kafka"
	"achievement-service/internal/logger"
	"achievement-service/internal/messaging"
	"achievement-service/internal/middleware"
	"achievement-service/internal/notice"
	"achievement-service/internal/notification"
	"achievement-service/internal/portfolio"
	"achievement-service/internal/report"
	"achievement-service/internal/schema"
	"achievement-service/internal/telemetry"
	"achievement-service/internal/upload"
	"achievement-service/internal/user"
	"achievement-service/internal/verification"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config     *config.Config
	router     chi.Router
	server     *http.Server
	logger     *slog.Logger
	db         *bun.DB
	redis      *redis.Client
	telemetry  *telemetry.Telemetry
	publisher  *events.Publisher
	dispatcher *notification.Dispatcher
}

// New loads configuration, connects every dependency and builds the router.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.WithService(logger.New(cfg.Env), ServiceName, Version, cfg.Env)
	slog.SetDefault(log)
	log.Info("initializing application", "commit", GitCommit, "built", BuildTime)

	// Everything that can fail without a connection is built first.
	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.AccessTTLMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}
	proofs, err := upload.NewDiskStore(upload.Config{
		Dir:        cfg.Upload.Dir,
		PublicPath: cfg.Upload.PublicPath,
		MaxSize:    cfg.Upload.MaxFileSize,
		MaxFiles:   cfg.Upload.MaxFiles,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upload dir: %w", err)
	}

	tel, err := telemetry.Init(ctx, cfg.Telemetry, ServiceName, Version, cfg.Env, log)
	if err != nil {
		return nil, err
	}
	m := tel.Metrics

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect database: %w", err), tel.Shutdown(ctx))
	}
	if err := m.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
		log.Warn("failed to register db pool metrics", "error", err)
	}
	if err := schema.Migrate(ctx, database); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to run migrations: %w", err), database.Close(), tel.Shutdown(ctx))
	}

	a := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		logger:    log,
		db:        database,
		telemetry: tel,
	}

	var reportCache *cache.JSON
	var limiter *middleware.RateLimiter
	if cfg.Redis.Addr != "" {
		a.redis = cache.NewRedis(cfg.Redis)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, cache and rate limits degrade until it recovers", "addr", cfg.Redis.Addr, "error", err)
		}
		reportCache = cache.NewJSON(a.redis, "report:")
		limiter = middleware.NewRateLimiter(a.redis, cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second, log)
	}

	a.dispatcher = notification.NewDispatcher(newSender(cfg.Email, log), notification.DispatcherConfig{
		Workers:   cfg.Email.Workers,
		QueueSize: cfg.Email.QueueSize,
	}, log, m)

	sink, eventsPing := newSink(cfg.Events, log)
	a.publisher = events.NewPublisher(sink, 0, log, m)

	queryTimeout := cfg.Database.QueryTimeoutDuration()
	var rc report.Cache
	if reportCache != nil {
		rc = reportCache
	}
	invalidator := report.NewInvalidator(rc, log)

	userRepo := user.NewRepository(database, m)
	achievementRepo := achievement.NewRepository(database, m)

	authService := auth.NewService(auth.NewRepository(database, m), userRepo, issuer, a.dispatcher, auth.Config{
		RefreshTTL:   time.Duration(cfg.Auth.RefreshTTLHours) * time.Hour,
		QueryTimeout: queryTimeout,
		ResetURL:     cfg.Auth.PasswordResetURL,
		BcryptCost:   cfg.Auth.BcryptCost,
	}, log, m)

	achievementService := achievement.NewService(achievementRepo, proofs, a.publisher, invalidator, queryTimeout, log, m)
	verificationService := verification.NewService(verification.NewRepository(database, m), achievementRepo, userRepo, a.dispatcher, a.publisher, invalidator, queryTimeout, log, m)
	reportService := report.NewService(report.NewRepository(database, m), achievementService, userRepo, rc, cfg.Report.CacheTTL(), queryTimeout, log)
	portfolioService := portfolio.NewService(userRepo, achievementRepo, queryTimeout, log, m)
	noticeService := notice.NewService(notice.NewRepository(database, m), userRepo, a.dispatcher, queryTimeout, log, m)
	eventService := event.NewService(event.NewRepository(database, m), userRepo, a.dispatcher, queryTimeout, log)

	authHandler := auth.NewHandler(authService, log, cfg.SecureCookies())
	achievementHandler := achievement.NewHandler(achievementService, log, proofs.MaxBody())
	verificationHandler := verification.NewHandler(verificationService, log)
	reportHandler := report.NewHandler(reportService, log)
	portfolioHandler := portfolio.NewHandler(portfolioService, log)
	noticeHandler := notice.NewHandler(noticeService, log)
	eventHandler := event.NewHandler(eventService, log)

	deps := map[string]health.Pinger{"postgres": health.PingFunc(database.PingContext)}
	if reportCache != nil {
		deps["redis"] = reportCache
	}
	if eventsPing != nil {
		deps["events"] = eventsPing
	}
	healthHandler := health.NewHandler(deps, Version, log, m)

	a.router.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	a.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthHandler.RegisterRoutes(a.router)
	proofs.RegisterRoutes(a.router)

	a.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			authHandler.RegisterRoutes(r)
		})
		portfolioHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(authService, log))
			authHandler.RegisterProtectedRoutes(r)
			achievementHandler.RegisterRoutes(r)
			verificationHandler.RegisterRoutes(r)
			reportHandler.RegisterRoutes(r)
			noticeHandler.RegisterRoutes(r)
			eventHandler.RegisterRoutes(r)
		})
	})

	log.Info("application initialized successfully")
	return a, nil
}

func newSender(cfg config.EmailConfig, log *slog.Logger) notification.Sender {
	if cfg.SendgridAPIKey == "" {
		log.Warn("no sendgrid api key, emails are written to the log")
		return notification.NewConsoleSender(log)
	}
	return notification.NewSendgridSender(cfg.SendgridAPIKey, cfg.AppName, cfg.FromEmail)
}

// newSink picks the event broker. A broker that cannot be reached disables
// event publishing instead of failing startup.
func newSink(cfg config.EventsConfig, log *slog.Logger) (events.Sink, health.Pinger) {
	switch cfg.Driver {
	case "nats":
		p, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			log.Warn("failed to initialize NATS producer, events disabled", "error", err)
			return nil, nil
		}
		log.Info("NATS producer initialized successfully")
		return p, p
	case "kafka":
		p, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Warn("failed to initialize Kafka producer, events disabled", "error", err)
			return nil, nil
		}
		log.Info("Kafka producer initialized successfully")
		return p, nil
	default:
		log.Info("event publishing disabled", "driver", cfg.Driver)
		return nil, nil
	}
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains background work before
// closing connections.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	errs = append(errs, a.publisher.Close())
	errs = append(errs, a.dispatcher.Close(ctx))
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	errs = append(errs, a.telemetry.Shutdown(ctx))
	return errors.Join(errs...)
}
