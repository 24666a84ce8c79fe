package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/emsdesk/apiserver/config"
	"github.com/emsdesk/apiserver/internal/auth"
	"github.com/emsdesk/apiserver/internal/billing"
	"github.com/emsdesk/apiserver/internal/db"
	"github.com/emsdesk/apiserver/internal/handlers"
	"github.com/emsdesk/apiserver/internal/mq"
	"github.com/emsdesk/apiserver/internal/services"
	"github.com/emsdesk/apiserver/internal/storage"
	"github.com/emsdesk/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *db.DB
	mq         *mq.MQ
	closers    []func()
	logger     *slog.Logger
}

type options struct {
	verifier handlers.TokenVerifier
	logger   *slog.Logger
}

// Option customises server construction.
type Option func(*options)

// WithTokenVerifier replaces the Firebase token verifier.
func WithTokenVerifier(v handlers.TokenVerifier) Option {
	return func(o *options) { o.verifier = v }
}

// WithLogger sets the logger used for startup and request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New constructs a Server with its dependencies, basic middleware and routes.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Server, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	if cfg.RunMigrations {
		if err := db.MigrateUp(cfg); err != nil {
			return nil, err
		}
		logger.Info("migrations applied", "dir", cfg.MigrationsDir)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{db: dbConn, logger: logger}

	verifier := o.verifier
	if verifier == nil {
		fv, err := auth.NewFirebaseVerifier(cfg.Firebase, logger)
		if err != nil {
			s.Shutdown(context.Background())
			return nil, err
		}
		s.closers = append(s.closers, fv.Close)
		verifier = fv
	}

	var publisher services.Publisher
	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		s.Shutdown(context.Background())
		return nil, fmt.Errorf("connect %s: %w", cfg.MQ.Backend, err)
	}
	if broker != nil {
		s.mq = broker
		publisher = broker
		logger.Info("publishing events", "backend", cfg.MQ.Backend)
	}

	var assets services.AssetStore
	objects, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		s.Shutdown(context.Background())
		return nil, err
	}
	if objects != nil {
		assets = objects
		logger.Info("asset storage ready", "backend", cfg.Storage.Backend, "bucket", objects.Bucket())
	}

	var gateway services.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		sg, err := billing.NewStripeGateway(cfg.Stripe)
		if err != nil {
			s.Shutdown(context.Background())
			return nil, err
		}
		gateway = sg
	}

	userRepo := store.NewUserRepository(dbConn.Collection(store.UsersCollection))
	workRepo := store.NewWorkRepository(dbConn.Collection(store.WorksCollection))
	payrollRepo := store.NewPayrollRepository(dbConn.Collection(store.PayrollCollection))
	paymentRepo := store.NewPaymentRepository(dbConn.Collection(store.PaymentsCollection))
	contentRepo := store.NewContentRepository(dbConn.Collection(store.ContentCollection))

	events := services.NewEvents(publisher, logger)
	userService := services.NewUserService(userRepo, events)
	workService := services.NewWorkService(workRepo)
	payrollService := services.NewPayrollService(payrollRepo, userRepo, paymentRepo, events)
	paymentService := services.NewPaymentService(paymentRepo, gateway, cfg.Stripe.Currency)
	contentService := services.NewContentService(contentRepo, assets)

	authMiddleware := handlers.RequireAuth(verifier)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
			NoColor: true,
		}),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/readyz", handlers.Readyz(dbConn.Ping))
	router.With(authMiddleware).Get("/me", handlers.Me)
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/works", func(r chi.Router) {
		handlers.WorkRouter(r, workService)
	})
	router.Route("/payroll", func(r chi.Router) {
		handlers.PayrollRouter(r, payrollService, authMiddleware)
	})
	router.Route("/payments", func(r chi.Router) {
		handlers.PaymentRouter(r, paymentService, payrollService, authMiddleware)
	})
	router.Route("/content", func(r chi.Router) {
		handlers.ContentRouter(r, contentService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases every dependency.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, closeFn := range s.closers {
		closeFn()
	}
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
