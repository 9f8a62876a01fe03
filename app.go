package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smooth/internal/config"
	"smooth/internal/handlers"
	"smooth/internal/middleware"
	"smooth/internal/models"
	"smooth/internal/repositories"
	"smooth/internal/services"
	"smooth/internal/store"
	"smooth/internal/validation"
	"smooth/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// App is the wired application: the fiber server plus everything that must
// be released on shutdown.
type App struct {
	Fiber  *fiber.App
	cfg    config.Config
	logger *zap.Logger

	cancel  context.CancelFunc
	closers []func() error
}

// NewApp builds the stores, repositories, services and routes selected by cfg.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cfg: cfg, logger: logger, cancel: cancel}
	if err := a.wire(ctx); err != nil {
		_ = a.Shutdown()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	var db *gorm.DB
	if cfg.NeedsDatabase() {
		var err error
		if db, err = openDatabase(cfg); err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
	}

	var events services.EventPublisher
	eventsStatus := "disabled"
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, mq.Close)
		if err := mq.ConsumeRecordEvents(rabbitmq.LogRecordEvent(logger.Named("audit"))); err != nil {
			logger.Warn("record event consumer not started", zap.Error(err))
		}
		events, eventsStatus = mq, "connected"
	}

	provider, err := identityProvider(cfg, db)
	if err != nil {
		return err
	}
	authService := services.NewAuthService(provider, cfg.JWTSecret, cfg.TokenTTL, logger)

	app := fiber.New(fiber.Config{AppName: "smooth"})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	a.Fiber = app

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": eventsStatus,
		})
	})

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService, logger))
	handlers.NewMaskHandler().RegisterRoutes(protected)

	var tree store.TreeStore
	if cfg.UsesTree() {
		if tree, err = treeStore(cfg, db, logger); err != nil {
			return err
		}
	}

	m := mounter{app: a, router: protected, tree: tree, validate: validation.New(), events: events}
	return errors.Join(
		mount(ctx, m, services.ProductSchema(), cfg.ProductsBackend),
		mount(ctx, m, services.SupplierSchema(), cfg.SuppliersBackend),
		mount(ctx, m, services.ReviewSchema(), cfg.ReviewsBackend),
	)
}

type mounter struct {
	app      *App
	router   fiber.Router
	tree     store.TreeStore
	validate *validation.Validator
	events   services.EventPublisher
}

// mount binds one entity's list to its backend and registers its routes.
func mount[T any](ctx context.Context, m mounter, schema *services.Schema[T], backend string) error {
	cfg, logger := m.app.cfg, m.app.logger.With(zap.String("entity", schema.Entity))

	var repo repositories.RecordRepository[T]
	switch backend {
	case config.BackendRest:
		coll, err := store.NewRestCollection(cfg.RestBaseURL, schema.Collection, cfg.HTTPTimeout)
		if err != nil {
			return err
		}
		repo = repositories.NewRestRepository[T](coll, logger)
	default:
		repo = repositories.NewTreeRepository[T](m.tree, schema.Collection, logger)
	}

	list := services.NewListBinder[T]()
	unsubscribe, err := list.Bind(ctx, repo)
	if err != nil {
		// The list stays in its loading state until the next refresh.
		logger.Warn("initial list load failed", zap.Error(err))
	}
	if unsubscribe != nil {
		m.app.closers = append(m.app.closers, func() error { unsubscribe(); return nil })
	}

	service := services.NewFormService(schema, repo, list, m.validate, m.events, logger)
	handlers.NewFormHandler(service, logger).RegisterRoutes(m.router, "/"+schema.Collection)
	logger.Info("entity mounted", zap.String("backend", backend), zap.Stringer("mode", repo.UpdateMode()))
	return nil
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.DatabaseDriver, err)
	}
	return db, nil
}

func identityProvider(cfg config.Config, db *gorm.DB) (services.IdentityProvider, error) {
	if cfg.IdentityProvider == "firebase" {
		return services.NewFirebaseIdentityProvider(cfg.FirebaseAuthURL, cfg.FirebaseAPIKey, cfg.HTTPTimeout)
	}
	users, err := repositories.NewGORMUserRepository(db)
	if err != nil {
		return nil, err
	}
	return services.NewLocalIdentityProvider(users), nil
}

func treeStore(cfg config.Config, db *gorm.DB, logger *zap.Logger) (store.TreeStore, error) {
	switch cfg.TreeDriver {
	case "database":
		return store.NewGormTree(db, logger)
	case "firebase":
		return store.NewFirebaseTree(store.FirebaseConfig{
			DatabaseURL: cfg.FirebaseDatabaseURL,
			Auth:        cfg.FirebaseAuth,
			Timeout:     cfg.HTTPTimeout,
		}, logger)
	default:
		return store.NewMemoryTree(), nil
	}
}

// Listen serves HTTP on the configured port until Shutdown.
func (a *App) Listen() error {
	a.logger.Info("starting server", zap.String("port", a.cfg.AppPort))
	return a.Fiber.Listen(a.cfg.AppPort)
}

// Shutdown stops the server, the list subscriptions and the connections, in
// that order.
func (a *App) Shutdown() error {
	var errs []error
	if a.Fiber != nil {
		if err := a.Fiber.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
		}
	}
	a.cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// compile-time checks of the wiring above.
var (
	_ store.TreeStore                              = (*store.FirebaseTree)(nil)
	_ store.TreeStore                              = (*store.GormTree)(nil)
	_ repositories.RecordRepository[models.Review] = (*repositories.RestRepository[models.Review])(nil)
	_ services.EventPublisher                      = (*rabbitmq.Client)(nil)
)
