package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agribuddy/internal/config"
	"agribuddy/internal/database"
	"agribuddy/internal/handlers"
	"agribuddy/internal/middleware"
	"agribuddy/internal/repositories"
	"agribuddy/internal/services"
	"agribuddy/pkg/gemini"
	"agribuddy/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// App owns the HTTP server and the resources behind it.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	http   *fiber.App
	db     *database.Provider // nil with the memory driver
	mq     *rabbitmq.Client   // nil when events are disabled
}

// New builds every service once and wires them into the HTTP routes.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	var events services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue}, log)
		if err != nil {
			log.Warn("user events disabled: RabbitMQ unavailable", "error", err)
		} else {
			a.mq = mq
			events = mq
		}
	}

	var generator services.ContentGenerator
	if cfg.Gemini.APIKey != "" {
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			TextModel:   cfg.Gemini.ChatModel,
			VisionModel: cfg.Gemini.VisionModel,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		generator = client
	} else {
		log.Warn("GEMINI_API_KEY not set; advisory endpoints will return 503")
	}

	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := services.NewAuthService(store, log,
		services.WithBcryptCost(cfg.Auth.BcryptCost),
		services.WithTokens(tokens),
		services.WithEvents(events),
	)
	advisoryService := services.NewAdvisoryService(generator, log)
	cropService := services.NewCropService(generator, cfg.Gemini.StructuredOutput, log)

	a.http = fiber.New(fiber.Config{
		AppName:      "agribuddy",
		ErrorHandler: handlers.ErrorHandler(log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    bodyLimit(cfg.Server.UploadMaxBytes),
	})

	a.http.Use(recover.New())
	a.http.Use(requestid.New())
	if cfg.Server.AccessLog {
		a.http.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	a.http.Use(cors.New(cors.Config{AllowOrigins: cfg.Server.AllowOrigins}))

	var userScoped []fiber.Handler
	if cfg.Auth.Enforce {
		userScoped = append(userScoped, middleware.AuthRequired(tokens, log))
	}
	handlers.NewAuthHandler(authService, log).RegisterRoutes(a.http, userScoped...)
	handlers.NewAdvisoryHandler(advisoryService, cropService, int64(cfg.Server.UploadMaxBytes)).RegisterRoutes(a.http)
	a.http.Get("/health", a.handleHealth)

	if a.mq != nil && cfg.RabbitMQ.Consume {
		if err := a.mq.ConsumeUserEvents(rabbitmq.AuditHandler(log)); err != nil {
			log.Warn("failed to start user event consumer", "error", err)
		}
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repositories.UserStore, error) {
	if a.cfg.Database.Driver == config.DriverMemory {
		a.logger.Warn("using in-memory user store; data is lost on restart")
		return repositories.NewMemoryUserStore(), nil
	}

	db, err := database.Open(a.cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	a.logger.Info("credential store ready", "target", a.cfg.Database.Redacted())
	return repositories.NewGORMUserStore(db), nil
}

// Fiber exposes the HTTP app, mainly for tests.
func (a *App) Fiber() *fiber.App {
	return a.http
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	resp := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": "memory",
		"events":   "disabled",
	}
	if a.db != nil {
		resp["database"] = "up"
		if err := a.db.Ping(c.UserContext()); err != nil {
			resp["database"] = "down"
			resp["status"] = "degraded"
			status = fiber.StatusServiceUnavailable
		}
	}
	if a.mq != nil {
		resp["events"] = "enabled"
	}
	return c.Status(status).JSON(resp)
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "addr", a.cfg.Server.Port)
		errCh <- a.http.Listen(a.cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	if err := a.http.ShutdownWithTimeout(a.cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return nil
}

// Close releases the store and broker connections.
func (a *App) Close() error {
	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// bodyLimit leaves room for multipart overhead around the largest upload.
func bodyLimit(uploadMaxBytes int) int {
	const minLimit = 4 << 20
	if limit := uploadMaxBytes + 1<<20; limit > minLimit {
		return limit
	}
	return minLimit
}
