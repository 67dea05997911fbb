package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"tasknova/internal/config"
	"tasknova/internal/handlers"
	"tasknova/internal/metrics"
	"tasknova/internal/repositories"
	"tasknova/internal/routes"
	"tasknova/internal/services"
)

const shutdownTimeout = 10 * time.Second

// App is the wired bot: storage, scheduler and HTTP router.
type App struct {
	cfg       *config.Config
	db        *sql.DB
	Router    *gin.Engine
	Scheduler *services.ReminderScheduler
	Telegram  *services.TelegramService
}

// Build opens storage and wires repos -> services -> handlers -> gin.
// Nothing is started yet.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	// === DB ===
	db, dialect, err := repositories.OpenDB(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	// === Repos ===
	taskRepo := repositories.NewTaskRepository(db, dialect)

	// === Services ===
	m := metrics.Default()

	tg, err := services.NewTelegramService(cfg.Telegram.Token, cfg.Telegram.APIEndpoint, &http.Client{Timeout: cfg.Reminders.SendTimeout})
	if err != nil {
		db.Close()
		return nil, err
	}

	gemini := services.NewGeminiService(cfg.Gemini, m)
	scheduler := services.NewReminderScheduler(taskRepo, tg, m, services.SchedulerConfig{
		CleanupSchedule: cfg.Reminders.CleanupSchedule,
		Retention:       cfg.Reminders.Retention(),
		SendTimeout:     cfg.Reminders.SendTimeout,
	})
	taskService := services.NewTaskService(taskRepo, gemini, scheduler, m, loc, cfg.Reminders.MaxPending())

	// === Handlers ===
	telegramHandler := handlers.NewTelegramHandler(taskService, tg, cfg.Telegram.WebhookSecret, m)
	taskHandler := handlers.NewTaskHandler(taskService)

	// === Gin ===
	router := gin.Default()
	router.Use(corsMiddleware())
	routes.SetupRoutes(router, telegramHandler, taskHandler, []byte(cfg.Auth.JWTSecret))

	return &App{cfg: cfg, db: db, Router: router, Scheduler: scheduler, Telegram: tg}, nil
}

// Start arms the scheduler and reloads pending reminders from storage.
func (a *App) Start(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	if _, err := a.Scheduler.Recover(ctx); err != nil {
		return err
	}
	if a.cfg.Telegram.WebhookURL != "" {
		if err := a.Telegram.SetWebhook(a.cfg.Telegram.WebhookURL, a.cfg.Telegram.WebhookSecret); err != nil {
			// the bot still works if the webhook was registered earlier
			log.Printf("[app][webhook][err] %v", err)
		}
	}
	return nil
}

// Close stops the scheduler and releases the database.
func (a *App) Close() error {
	a.Scheduler.Stop()
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config) error {
	a, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("[app][close][err] %v", err)
		}
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[app] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Printf("[app] shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
