package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/expensio/expense-service/internal"
	"github.com/expensio/expense-service/internal/analytics"
	analyticsrepo "github.com/expensio/expense-service/internal/analytics/postgres"
	"github.com/expensio/expense-service/internal/auth"
	"github.com/expensio/expense-service/internal/category"
	categoryrepo "github.com/expensio/expense-service/internal/category/postgres"
	"github.com/expensio/expense-service/internal/core/access"
	"github.com/expensio/expense-service/internal/core/events"
	"github.com/expensio/expense-service/internal/expense"
	expenserepo "github.com/expensio/expense-service/internal/expense/postgres"
	"github.com/expensio/expense-service/internal/notification"
	"github.com/expensio/expense-service/internal/storage"
	"github.com/expensio/expense-service/internal/transport/rest"
	"github.com/expensio/expense-service/internal/user"
	userrepo "github.com/expensio/expense-service/internal/user/postgres"
	"github.com/expensio/expense-service/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	fileStore, err := storage.NewLocalFileStore(config.Storage.UploadDir, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	// Repositories
	userRepo := userrepo.NewUserRepository(gormDB)
	categoryRepo := categoryrepo.NewCategoryRepository(gormDB)
	expenseRepo := expenserepo.NewExpenseRepository(gormDB)
	analyticsRepo := analyticsrepo.NewAnalyticsRepository(gormDB)

	// Core
	evaluator := access.NewEvaluator(userRepo)
	bus := events.NewEventBus(lg)

	// Services
	userService := user.NewService(userRepo, evaluator, bus, lg)
	categoryService := category.NewService(categoryRepo, lg)
	expenseService := expense.NewService(expenseRepo, evaluator, userRepo, categoryService, fileStore, bus, lg)
	analyticsService := analytics.NewService(analyticsRepo, evaluator, lg)

	tokenGen := auth.NewJWTTokenGenerator(config.Security.AccessTokenSecret, config.Security.RefreshTokenSecret)
	authService := auth.NewService(userRepo, tokenGen, lg)

	// Notifications ride the event bus.
	notifier := notification.NewLogNotifier(lg)
	notification.NewEventHandler(notifier, userRepo, lg).Register(bus)

	// Handlers
	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(userService, func(r *http.Request) (*user.User, bool) {
		return auth.UserFromContext(r.Context())
	})
	categoryHandler := category.NewHandler(categoryService)
	expenseHandler := expense.NewHandler(expenseService, fileStore)
	analyticsHandler := analytics.NewHandler(analyticsService)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, authHandler, userHandler, categoryHandler, expenseHandler, analyticsHandler, lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
