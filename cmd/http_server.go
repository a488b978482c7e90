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

	"github.com/studymatch/backend/internal"
	auditsvc "github.com/studymatch/backend/internal/audit"
	auditpg "github.com/studymatch/backend/internal/audit/postgres"
	"github.com/studymatch/backend/internal/auth"
	authpg "github.com/studymatch/backend/internal/auth/postgres"
	"github.com/studymatch/backend/internal/core/events"
	"github.com/studymatch/backend/internal/mailer"
	"github.com/studymatch/backend/internal/matcher"
	"github.com/studymatch/backend/internal/permission"
	permissionpg "github.com/studymatch/backend/internal/permission/postgres"
	"github.com/studymatch/backend/internal/transport/rest"
	"github.com/studymatch/backend/internal/user"
	userpg "github.com/studymatch/backend/internal/user/postgres"
	"github.com/studymatch/backend/pkg/logger"
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
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
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
	cfg, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.L()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	bus := events.NewEventBus(log)

	auditRecorder := auditsvc.NewRecorder(auditpg.NewRepository(gormDB), log)
	auditRecorder.Register(bus)

	userRepo := userpg.NewRepository(gormDB)
	sessionRepo := authpg.NewSessionRepository(gormDB)
	resetRepo := userpg.NewResetTokenRepository(gormDB)
	statsRepo := userpg.NewStatsRepository(db)
	permissionRepo := permissionpg.NewRepository(gormDB)

	tokenGen := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.TokenTTL())
	authService := auth.NewService(userRepo, sessionRepo, tokenGen, bus, log)

	var mail mailer.Sender
	if cfg.Mail.DevMode || cfg.Mail.SMTPHost == "" {
		mail = mailer.NewLogSender(log)
	} else {
		mail = mailer.NewSMTPSender(cfg.Mail)
	}

	userService := user.NewService(
		userRepo, resetRepo, statsRepo, sessionRepo, mail, bus, log,
		cfg.Security.BCryptCost, cfg.Server.FrontendURL)
	permissionService := permission.NewService(permissionRepo, userRepo, bus, log)
	scorer := matcher.NewClient(cfg.Matcher, log)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		cfg,
		auth.NewHandler(authService),
		auth.NewGate(log),
		user.NewHandler(userService),
		permission.NewHandler(permissionService),
		matcher.NewHandler(scorer),
		log,
	)

	return &Dependencies{
		Config: cfg,
		DB:     db,
		Router: router,
		Logger: log,
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
	if cfg.ConnMaxLifetime > 0 {
		dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
