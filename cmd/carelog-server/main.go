package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carelog/carelog/internal/config"
	"github.com/carelog/carelog/internal/domain/authorization"
	"github.com/carelog/carelog/internal/domain/client"
	"github.com/carelog/carelog/internal/domain/credential"
	"github.com/carelog/carelog/internal/domain/scheduling"
	"github.com/carelog/carelog/internal/domain/shift"
	"github.com/carelog/carelog/internal/platform/audit"
	"github.com/carelog/carelog/internal/platform/auth"
	"github.com/carelog/carelog/internal/platform/clock"
	"github.com/carelog/carelog/internal/platform/db"
	"github.com/carelog/carelog/internal/platform/middleware"
	"github.com/carelog/carelog/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelog-server",
		Short: "CareLog home-care EVV and scheduling server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// sweepCmd runs the credential expiration sweep once and exits. The same
// sweep is reachable over HTTP at /cron/check-credentials; this form suits
// a crontab on the host.
func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-credentials",
		Short: "Run the credential expiration sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dispatcher := notification.NewDispatcher(
				&notification.LogEmailSender{Logger: logger},
				&notification.LogSMSSender{Logger: logger},
				&pgDirectory{pool: pool},
				notification.NewTemplateEngine(),
				logger,
			)
			svc := credential.NewService(
				credential.NewRepoPG(pool),
				dispatcher,
				audit.NewPGRecorder(pool, logger),
				clock.System{},
				logger,
			)

			res := svc.CheckAllCredentials(ctx)
			fmt.Printf("checked=%d status_updated=%d alerts=%d errors=%d\n",
				res.CredentialsChecked, res.StatusUpdated, res.AlertsCreated, len(res.Errors))
			for _, e := range res.Errors {
				fmt.Fprintln(os.Stderr, e)
			}
			if len(res.Errors) > 0 {
				return errors.New("sweep finished with errors")
			}
			return nil
		},
	}
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Shared infrastructure
	clk := clock.System{}
	auditor := audit.NewPGRecorder(pool, logger)
	dispatcher := notification.NewDispatcher(
		&notification.LogEmailSender{Logger: logger},
		&notification.LogSMSSender{Logger: logger},
		&pgDirectory{pool: pool},
		notification.NewTemplateEngine(),
		logger,
	)
	dispatcher.StartWorker(256)
	defer dispatcher.Close()
	runTx := func(ctx context.Context, fn func(context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	// Repositories
	clientRepo := client.NewRepoPG(pool)
	shiftRepo := shift.NewRepoPG(pool)
	attendanceRepo := shift.NewAttendanceRepoPG(pool)
	authRepo := authorization.NewRepoPG(pool)
	credRepo := credential.NewRepoPG(pool)

	// Services
	clientSvc := client.NewService(clientRepo)
	shiftSvc := shift.NewService(shiftRepo, attendanceRepo, clientRepo,
		dispatcher, auditor, clk, logger,
		cfg.GeofenceRadiusM, time.Duration(cfg.LateCheckInGraceMin)*time.Minute)
	schedSvc := scheduling.NewService(shiftRepo, authRepo, auditor, runTx, logger)
	authSvc := authorization.NewService(authRepo, clk)
	credSvc := credential.NewService(credRepo, dispatcher, auditor, clk, logger)

	// Routes
	client.NewHandler(clientSvc).RegisterRoutes(apiV1)
	shift.NewHandler(shiftSvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedSvc).RegisterRoutes(apiV1)
	authorization.NewHandler(authSvc).RegisterRoutes(apiV1)
	credHandler := credential.NewHandler(credSvc, clk, cfg.CronSecret)
	credHandler.RegisterRoutes(e)
	credHandler.RegisterAPIRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// pgDirectory resolves notification recipients from the users and clients
// tables.
type pgDirectory struct {
	pool *pgxpool.Pool
}

func (d *pgDirectory) ContactsForRole(ctx context.Context, companyID uuid.UUID, role string) ([]notification.Contact, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, email FROM users
		 WHERE company_id = $1 AND $2 = ANY(roles) AND email IS NOT NULL AND active`,
		companyID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []notification.Contact
	for rows.Next() {
		var id uuid.UUID
		var email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		contacts = append(contacts, notification.Contact{
			UserID:  id.String(),
			Address: email,
			Channel: notification.ChannelEmail,
		})
	}
	return contacts, rows.Err()
}

func (d *pgDirectory) SponsorContact(ctx context.Context, clientID uuid.UUID) (*notification.Contact, error) {
	var email *string
	err := d.pool.QueryRow(ctx,
		`SELECT sponsor_email FROM clients WHERE id = $1`, clientID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, nil
	}
	return &notification.Contact{
		UserID:  clientID.String(),
		Address: *email,
		Channel: notification.ChannelEmail,
	}, nil
}
