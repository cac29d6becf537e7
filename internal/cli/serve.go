package cli

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/wedding-planner/internal/config"
	"github.com/iliyamo/wedding-planner/internal/database"
	"github.com/iliyamo/wedding-planner/internal/handler"
	"github.com/iliyamo/wedding-planner/internal/logging"
	"github.com/iliyamo/wedding-planner/internal/metrics"
	"github.com/iliyamo/wedding-planner/internal/middleware"
	"github.com/iliyamo/wedding-planner/internal/repository"
	"github.com/iliyamo/wedding-planner/internal/router"
	"github.com/iliyamo/wedding-planner/internal/service"
)

var (
	servePort    string
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the planning HTTP API.

Redis is optional: without it rate limiting, the profile cache and signout
revocation of access tokens are disabled. Planning events are published to
RabbitMQ when EVENTS_ENABLED is true.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv(envFile)
		cfg := config.Load()
		if servePort != "" {
			cfg.Port = servePort
		}
		log := logging.New(levelOr(cfg.LogLevel), cfg.Env)
		logging.SetGlobal(log)

		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveMigrate {
			if err := database.Migrate(ctx, db, logging.Component(log, "migrate")); err != nil {
				return err
			}
		}

		rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable: rate limiting, profile cache and session revocation disabled")
		} else {
			defer rdb.Close()
		}

		reg := metrics.NewRegistry(true)
		e := buildServer(serverDeps{
			Cfg:       cfg,
			DB:        db,
			Redis:     rdb,
			RateLimit: config.LoadRateLimitConfig(),
			Cache:     config.LoadCacheConfig(),
			Metrics:   metrics.New(reg),
			Log:       log,
		})

		addr := ":" + cfg.Port
		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
			errCh <- e.Start(addr)
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

// serverDeps are the resources buildServer wires into handlers.
type serverDeps struct {
	Cfg       config.Config
	DB        *sql.DB
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Metrics   *metrics.Metrics
	Log       zerolog.Logger
}

// buildServer constructs repositories, the planning service and the router.
func buildServer(d serverDeps) *echo.Echo {
	users := repository.NewUserRepo(d.DB)
	tokens := repository.NewTokenRepo(d.DB)
	weddings := repository.NewWeddingRepo(d.DB)

	var events service.EventPublisher = service.NopPublisher{}
	if d.Cfg.EventsEnabled {
		events = service.NewAMQPPublisher(d.Cfg.RabbitURL, logging.Component(d.Log, "publisher"), d.Metrics)
	}
	planning := service.NewPlanning(service.Deps{
		Guests:  repository.NewGuestRepo(d.DB),
		Charts:  repository.NewSeatingChartRepo(d.DB),
		Events:  events,
		Metrics: d.Metrics,
		Log:     logging.Component(d.Log, "planning"),
	})

	// Revocation markers must outlive every access token issued before them.
	revocations := middleware.NewSessionRevocations(d.Redis, time.Duration(d.Cfg.AccessTTLMin)*time.Minute)

	h := router.Handlers{
		Health:   &handler.HealthHandler{DB: d.DB},
		Auth:     handler.NewAuthHandler(d.Cfg, users, tokens, revocations),
		Planning: handler.NewPlanningHandler(planning, weddings),
		Wedding:  handler.NewWeddingHandler(weddings),
		Profile:  handler.NewProfileHandler(users),
	}
	g := router.Guards{
		JWTSecret:   d.Cfg.JWTSecret,
		Revocations: revocations,
		Redis:       d.Redis,
		RateLimit:   d.RateLimit,
		Cache:       d.Cache,
	}
	return router.New(h, g, d.Metrics, d.Log)
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "override APP_PORT")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}
