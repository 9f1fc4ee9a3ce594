package cli

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-round-service/internal/config"
	"quiz-round-service/internal/engine"
	"quiz-round-service/internal/infra/memory"
	"quiz-round-service/internal/infra/postgres"
	redisinfra "quiz-round-service/internal/infra/redis"
	transport "quiz-round-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz round server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := newLogger()
	slog.SetDefault(log)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	store, cleanup, err := buildStore(ctx, cfg, redisClient, cacheTTL, log)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := transport.NewHub(log)
	opts := []engine.Option{
		engine.WithBroadcaster(hub),
		engine.WithPresence(hub),
		engine.WithLogger(log),
	}
	if redisClient != nil {
		opts = append(opts, engine.WithLiveness(redisinfra.NewLiveness(redisClient, 2*cfg.Engine.RoundDuration())))
	}
	eng := engine.New(cfg.Engine, store, opts...)

	// Keeps public room populations tracking the hourly curve.
	rebalanceDone := startRebalancer(ctx, eng, log)
	defer rebalanceDone()

	wsHandler := transport.NewWSHandler(eng, hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz round service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down")
	case <-ctx.Done():
		log.Info("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// buildStore wires Postgres behind the optional Redis question cache, or
// falls back to the seeded in-memory store for local runs.
func buildStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, cacheTTL time.Duration, log *slog.Logger) (engine.Store, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Warn("no postgres configured, using in-memory demo store")
		st := memory.NewStore()
		memory.SeedDemo(st)
		return st, func() {}, nil
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())

	var source postgres.QuestionSource = postgres.NewQuestionLoader(pool)
	if redisClient != nil {
		source = redisinfra.NewQuestionCache(redisClient, source, cacheTTL)
	}

	cleanup := func() {
		pool.Close()
		db.Close()
	}
	return postgres.NewStore(db, source), cleanup, nil
}

func startRebalancer(ctx context.Context, eng *engine.Engine, log *slog.Logger) func() {
	ticker := time.NewTicker(time.Minute)
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				if err := eng.Rebalance(ctx); err != nil {
					log.Warn("traffic rebalance failed", "err", err)
				}
			case <-ctx.Done():
				return
			case <-quit:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(quit)
		<-done
	}
}
