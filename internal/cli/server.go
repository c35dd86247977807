package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tryout-service/internal/app"
	"tryout-service/internal/attempt"
	"tryout-service/internal/config"
	"tryout-service/internal/domain"
	"tryout-service/internal/infra/memory"
	"tryout-service/internal/infra/postgres"
	redisstore "tryout-service/internal/infra/redis"
	"tryout-service/internal/infra/remote"
	"tryout-service/internal/logger"
	"tryout-service/internal/metrics"
	transport "tryout-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tryout server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type catalogCache interface {
	app.CatalogRepository
	app.CatalogInvalidator
}

type tryoutLoader interface {
	LoadTryout(ctx context.Context, tryoutID string) (domain.Tryout, error)
}

// backends holds what runServer built so it can be released on shutdown.
type backends struct {
	loader  tryoutLoader
	store   app.TryoutStore
	results app.ResultRepository
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Component("server")

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	m := metrics.New()

	b, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)

	var (
		catalogs catalogCache
		sessions app.SessionRepository
		results  app.ResultRepository
	)
	if redisClient != nil {
		catalogs = redisstore.NewCatalogRepository(redisClient, b.loader, catalogTTL).WithMetrics(m)
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
		results = redisstore.NewResultStore(redisClient, cfg.Results.Limit, config.TTLDuration(cfg.Results.TTL, 7*24*time.Hour))
	} else {
		catalogs = memory.NewCatalogRepository(b.loader, catalogTTL).WithMetrics(m)
		sessions = memory.NewSessionStore()
		results = memory.NewResultStore(cfg.Results.Limit)
	}
	// A database-backed history outlives both caches.
	if b.results != nil {
		results = b.results
	}

	attempts := app.NewAttemptService(catalogs, sessions, results, app.AttemptOptions{
		DefaultPassingScore: cfg.Attempt.DefaultPassingScore,
		EmptyCatalog:        attempt.ParseEmptyCatalogPolicy(cfg.Attempt.EmptyCatalog),
		Expiry:              app.ParseExpiryPolicy(cfg.Attempt.ExpiryPolicy),
	}, m)

	handlers := transport.Handlers{
		Attempts: transport.NewAttemptHandler(attempts),
		WS:       transport.NewWSHandler(attempts, config.TTLDuration(cfg.Attempt.TickInterval, time.Second)),
	}
	if b.store != nil {
		tryouts := app.NewTryoutService(b.store, app.Lookups{
			Categories:   cfg.Catalog.Categories,
			Difficulties: cfg.Catalog.Difficulties,
		}, catalogs)
		handlers.Tryouts = transport.NewTryoutHandler(tryouts)
	}
	router := transport.NewRouter(handlers, m, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", finalPort).
			Str("catalog", cfg.Catalog.Source).
			Bool("redis", redisClient != nil).
			Str("expiry", cfg.Attempt.ExpiryPolicy).
			Msg("starting tryout service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBackends selects the catalog source. Only memory and postgres support authoring.
func buildBackends(ctx context.Context, cfg config.Config, log zerolog.Logger) (*backends, error) {
	b := &backends{}
	switch cfg.Catalog.Source {
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("catalog source postgres needs postgres.url")
		}
		db := openBunDB(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := migrateUp(ctx, db); err != nil {
			b.close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.loader = postgres.NewTryoutLoader(pool)
		b.store = postgres.NewTryoutStore(db)
		b.results = postgres.NewResultStore(db, cfg.Results.Limit)
	case "remote":
		if cfg.Catalog.Remote.BaseURL == "" {
			return nil, fmt.Errorf("catalog source remote needs catalog.remote.base_url")
		}
		b.loader = remote.NewTryoutClient(
			cfg.Catalog.Remote.BaseURL,
			cfg.Catalog.Remote.Token,
			config.TTLDuration(cfg.Catalog.Remote.Timeout, 10*time.Second),
		)
		log.Info().Str("base_url", cfg.Catalog.Remote.BaseURL).Msg("authoring disabled for remote catalog")
	case "memory":
		seed, err := loadSeed(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, err
		}
		store := memory.NewTryoutStore(seed...)
		b.loader = store
		b.store = store
		log.Info().Int("tryouts", len(seed)).Msg("in-memory catalog seeded")
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
	return b, nil
}

// loadSeed reads the seed tryouts, or returns the built-in sample when path is empty.
func loadSeed(path string) ([]domain.Tryout, error) {
	if path == "" {
		return sampleTryouts(), nil
	}
	var doc struct {
		Tryouts []domain.Tryout `json:"tryouts"`
	}
	if err := config.DecodeYAMLFile(path, &doc); err != nil {
		return nil, err
	}
	for _, t := range doc.Tryouts {
		if _, err := attempt.NewCatalog(t.Questions); err != nil {
			return nil, fmt.Errorf("seed tryout %s: %w", t.ID, err)
		}
		for _, q := range t.Questions {
			if err := domain.ValidateQuestion(q); err != nil {
				return nil, fmt.Errorf("seed tryout %s question %s: %w", t.ID, q.ID, err)
			}
		}
	}
	return doc.Tryouts, nil
}

func sampleTryouts() []domain.Tryout {
	return []domain.Tryout{
		{
			ID:          "tryout-1",
			Title:       "Go fundamentals",
			Description: "Types, control flow and the standard toolchain",
			Category:    "Programming",
			Difficulty:  "Beginner",
			Duration:    10,
			Topics:      []string{"types", "syntax"},
			Featured:    true,
			CreatedAt:   time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC),
			Questions: []domain.Question{
				{
					ID:     "q1",
					Text:   "What is 2 + 2?",
					Type:   domain.MultipleChoice,
					Points: 1,
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4"},
						{ID: "o3", Text: "5"},
					},
					CorrectAnswer: domain.Choice("o2"),
				},
				{
					ID:            "q2",
					Text:          "A Go map is safe for concurrent writes.",
					Type:          domain.TrueFalse,
					Points:        1,
					CorrectAnswer: domain.Bool(false),
				},
				{
					ID:     "q3",
					Text:   "Explain when you would reach for a channel instead of a mutex.",
					Type:   domain.Essay,
					Points: 2,
				},
			},
		},
	}
}
