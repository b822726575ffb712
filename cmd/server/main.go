package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"socialrisk/internal/cache"
	"socialrisk/internal/catalog"
	"socialrisk/internal/config"
	"socialrisk/internal/model"
	"socialrisk/internal/repository"
	"socialrisk/internal/screening"
	"socialrisk/internal/service"
	"socialrisk/internal/session"
	"socialrisk/internal/transport/rest"
	"socialrisk/internal/transport/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "socialrisk",
		Short: "Social-risk screening API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(scoreCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the screening API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage question catalogs",
	}

	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Upsert the gating and detail catalogs into MongoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetInt("version")
			return runPublish(cmd, version)
		},
	}
	publishCmd.Flags().Int("version", 0, "catalog version (defaults to DRAFT_SCHEMA_VERSION)")

	cmd.AddCommand(publishCmd)
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Derive risk offline from a JSON file of gating answers and detail answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return runScore(cmd, file)
		},
	}
	cmd.Flags().String("file", "", "path to a JSON draft ({\"gating\": {...}, \"answers\": {...}})")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return client, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-secret"
		logger.Warn().Msg("JWT_SECRET not set, using development secret")
	}

	ctx := context.Background()

	// MongoDB: submissions survive a missing database, so only warn
	mongoClient, err := connectMongo(ctx, cfg)
	if err != nil && mongoClient == nil {
		logger.Fatal().Err(err).Msg("failed to create mongodb client")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("mongodb unreachable, submissions will fail until it recovers")
	} else {
		logger.Info().Msg("connected to mongodb")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureResultIndexes(ctx, db); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure result indexes")
	}
	results := repository.NewBreakerResultRepo(repository.NewResultRepo(db), repository.BreakerSettings{
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}, logger)

	// Redis: triage and stats need it; drafts need it only on the redis backend
	var (
		triage cache.TriageCache
		stats  cache.StatsCache
		store  cache.DraftStore
	)
	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, triage and stats disabled")
	} else {
		defer rdb.Close()
		logger.Info().Msg("connected to redis")
		triage = cache.NewTriageCache(rdb)
		stats = cache.NewStatsCache(rdb)
	}

	switch cfg.DraftBackend {
	case config.BackendRedis:
		if rdb != nil {
			store = cache.NewRedisDraftStore(rdb, cfg.DraftTTL, logger)
		}
	case config.BackendSQLite:
		store, err = cache.NewSQLiteDraftStore(cfg.SQLitePath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite draft store unavailable")
			store = nil
		}
	}
	if store == nil {
		logger.Warn().Msg("no durable draft store, sessions run memory-only")
	} else {
		defer store.Close()
	}

	sessions, err := session.NewManager(session.ManagerConfig{
		Store:         store,
		SchemaVersion: cfg.DraftSchemaVersion,
		Debounce:      cfg.DraftDebounce,
		CacheSize:     cfg.SessionCacheSize,
		Catalog:       catalog.Detail(),
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session manager")
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub(logger)

	// Initialize services
	authSvc := service.NewAuthService(cfg.StaffUsername, cfg.StaffPassword, cfg.JWTSecret)
	surveySvc := service.NewSurveyService(sessions, catalog.Detail(), results, triage, stats, logger)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	surveySvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:   authSvc,
		SurveyService: surveySvc,
		GatingCatalog: catalog.Gating(),
		DetailCatalog: catalog.Detail(),
		WSHub:         wsHub,
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("draftBackend", cfg.DraftBackend).
			Int("schemaVersion", cfg.DraftSchemaVersion).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	// Flush pending drafts and let in-flight submissions land
	sessions.CloseAll(shutdownCtx)
	surveySvc.WaitPersisted()
	wsHub.Close()

	logger.Info().Msg("server exited")
	return nil
}

func runPublish(cmd *cobra.Command, version int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if version <= 0 {
		version = cfg.DraftSchemaVersion
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := connectMongo(ctx, cfg)
	if client != nil {
		defer client.Disconnect(context.Background())
	}
	if err != nil {
		return err
	}

	repo := repository.NewCatalogRepo(client.Database(cfg.MongoDatabase))
	previous, err := repo.Get(ctx, version)
	if err != nil {
		return fmt.Errorf("load published catalog: %w", err)
	}
	if previous != nil {
		logger.Info().
			Str("id", previous.ID).
			Time("publishedAt", previous.PublishedAt).
			Msg("replacing published catalog")
	}

	doc, err := repo.Publish(ctx, version, catalog.Gating().Questions(), catalog.Detail().Questions())
	if err != nil {
		return err
	}

	logger.Info().
		Str("id", doc.ID).
		Int("gating", len(doc.Gating)).
		Int("detail", len(doc.Detail)).
		Msg("catalog published")
	return nil
}

// scoreOutput is printed by the score command.
type scoreOutput struct {
	Result  model.RiskResult `json:"result"`
	Missing []string         `json:"missing"`
}

func runScore(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var draft model.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	gating, err := model.ParseGating(draft.Gating)
	if err != nil {
		return err
	}
	if draft.Answers == nil {
		draft.Answers = model.AnswerSet{}
	}

	visible := screening.VisibleQuestions(catalog.Detail(), screening.ResolveVisibility(gating))
	out := scoreOutput{
		Result:  screening.DeriveRisk(gating, draft.Answers),
		Missing: screening.Validate(visible, draft.Answers),
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
