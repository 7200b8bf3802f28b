package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"studymate/internal/answer"
	"studymate/internal/auth"
	"studymate/internal/catalog"
	"studymate/internal/config"
	"studymate/internal/db"
	"studymate/internal/handlers"
	"studymate/internal/links"
	"studymate/internal/ranking"
	"studymate/internal/store/memory"
	"studymate/internal/store/postgres"
	"studymate/internal/tags"
	"studymate/services/embed"
	"studymate/services/inference"
	"studymate/services/qdrant"
	"studymate/services/telegram"
)

// store is everything the service needs from persistence.
type store interface {
	catalog.Store
	tags.Store
	embed.Store
	ranking.EmbeddingLookup
}

// vectorSidecar holds chunk embeddings.
type vectorSidecar interface {
	embed.Store
	ranking.EmbeddingLookup
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.Info("starting server...")

	if err := godotenv.Load(".env.dev"); err != nil {
		logrus.Warn("no .env file found, using system environment variables")
	} else {
		logrus.Info(".env file loaded successfully")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logrus.WithError(err).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, cfg)
	defer closeStore()

	vectors, closeVectors := openVectors(ctx, cfg, st)
	defer closeVectors()

	// setup inference
	provider, err := inference.NewYandexProvider(inference.YandexConfig{
		CompletionURL:   cfg.Inference.CompletionURL,
		EmbeddingURL:    cfg.Inference.EmbeddingURL,
		FolderID:        cfg.Inference.FolderID,
		APIKey:          cfg.Inference.APIKey,
		AuthScheme:      cfg.Inference.AuthScheme,
		CompletionModel: cfg.Inference.CompletionModel,
		EmbeddingModel:  cfg.Inference.EmbeddingModel,
		Temperature:     cfg.Inference.Temperature,
		MaxTokens:       cfg.Inference.MaxTokens,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create inference provider")
	}
	gateway := inference.NewGateway(provider,
		inference.WithTimeout(cfg.Inference.Timeout),
		inference.WithRateLimit(cfg.Inference.RatePerSecond, cfg.Inference.Burst),
	)

	// setup services
	logrus.Debug("initializing services")
	tagIndex := &tags.Index{Store: st, Extractor: gateway}

	rankOpts := []ranking.Option{
		ranking.WithTopK(cfg.Pipeline.TopK),
		ranking.WithThreshold(cfg.Pipeline.Threshold),
	}
	if cfg.Pipeline.ReuseEmbeddings {
		rankOpts = append(rankOpts, ranking.WithEmbeddingLookup(vectors))
	}
	ranker := ranking.NewRanker(gateway, rankOpts...)

	pipeline := &answer.Pipeline{
		Inference:      gateway,
		Tags:           tagIndex,
		Ranker:         ranker,
		Links:          links.NewResolver(cfg.Links),
		MaxQueryLength: cfg.Pipeline.MaxQueryLength,
	}

	tg, err := telegram.NewClient(cfg.Telegram.BaseURL, cfg.Telegram.Token, nil)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create telegram client")
	}
	bot := &answer.Bot{Answerer: pipeline, Sender: tg}

	dispatcher := answer.NewDispatcher(bot.Handle, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize)
	dispatcher.Start(context.WithoutCancel(ctx))

	embedder := &embed.Service{Store: vectors, Embedder: gateway, Workers: cfg.Pipeline.EmbedWorkers}
	runner := embed.NewRunner(tagIndex, embedder)
	runner.Start(ctx)

	tokens, err := auth.NewTokens(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to set up admin tokens")
	}
	if cfg.Admin.PasswordHash == "" {
		logrus.Warn("admin password hash is not set, admin login is disabled")
	}
	authService := &auth.Service{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
		Tokens:       tokens,
	}
	catalogService := &catalog.Service{Store: st, Maintenance: runner}
	logrus.Info("services initialized successfully")

	router := &handlers.Router{
		Webhook: &handlers.WebhookHandler{
			Dispatcher: dispatcher,
			Sender:     tg,
			Secret:     cfg.Telegram.WebhookSecret,
		},
		Auth:           &handlers.AuthHandler{Auth: authService},
		Catalog:        &handlers.CatalogHandler{Catalog: catalogService, Maintenance: runner},
		AuthMiddleware: tokens.Middleware,
		RequestTimeout: cfg.Server.RequestTimeout,
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router.Handler()}
	go func() {
		logrus.WithField("address", cfg.Server.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed to start")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("error shutting down http server")
	}
	dispatcher.Close()
	runner.Wait()
	logrus.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store, func()) {
	if cfg.Store.Type != config.StorePostgres {
		logrus.Info("using in-memory store")
		return memory.New(), func() {}
	}

	logrus.Debug("initializing database client")
	drv, err := db.Open(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	return postgres.New(drv), func() {
		logrus.Debug("closing database client")
		if err := drv.Close(); err != nil {
			logrus.WithError(err).Error("error closing DB client")
		}
	}
}

func openVectors(ctx context.Context, cfg *config.Config, st store) (vectorSidecar, func()) {
	if cfg.Vectors.Type != config.VectorsQdrant {
		return st, func() {}
	}

	points, collections, conn, err := qdrant.NewClient(ctx, cfg.Vectors.QdrantAddr)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to qdrant")
	}
	if err := qdrant.EnsureCollectionExists(ctx, collections, points, cfg.Vectors.Collection, cfg.Vectors.VectorSize); err != nil {
		logrus.WithError(err).Fatal("failed to prepare qdrant collection")
	}
	vs := &qdrant.VectorStore{Points: points, Chunks: st, Collection: cfg.Vectors.Collection}
	return vs, func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("error closing qdrant connection")
		}
	}
}
