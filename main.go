package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitesmith-backend/config"
	"sitesmith-backend/internal/api"
	"sitesmith-backend/internal/database"
	"sitesmith-backend/internal/events"
	"sitesmith-backend/internal/llm"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/utils"
	"sitesmith-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title sitesmith-backend API
// @version 1.0
// @description AI website builder: prompt-driven generation, revisions, versions and credits.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.LedgerHashSecret == "" {
		log.Fatal("LEDGER_HASH_SECRET is required")
	}

	zl, err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := utils.RegisterValidators(); err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	db, err := database.Connect(cfg, zl)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	redisBus := events.NewRedisBus(rdb, zl)
	bus := events.Multi{redisBus}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, zl)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		bus = append(bus, amqpPublisher)
	}

	var sites services.SitePublisher = services.NopPublisher{}
	if cfg.OSSEnabled() {
		sites = services.NewOSSSitePublisher(cfg, zl)
		zl.Info("published sites are mirrored to object storage", zap.String("bucket", cfg.OSSBucketName))
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, utils.DefaultTokenTTL)
	ledger := services.NewCreditLedger(db, rdb, cfg.LedgerHashSecret, zl)
	users := services.NewUserService(db, rdb, zl)
	prompts := services.NewPromptService(db, rdb, zl)
	projects := services.NewProjectService(db, sites, bus, zl)
	queue := services.NewJobQueue(rdb)

	completer := llm.NewOpenRouterClient(llm.Options{
		BaseURL:           cfg.AIBaseURL,
		APIKey:            cfg.AIAPIKey,
		Model:             cfg.AIModel,
		Timeout:           cfg.AITimeout,
		RequestsPerMinute: cfg.AIRequestsPerMinute,
	}, zl)
	if cfg.AIAPIKey == "" {
		zl.Warn("AI_API_KEY is not set, every generation will fail and be refunded")
	}

	orchestrator := services.NewRevisionOrchestrator(services.OrchestratorDeps{
		DB:           db,
		Ledger:       ledger,
		Projects:     projects,
		Versions:     services.NewVersionStore(db),
		Conversation: services.NewConversationLog(db),
		Enhancer:     services.NewPromptEnhancer(completer, prompts),
		Generator:    services.NewCodeGenerator(completer, prompts),
		Locker:       services.NewProjectLocker(rdb, cfg.RevisionLock, zl),
		Queue:        queue,
		Events:       bus,
		Cost:         cfg.GenerationCost,
	}, zl)

	authService := services.NewAuthService(db, ledger, tokens, cfg.SignupCredits, zl)
	if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	worker := services.NewGenerationWorker(db, queue, orchestrator, cfg.WorkerCount, zl)
	if err := worker.Recover(ctx); err != nil {
		return err
	}
	worker.Start(ctx)

	router := api.NewRouter(api.Deps{
		Config:       cfg,
		Log:          zl,
		Tokens:       tokens,
		Denylist:     services.NewTokenDenylist(rdb),
		Users:        users,
		Auth:         authService,
		Ledger:       ledger,
		Projects:     projects,
		Orchestrator: orchestrator,
		Prompts:      prompts,
		Transactions: services.NewTransactionService(db, cfg.LedgerHashSecret),
		Events:       redisBus,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("server listening", zap.String("addr", cfg.ServerAddr), zap.String("model", completer.Model()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		worker.Wait()
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown incomplete", zap.Error(err))
	}
	worker.Wait()
	return nil
}
