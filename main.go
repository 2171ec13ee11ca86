package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/audit"
	"github.com/tradeline-io/tradeline-engine/pkg/auth"
	"github.com/tradeline-io/tradeline-engine/pkg/config"
	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
	"github.com/tradeline-io/tradeline-engine/pkg/database"
	"github.com/tradeline-io/tradeline-engine/pkg/handlers"
	"github.com/tradeline-io/tradeline-engine/pkg/llm"
	"github.com/tradeline-io/tradeline-engine/pkg/logging"
	"github.com/tradeline-io/tradeline-engine/pkg/middleware"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
	"github.com/tradeline-io/tradeline-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("store", cfg.Store),
		zap.String("verification_provider", cfg.Verification.Provider),
		zap.String("frontend_url", cfg.FrontendURL))

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("Failed to initialize encryptor", zap.Error(err))
	}

	ctx := context.Background()

	agentRepo, dealRepo, userRepo, inviteRepo, cleanup, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer cleanup()

	verifier, err := buildVerifier(cfg, encryptor, logger)
	if err != nil {
		logger.Fatal("Failed to initialize verifier", zap.Error(err))
	}

	agentService := services.NewAgentService(agentRepo, logger)
	dealService := services.NewDealService(dealRepo, encryptor, cfg.FrontendURL, logger)
	documentService := services.NewDocumentService(dealRepo, encryptor, verifier, logger)
	userService := services.NewUserService(userRepo, logger)
	inviteService := services.NewInviteService(inviteRepo, userService, logger)

	tokenManager := auth.NewManager(cfg.Auth.SigningKey, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	authMiddleware := auth.NewMiddleware(tokenManager, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAgentsHandler(agentService, logger).RegisterRoutes(mux, authMiddleware)
	auditor := audit.NewSecurityAuditor(logger)
	handlers.NewDealsHandler(dealService, documentService, agentService, auditor, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAuthHandler(userService, tokenManager, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewInvitesHandler(inviteService, tokenManager, logger).RegisterRoutes(mux, authMiddleware)

	server := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: middleware.RequestLogger(logger)(mux),
	}

	go func() {
		logger.Info("Starting tradeline-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	// Let in-flight document verifications land before the process exits.
	documentService.Wait()
}

// buildRepositories constructs the repository set for the configured store.
// The returned cleanup closes the database pool when one was opened.
func buildRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (
	repositories.AgentRepository,
	repositories.DealRepository,
	repositories.UserRepository,
	repositories.InviteRepository,
	func(),
	error,
) {
	if cfg.Store == config.StoreMemory {
		logger.Info("Using in-memory repositories")
		return repositories.NewMemoryAgentRepository(),
			repositories.NewMemoryDealRepository(),
			repositories.NewMemoryUserRepository(),
			repositories.NewMemoryInviteRepository(),
			func() {}, nil
	}

	logger.Info("Connecting to PostgreSQL",
		zap.String("url", logging.SanitizeConnectionString(cfg.Database.URL())))

	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("open migration connection: %s", logging.SanitizeError(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		_ = migrationDB.Close()
		return nil, nil, nil, nil, nil, err
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("connect to database: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	return repositories.NewPostgresAgentRepository(db),
		repositories.NewPostgresDealRepository(db),
		repositories.NewPostgresUserRepository(db),
		repositories.NewPostgresInviteRepository(db),
		db.Close, nil
}

// buildVerifier constructs the document verification collaborator for the
// configured provider.
func buildVerifier(cfg *config.Config, encryptor *crypto.Encryptor, logger *zap.Logger) (services.Verifier, error) {
	switch cfg.Verification.Provider {
	case config.VerifierOpenAI:
		client, err := llm.NewOpenAIClient(&llm.Config{
			Endpoint: cfg.Verification.Endpoint,
			Model:    cfg.Verification.Model,
			APIKey:   cfg.Verification.APIKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		return services.NewLLMVerifier(client, encryptor, logger), nil

	case config.VerifierAnthropic:
		client, err := llm.NewAnthropicClient(&llm.Config{
			Endpoint: cfg.Verification.Endpoint,
			Model:    cfg.Verification.Model,
			APIKey:   cfg.Verification.APIKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		return services.NewLLMVerifier(client, encryptor, logger), nil

	default:
		delay := time.Duration(cfg.Verification.DelayMs) * time.Millisecond
		return services.NewSimulatedVerifier(encryptor, delay, logger), nil
	}
}
