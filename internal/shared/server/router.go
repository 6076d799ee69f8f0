package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/li18635787490/ai-test-service/internal/checks"
	"github.com/li18635787490/ai-test-service/internal/documents"
	"github.com/li18635787490/ai-test-service/internal/extract"
	"github.com/li18635787490/ai-test-service/internal/llm"
	"github.com/li18635787490/ai-test-service/internal/llm/anthropic"
	openaiclient "github.com/li18635787490/ai-test-service/internal/llm/openai"
	"github.com/li18635787490/ai-test-service/internal/reports"
	"github.com/li18635787490/ai-test-service/internal/requirements"
	"github.com/li18635787490/ai-test-service/internal/shared/config"
	"github.com/li18635787490/ai-test-service/internal/shared/metrics"
	"github.com/li18635787490/ai-test-service/internal/shared/server/middleware"
	"github.com/li18635787490/ai-test-service/internal/shared/server/respond"
	"github.com/li18635787490/ai-test-service/internal/shared/storage/db"
	"github.com/li18635787490/ai-test-service/internal/shared/storage/object"
	localstore "github.com/li18635787490/ai-test-service/internal/shared/storage/object/local"
	s3store "github.com/li18635787490/ai-test-service/internal/shared/storage/object/s3"
	"github.com/li18635787490/ai-test-service/internal/shared/telemetry"
)

// qwenBaseURL is DashScope's OpenAI-compatible gateway.
const qwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	sqlDB := connectDB(cfg)
	store := buildStore(cfg)
	registry := buildProviders(cfg)

	var docRepo documents.Repo
	var checkRepo checks.Repo
	var reqRepo requirements.Repo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
		checkRepo = &checks.PGRepo{DB: sqlDB}
		reqRepo = &requirements.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
		checkRepo = checks.NewMemoryRepo()
		reqRepo = requirements.NewMemoryRepo()
	}

	docSvc := &documents.Service{Store: store, Repo: docRepo}
	resolver := &extract.Resolver{Store: store, Repo: docRepo}
	checkSvc := &checks.Service{
		Repo:        checkRepo,
		Docs:        docRepo,
		Resolver:    resolver,
		Providers:   registry,
		Concurrency: cfg.CheckConcurrency,
	}
	reqSvc := &requirements.Service{
		Repo:      reqRepo,
		Docs:      docRepo,
		Resolver:  resolver,
		Providers: registry,
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true, "providers": registry.IDs()})
	})
	documents.NewHandler(docSvc).RegisterRoutes(api)
	checks.NewHandler(checkSvc).RegisterRoutes(api)
	reports.NewHandler(checkSvc, cfg.ReportDir).RegisterRoutes(api)
	requirements.NewHandler(reqSvc).RegisterRoutes(api)

	r.GET("/metrics", metrics.Handler())

	return r
}

func connectDB(cfg config.Config) *sql.DB {
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL empty; using in-memory repositories")
		return nil
	}
	ctx := context.Background()
	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database, falling back to memory: %v", err)
		return nil
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations, falling back to memory: %v", err)
		sqlDB.Close()
		return nil
	}
	return sqlDB
}

func buildStore(cfg config.Config) object.ObjectStore {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3store.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Printf("failed to build s3 store, falling back to local: %v", err)
		} else {
			return store
		}
	}
	return localstore.New(cfg.LocalStoreDir)
}

// buildProviders registers every AI provider that has an API key configured.
// Each client is wrapped with the bounded retry policy.
func buildProviders(cfg config.Config) *llm.Registry {
	registry := llm.NewRegistry(cfg.DefaultAIProvider)
	retryOpts := llm.RetryOptions{
		MaxAttempts: cfg.LLMMaxAttempts,
		BaseDelay:   cfg.LLMRetryBaseDelay,
	}

	if cfg.OpenAIAPIKey != "" {
		client, err := openaiclient.NewClient("openai", cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			log.Printf("openai client not configured: %v", err)
		} else {
			registry.Register("openai", llm.WithRetry(client, retryOpts))
		}
	}
	if cfg.AnthropicAPIKey != "" {
		client, err := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, "")
		if err != nil {
			log.Printf("anthropic client not configured: %v", err)
		} else {
			registry.Register("anthropic", llm.WithRetry(client, retryOpts))
		}
	}
	if cfg.QwenAPIKey != "" {
		client, err := openaiclient.NewClient("qwen", cfg.QwenAPIKey, cfg.QwenModel, qwenBaseURL)
		if err != nil {
			log.Printf("qwen client not configured: %v", err)
		} else {
			registry.Register("qwen", llm.WithRetry(client, retryOpts))
		}
	}

	if len(registry.IDs()) == 0 {
		log.Printf("no AI providers configured; check and analysis requests will be rejected")
	}
	telemetry.Info("providers.configured", map[string]any{
		"providers": registry.IDs(),
		"default":   registry.DefaultID(),
	})
	return registry
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
