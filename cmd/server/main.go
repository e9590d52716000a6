// File: cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/iyunix/go-chatsync/internal/config"
	"github.com/iyunix/go-chatsync/internal/database"
	"github.com/iyunix/go-chatsync/internal/handlers"
	"github.com/iyunix/go-chatsync/internal/middleware"
	"github.com/iyunix/go-chatsync/internal/ratelimit"
	chatrepo "github.com/iyunix/go-chatsync/internal/repository/chat"
	"github.com/iyunix/go-chatsync/internal/repository/message"
	"github.com/iyunix/go-chatsync/internal/services"
	"github.com/iyunix/go-chatsync/internal/services/ai"
	"github.com/iyunix/go-chatsync/internal/services/chat"
)

func main() {
	cfg := config.Load()
	logger := services.NewLogger("chatsync")
	if pl, ok := logger.(*services.ProductionLogger); ok {
		defer pl.Sync()
	}

	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid configuration", err)
	}
	secret, fallback := cfg.SigningSecret()
	if fallback {
		logger.Warn("JWT_SECRET_KEY not set, using development secret")
	}

	db, err := database.Open(cfg)
	if err != nil {
		fatal(logger, "database open failed", err)
	}
	defer database.Close(db)
	if err := chatrepo.Migrate(db); err != nil {
		fatal(logger, "database migration failed", err)
	}

	// --- Repositories ---
	chatRepo, closeCache := newChatRepository(cfg, db, logger)
	defer closeCache()

	// --- Services ---
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.Model = cfg.ChatModel
	provider, err := ai.NewOpenAIProvider(aiConfig)
	if err != nil {
		fatal(logger, "inference provider init failed", err)
	}

	chatConfig := chat.DefaultConfig()
	chatConfig.RecapLimit = cfg.RecapLimit
	if chatConfig.RecapLimit > chat.MaxRecapLimit {
		chatConfig.RecapLimit = chat.MaxRecapLimit
	}
	chatService, err := chat.NewChatService(chatConfig, chat.NewGate(chat.ContextIdentity{}), chatRepo, provider, logger)
	if err != nil {
		fatal(logger, "chat service init failed", err)
	}

	turnLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.TurnConfig(cfg.TurnRateLimit, cfg.TurnRateWindow))
	defer turnLimiter.Close()

	// --- Router Setup ---
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))

	r.HandleFunc("/health", healthHandler(db)).Methods(http.MethodGet)
	r.HandleFunc("/logout", handlers.Logout).Methods(http.MethodPost)
	r.HandleFunc("/api/log", handlers.NewLogHandler(logger).LogClientEvent).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewIdentityMiddleware([]byte(secret), logger))
	handlers.NewChatHandler(chatService, logger).RegisterRoutes(api,
		middleware.RateLimitMiddleware(turnLimiter, "turn", logger))

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "db_driver", cfg.DBDriver, "model", cfg.ChatModel)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "server startup failed", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped")
}

// newChatRepository wraps the gorm repository in a redis read cache when REDIS_ADDR is set.
func newChatRepository(cfg *config.Config, db *gorm.DB, logger services.Logger) (chatrepo.ChatRepository, func()) {
	repo := chatrepo.NewChatRepository(db, message.NewMessageRepository(db), logger)
	if cfg.RedisAddr == "" {
		return repo, func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, chat cache disabled", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return repo, func() {}
	}

	logger.Info("chat cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ChatCacheTTL.String())
	cache := chatrepo.NewRedisChatCache(client, cfg.ChatCacheTTL, logger)
	return chatrepo.NewCachedChatRepository(repo, cache, logger), func() { _ = client.Close() }
}

func healthHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func fatal(logger services.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
