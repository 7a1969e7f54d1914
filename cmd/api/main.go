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

	"github.com/joho/godotenv"

	"github.com/zhouzirui/campus-chat/backend/internal/config"
	"github.com/zhouzirui/campus-chat/backend/internal/handler"
	"github.com/zhouzirui/campus-chat/backend/internal/middleware"
	"github.com/zhouzirui/campus-chat/backend/internal/service/ai"
	"github.com/zhouzirui/campus-chat/backend/internal/service/chat"
	"github.com/zhouzirui/campus-chat/backend/internal/service/knowledge"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Shared CSV cache (optional)
	storeCfg := knowledge.StoreConfig{
		Source: cfg.Knowledge.CSVURL,
		TTL:    cfg.Knowledge.CacheTTL,
	}
	if cfg.Knowledge.RedisURL != "" {
		cache, err := knowledge.NewRedisCache(ctx, cfg.Knowledge.RedisURL)
		if err != nil {
			log.Printf("warning: redis unavailable, using in-process cache only: %v", err)
		} else {
			defer cache.Close()
			storeCfg.Cache = cache
			log.Println("Redis CSV cache enabled")
		}
	}
	if cfg.Knowledge.CSVURL == "" {
		log.Println("CSV_URL 未配置，知识库为空")
	}
	store := knowledge.NewStore(storeCfg)

	// Initialize AI service
	var generator chat.Generator
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			generator = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，/api/chat 将返回 503")
	}

	chatService := chat.NewService(generator, store, cfg.Knowledge.MatchCutoff)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled() {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
		go limiter.Run(ctx)
	}

	router := handler.NewRouter(handler.Dependencies{
		Chat:           chatService,
		Knowledge:      store,
		AdminToken:     cfg.Admin.Token,
		FrameAncestors: cfg.Embed.FrameAncestors,
		RateLimiter:    limiter,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Campus chat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
