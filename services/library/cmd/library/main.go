package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"chessacademy/internal/ratelimit"
	"chessacademy/internal/util"
	"chessacademy/pkg/kv"
	"chessacademy/services/library/internal/academyclient"
	"chessacademy/services/library/internal/app"
	"chessacademy/services/library/internal/config"
	"chessacademy/services/library/internal/quizclient"
	"chessacademy/services/library/internal/server"
	"chessacademy/services/library/internal/session"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}
	handoffTTL, err := config.ParseHandoffTTL(cfg.HandoffTTL)
	if err != nil {
		log.Fatalf("failed to parse handoff ttl: %v", err)
	}
	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	var store kv.Store
	var redisStore *kv.RedisStore
	if cfg.RedisAddr != "" {
		redisStore = kv.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, handoffTTL)
		store = redisStore
	} else {
		slog.Warn("redis addr not set, hand-off slots are in-process only")
		store = kv.NewMemoryStore()
	}

	academy := academyclient.NewClient(cfg.AcademyBaseURL)
	quizzes := quizclient.NewClient(cfg.QuizAPIBaseURL)

	viewDelay := app.LibraryViewDelay
	if cfg.ViewDelayMs > 0 {
		viewDelay = time.Duration(cfg.ViewDelayMs) * time.Millisecond
	}

	manager := session.NewManager(func(token, sessionID string) (*app.Browser, *app.Bridge) {
		recorder := app.NewViewRecorder(func(ctx context.Context, gameID int) error {
			return academy.RecordView(ctx, token, gameID)
		}, viewDelay)
		browser := app.NewBrowser(app.BrowserConfig{
			Source:   academy,
			Token:    token,
			Recorder: recorder,
		})
		bridge := app.NewBridge(academy, quizzes, kv.Prefixed(store, "sess:"+sessionID+":"), token)
		return browser, bridge
	}, sessionTTL)
	manager.Start(time.Minute)
	defer manager.Stop()

	var viewLimiter *ratelimit.FixedWindowLimiter
	if cfg.ViewRateLimit > 0 && cfg.ViewRateWindowSeconds > 0 && cfg.RedisAddr != "" {
		window := time.Duration(cfg.ViewRateWindowSeconds) * time.Second
		viewLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.ViewRateLimit, window)
		if err != nil {
			log.Fatalf("failed to init view rate limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		Sessions:       manager,
		ViewLimiter:    viewLimiter,
		TrustedProxies: trustedProxies,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("library server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
	if redisStore != nil {
		_ = redisStore.Close()
	}
}
