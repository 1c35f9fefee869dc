package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/api"
	"gymdesk/internal/attendance"
	"gymdesk/internal/auth"
	"gymdesk/internal/config"
	"gymdesk/internal/fingerprint"
	"gymdesk/internal/httpmiddleware"
	"gymdesk/internal/live"
	"gymdesk/internal/membership"
	"gymdesk/internal/queue"
	"gymdesk/internal/store"
	"gymdesk/internal/worker"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc := cfg.Location()
	health := map[string]api.HealthCheck{}

	var (
		memberRepo membership.Repository
		attRepo    attendance.Repository
		tokens     auth.TokenStore
	)
	switch cfg.StoreBackend {
	case "memory":
		log.Println("store: in-memory, data is lost on restart")
		memberRepo = membership.NewMemRepository()
		attRepo = attendance.NewMemRepository()
		tokens = auth.NewMemTokenStore()
	default:
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		memberRepo = membership.NewPGRepository(db.Client)
		attRepo = attendance.NewPGRepository(db.Client)
		tokens = auth.NewPGTokenStore(db.Client)
		health["db"] = db.Healthy
	}

	var redisClient *store.Redis
	if cfg.QueueBackend != "memory" || cfg.LiveBackend != "memory" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
	}

	var hub live.Hub
	if cfg.LiveBackend == "memory" {
		hub = live.NewMemoryHub()
	} else {
		hub = live.NewRedisHub(redisClient.Client, "")
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	members := membership.NewService(memberRepo, membership.Options{
		Location: loc,
		Notifier: hub,
		Enroller: fingerprint.New(cfg.FingerprintURL, cfg.FingerprintSkip),
	})
	att := attendance.NewService(attRepo, members, attendance.Options{
		Location:    loc,
		DedupWindow: cfg.DedupWindow,
		Notifier:    hub,
	})

	adminHash := cfg.AdminPasswordHash
	if adminHash == "" {
		log.Println("ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}
	signer := auth.Signer{Issuer: cfg.JWTIssuer, Key: cfg.JWTSigningKey, AccessTTL: cfg.AccessTTL, RefreshTTL: cfg.RefreshTTL}

	// The in-memory queue only reaches consumers in this process.
	if cfg.QueueBackend == "memory" {
		go func() {
			if err := worker.Run(ctx, q, att); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
	}

	srv := api.New(api.Options{
		Members:    members,
		Attendance: att,
		Auth:       auth.NewService(signer, tokens, cfg.AdminUsername, adminHash),
		Queue:      q,
		Hub:        hub,
		Limiter:    httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Health:     health,
		PageSize:   cfg.PageSize,
	})

	// WriteTimeout stays zero: SSE responses are long-lived.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Ending ctx closes open streams so Shutdown is not held up by them.
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
