package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gymdesk/internal/attendance"
	"gymdesk/internal/config"
	"gymdesk/internal/fingerprint"
	"gymdesk/internal/live"
	"gymdesk/internal/membership"
	"gymdesk/internal/queue"
	"gymdesk/internal/store"
	"gymdesk/internal/worker"
)

// Worker consumes queued reader scans and records them as check-ins.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.StoreBackend == "memory" || cfg.QueueBackend == "memory" {
		log.Fatalf("worker needs shared storage and queue; with memory backends the api consumes scans itself")
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var hub live.Hub
	if cfg.LiveBackend == "memory" {
		// Check-ins are still recorded; open dashboards only catch up on reload.
		hub = live.NewMemoryHub()
	} else {
		hub = live.NewRedisHub(redisClient.Client, "")
	}

	loc := cfg.Location()
	members := membership.NewService(membership.NewPGRepository(db.Client), membership.Options{Location: loc, Notifier: hub})
	att := attendance.NewService(attendance.NewPGRepository(db.Client), members, attendance.Options{
		Location:    loc,
		DedupWindow: cfg.DedupWindow,
		Notifier:    hub,
	})

	// Check fingerprint service health on startup
	if !cfg.FingerprintSkip {
		if err := fingerprint.New(cfg.FingerprintURL, false).Health(ctx); err != nil {
			log.Printf("WARNING: fingerprint service not available: %v", err)
			log.Println("Scans already queued by devices are still processed")
		} else {
			log.Println("Fingerprint service connected")
		}
	}

	if err := worker.Run(ctx, queue.NewRedisQueue(redisClient.Client, ""), att); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
}
