package main

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"gymdesk/internal/attendance"
	"gymdesk/internal/config"
	"gymdesk/internal/membership"
	"gymdesk/internal/seed"
	"gymdesk/internal/store"
)

// Seed fills an empty database with demo members and visits.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	members := membership.NewPGRepository(db.Client)
	seedValue := uint64(time.Now().UnixNano())
	res, err := seed.Run(ctx, seed.Stores{
		Packages:   members,
		Members:    members,
		Attendance: attendance.NewPGRepository(db.Client),
	}, time.Now(), cfg.Location(), rand.New(rand.NewPCG(seedValue, seedValue>>1)))
	if errors.Is(err, seed.ErrAlreadySeeded) {
		log.Println(err)
		db.Close()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed selesai: %d paket, %d member, %d presensi (%d tamu)", res.Paket, res.Members, res.Presensi, res.Tamu)
}
