// Package worker turns queued fingerprint scans into check-ins.
package worker

import (
	"context"
	"log"
	"time"

	"gymdesk/internal/attendance"
	"gymdesk/internal/queue"
)

// CheckIns records a scan.
type CheckIns interface {
	CheckInFingerprint(ctx context.Context, fingerprintID string, scannedAt time.Time) (attendance.Record, bool, error)
}

// Handle processes one message. Malformed messages and unknown fingerprints
// are logged and dropped; the error is returned for the caller's accounting.
func Handle(ctx context.Context, svc CheckIns, msg queue.Message) error {
	scan, err := queue.DecodeScan(msg)
	if err != nil {
		log.Printf("drop message: %v", err)
		return err
	}
	rec, dup, err := svc.CheckInFingerprint(ctx, scan.FingerprintID, scan.ScannedAt)
	if err != nil {
		log.Printf("scan %s from %s failed: %v", scan.FingerprintID, scan.DeviceID, err)
		return err
	}
	if dup {
		log.Printf("scan %s from %s within dedup window, kept %s", scan.FingerprintID, scan.DeviceID, rec.ID)
		return nil
	}
	log.Printf("check-in %s recorded for %s (%s)", rec.ID, rec.Nama, rec.StatusMembership)
	return nil
}

// Run consumes q until ctx ends.
func Run(ctx context.Context, q queue.Queue, svc CheckIns) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	log.Println("worker started, waiting for scans...")
	for msg := range messages {
		_ = Handle(ctx, svc, msg)
	}
	log.Println("worker stopped")
	return nil
}
