package membership

import (
	"math"
	"time"
)

// Status is the membership state shown to staff. It is always derived from
// the expiry date; the copy persisted on the member row is display cache.
type Status string

const (
	StatusActive  Status = "Aktif"
	StatusH7      Status = "Aktif (H-7)"
	StatusH3      Status = "Aktif (H-3)"
	StatusExpired Status = "Expired"
)

// Statuses lists every label, most healthy first.
var Statuses = []Status{StatusActive, StatusH7, StatusH3, StatusExpired}

// IsActive reports whether the member may still train (any non-expired band).
func (s Status) IsActive() bool { return s != StatusExpired }

// ParseStatus accepts one of the four labels.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

const day = 24 * time.Hour

// DaysLeft returns the whole days until expiry, rounded up: a membership
// expiring in 30 minutes has one day left.
func DaysLeft(expiry, now time.Time) int {
	return int(math.Ceil(float64(expiry.Sub(now)) / float64(day)))
}

// Classify derives the status for an expiry at instant now. A nil expiry is Expired.
func Classify(expiry *time.Time, now time.Time) Status {
	if expiry == nil || expiry.IsZero() {
		return StatusExpired
	}
	diff := DaysLeft(*expiry, now)
	switch {
	case diff < 0:
		return StatusExpired
	case diff <= 3:
		return StatusH3
	case diff <= 7:
		return StatusH7
	default:
		return StatusActive
	}
}
