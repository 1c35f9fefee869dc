package membership

import (
	"fmt"
	"time"
)

// Period is one membership term.
type Period struct {
	Start time.Time
	End   time.Time
}

// Renew computes the next term. A lapsed or missing expiry restarts at now;
// an active one is extended from its current end so early renewals keep
// the remaining days. Days are added on the calendar of start's location.
func Renew(currentExpiry *time.Time, now time.Time, days int) Period {
	start := now
	if currentExpiry != nil && currentExpiry.After(now) {
		start = currentExpiry.In(now.Location())
	}
	return Period{Start: start, End: start.AddDate(0, 0, days)}
}

// NextMemberID formats the identifier following count existing members.
// Two callers that read the same count get the same identifier, so the
// service takes numbers from an atomic sequence instead of a count.
func NextMemberID(count int) string {
	return fmt.Sprintf("MBR%03d", count+1)
}
