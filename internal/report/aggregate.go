// Package report builds the visit chart and the dashboard counters.
package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"gymdesk/internal/attendance"
	"gymdesk/internal/metrics"
)

// MaxDays bounds a chart request.
const MaxDays = 366

// fetchLimit is how many day queries run at once.
const fetchLimit = 4

// DayCount is one point of the visit chart.
type DayCount struct {
	Tanggal string `json:"tanggal"` // YYYY-MM-DD
	Label   string `json:"label"`   // "2 Jan"
	Member  int    `json:"member"`
	Tamu    int    `json:"tamu"`
	Total   int    `json:"total"`
}

// FetchFunc loads the records of one day key.
type FetchFunc func(ctx context.Context, tanggal string) ([]attendance.Record, error)

var shortMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// Label formats t as a short Indonesian day label, e.g. "2 Jan".
func Label(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), shortMonths[t.Month()-1])
}

// Aggregate counts visits for the days days ending at today, oldest first,
// in today's location. A day whose fetch fails is reported as zero and does
// not affect the other days.
func Aggregate(ctx context.Context, days int, today time.Time, fetch FetchFunc) []DayCount {
	if days <= 0 {
		return nil
	}
	out := make([]DayCount, days)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)

	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i-(days-1))
		key := d.Format("2006-01-02")
		out[i] = DayCount{Tanggal: key, Label: Label(d)}

		slot := &out[i]
		g.Go(func() error {
			recs, err := fetch(gctx, key)
			if err != nil {
				log.Printf("visit chart: fetch %s failed: %v", key, err)
				metrics.AggregateDayFailures.Inc()
				return nil
			}
			for _, r := range recs {
				switch r.Tipe {
				case attendance.TipeMember:
					slot.Member++
				case attendance.TipeTamu:
					slot.Tamu++
				}
			}
			slot.Total = slot.Member + slot.Tamu
			return nil
		})
	}
	_ = g.Wait()
	return out
}
