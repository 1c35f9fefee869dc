package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemRepository keeps attendance in process memory for dev mode and tests.
type MemRepository struct {
	mu      sync.Mutex
	records []Record
	guests  []Guest

	// Clock stamps CreatedAt; defaults to time.Now.
	Clock func() time.Time
	// FailWrite, when set, is consulted before "insert_record" and
	// "insert_guest"; an error aborts the write.
	FailWrite func(op string) error
	// FailOrdered makes ByDate fail, as an ordered query without its index would.
	FailOrdered error
}

// NewMemRepository creates an empty repository.
func NewMemRepository() *MemRepository {
	return &MemRepository{}
}

func (r *MemRepository) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

func (r *MemRepository) check(ops ...string) error {
	if r.FailWrite == nil {
		return nil
	}
	for _, op := range ops {
		if err := r.FailWrite(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemRepository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("insert_record"); err != nil {
		return Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = r.now()
	r.records = append(r.records, rec)
	return rec, nil
}

func (r *MemRepository) InsertGuest(ctx context.Context, g Guest, rec Record) (Guest, Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("insert_record", "insert_guest"); err != nil {
		return Guest{}, Record{}, err
	}
	now := r.now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = now
	g.ID = uuid.NewString()
	g.PresensiID = rec.ID
	g.CreatedAt = now
	r.records = append(r.records, rec)
	r.guests = append(r.guests, g)
	return g, rec, nil
}

func (r *MemRepository) filter(keep func(Record) bool) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (r *MemRepository) ByDate(ctx context.Context, tanggal string) ([]Record, error) {
	if r.FailOrdered != nil {
		return nil, r.FailOrdered
	}
	out, _ := r.ByDateUnordered(ctx, tanggal)
	SortNewestFirst(out)
	return out, nil
}

func (r *MemRepository) ByDateUnordered(ctx context.Context, tanggal string) ([]Record, error) {
	return r.filter(func(rec Record) bool { return rec.Tanggal == tanggal }), nil
}

func (r *MemRepository) ByRange(ctx context.Context, from, to string) ([]Record, error) {
	out := r.filter(func(rec Record) bool { return rec.Tanggal >= from && rec.Tanggal <= to })
	SortNewestFirst(out)
	return out, nil
}

func (r *MemRepository) RecentForMember(ctx context.Context, memberID string, since time.Time) (*Record, error) {
	out := r.filter(func(rec Record) bool {
		return rec.MemberID != nil && *rec.MemberID == memberID && !rec.WaktuCheckIn.Before(since)
	})
	if len(out) == 0 {
		return nil, nil
	}
	SortNewestFirst(out)
	return &out[0], nil
}

// Guests returns the stored guests in insertion order.
func (r *MemRepository) Guests() []Guest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Guest(nil), r.guests...)
}
