package attendance

import (
	"context"
	"log"
	"strings"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/membership"
	"gymdesk/internal/metrics"
	"gymdesk/internal/validate"
)

// Topic is the live-update topic published after check-ins.
const Topic = "attendance"

// Repository persists check-ins and guests.
type Repository interface {
	InsertRecord(ctx context.Context, rec Record) (Record, error)
	// InsertGuest writes the guest and its Tamu record atomically.
	InsertGuest(ctx context.Context, g Guest, rec Record) (Guest, Record, error)
	ByDate(ctx context.Context, tanggal string) ([]Record, error)
	ByDateUnordered(ctx context.Context, tanggal string) ([]Record, error)
	ByRange(ctx context.Context, from, to string) ([]Record, error)
	RecentForMember(ctx context.Context, memberID string, since time.Time) (*Record, error)
}

// Members resolves the member behind a check-in.
type Members interface {
	ByMemberID(ctx context.Context, memberID string) (membership.Member, error)
	ByFingerprint(ctx context.Context, fingerprintID string) (membership.Member, error)
	List(ctx context.Context) ([]membership.Member, error)
}

// Options configures a Service.
type Options struct {
	Location    *time.Location
	Now         func() time.Time
	DedupWindow time.Duration
	Notifier    membership.Notifier
}

// Service records check-ins and answers attendance queries.
type Service struct {
	repo        Repository
	members     Members
	loc         *time.Location
	now         func() time.Time
	dedupWindow time.Duration
	notifier    membership.Notifier
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, members Members, opts Options) *Service {
	s := &Service{
		repo:        repo,
		members:     members,
		loc:         opts.Location,
		now:         opts.Now,
		dedupWindow: opts.DedupWindow,
		notifier:    opts.Notifier,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.dedupWindow <= 0 {
		s.dedupWindow = 5 * time.Minute
	}
	return s
}

// Today returns today's date key.
func (s *Service) Today() string { return DateKey(s.now(), s.loc) }

// CheckInMember records a front-desk check-in for memberID.
func (s *Service) CheckInMember(ctx context.Context, memberID string) (Record, error) {
	memberID = strings.TrimSpace(memberID)
	if msg := validate.Required(memberID, "Pilih member"); msg != "" {
		return Record{}, apperr.Field("memberId", msg)
	}
	m, err := s.members.ByMemberID(ctx, memberID)
	if err != nil {
		return Record{}, err
	}
	return s.record(ctx, m, SumberManual)
}

// CheckInFingerprint records a reader scan. A repeat scan of the same member
// inside the dedup window returns the earlier record with duplicate set.
func (s *Service) CheckInFingerprint(ctx context.Context, fingerprintID string, scannedAt time.Time) (rec Record, duplicate bool, err error) {
	m, err := s.members.ByFingerprint(ctx, fingerprintID)
	if err != nil {
		return Record{}, false, err
	}
	if scannedAt.IsZero() {
		scannedAt = s.now()
	}
	recent, err := s.repo.RecentForMember(ctx, m.MemberID, scannedAt.Add(-s.dedupWindow))
	if err != nil {
		return Record{}, false, apperr.Unavailable("recent check-in", err)
	}
	if recent != nil {
		return *recent, true, nil
	}
	rec, err = s.recordAt(ctx, m, SumberFingerprint, scannedAt)
	return rec, false, err
}

func (s *Service) record(ctx context.Context, m membership.Member, src Sumber) (Record, error) {
	return s.recordAt(ctx, m, src, s.now())
}

func (s *Service) recordAt(ctx context.Context, m membership.Member, src Sumber, at time.Time) (Record, error) {
	rec := Record{
		MemberID:         strPtr(m.MemberID),
		FingerprintID:    strPtr(m.FingerprintID),
		Nama:             m.Nama,
		Tipe:             TipeMember,
		StatusMembership: string(m.Status(at)),
		WaktuCheckIn:     at,
		Tanggal:          DateKey(at, s.loc),
		Sumber:           src,
	}
	rec, err := s.repo.InsertRecord(ctx, rec)
	if err != nil {
		return Record{}, apperr.Unavailable("insert check-in", err)
	}
	metrics.CheckIns.WithLabelValues(string(rec.Tipe), string(rec.Sumber)).Inc()
	s.notify(ctx)
	return rec, nil
}

// GuestInput is the walk-in form.
type GuestInput struct {
	Nama    string
	NomorHP string
}

// RegisterGuest records a walk-in guest and their Tamu check-in together.
func (s *Service) RegisterGuest(ctx context.Context, in GuestInput) (Guest, Record, error) {
	in.Nama = strings.TrimSpace(in.Nama)
	in.NomorHP = strings.TrimSpace(in.NomorHP)
	fields := validate.Collect(map[string]string{
		"nama":    validate.Nama(in.Nama),
		"nomorHp": validate.NomorHP(in.NomorHP),
	})
	if len(fields) > 0 {
		return Guest{}, Record{}, apperr.Validation(fields)
	}

	now := s.now()
	tanggal := DateKey(now, s.loc)
	g := Guest{Nama: in.Nama, NomorHP: in.NomorHP, TanggalKunjungan: tanggal, WaktuKunjungan: now}
	rec := Record{
		Nama:             in.Nama,
		Tipe:             TipeTamu,
		StatusMembership: GuestStatus,
		WaktuCheckIn:     now,
		Tanggal:          tanggal,
		Sumber:           SumberManual,
	}
	g, rec, err := s.repo.InsertGuest(ctx, g, rec)
	if err != nil {
		return Guest{}, Record{}, apperr.Unavailable("insert guest", err)
	}
	metrics.CheckIns.WithLabelValues(string(rec.Tipe), string(rec.Sumber)).Inc()
	s.notify(ctx)
	return g, rec, nil
}

// ByDate returns a day's records newest first. If the ordered query fails the
// day is re-read unordered and sorted here.
func (s *Service) ByDate(ctx context.Context, tanggal string) ([]Record, error) {
	recs, err := s.repo.ByDate(ctx, tanggal)
	if err == nil {
		return recs, nil
	}
	log.Printf("ordered attendance query for %s failed, sorting locally: %v", tanggal, err)
	metrics.QueryFallbacks.Inc()
	recs, err = s.repo.ByDateUnordered(ctx, tanggal)
	if err != nil {
		return nil, apperr.Unavailable("attendance by date", err)
	}
	SortNewestFirst(recs)
	return recs, nil
}

// ByMonth returns every record of a YYYY-MM month, newest first.
func (s *Service) ByMonth(ctx context.Context, month string) ([]Record, error) {
	from, to, err := MonthRange(month)
	if err != nil {
		return nil, apperr.Field("month", err.Error())
	}
	recs, err := s.repo.ByRange(ctx, from, to)
	if err != nil {
		return nil, apperr.Unavailable("attendance by month", err)
	}
	return recs, nil
}

func (s *Service) notify(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, Topic)
	}
}
