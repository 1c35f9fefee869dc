package membership

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/metrics"
	"gymdesk/internal/validate"
)

// Topic is the live-update topic published after member writes.
const Topic = "members"

var (
	ErrMemberNotFound = errors.New("membership: member not found")
	ErrDuplicate      = errors.New("membership: fingerprint id already registered")
)

// RenewFunc receives the locked current member and returns the transaction
// to append and the member row to write back.
type RenewFunc func(current Member) (Transaction, Member, error)

// Repository persists members, packages and renewal transactions.
// Lookups return (nil, nil) when nothing matches.
type Repository interface {
	ListPackages(ctx context.Context) ([]Package, error)
	// CreateMember assigns ID and MemberID from an atomic sequence.
	CreateMember(ctx context.Context, m Member) (Member, error)
	GetMember(ctx context.Context, id string) (*Member, error)
	FindByMemberID(ctx context.Context, memberID string) (*Member, error)
	FindByFingerprint(ctx context.Context, fingerprintID string) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	CountMembers(ctx context.Context) (int, error)
	// Renew runs apply and both writes in one transaction.
	Renew(ctx context.Context, id string, apply RenewFunc) (Transaction, error)
	ListTransactions(ctx context.Context, memberID string) ([]Transaction, error)
}

// Notifier is told which topic changed after a committed write.
type Notifier interface {
	Notify(ctx context.Context, topic string)
}

// Enroller binds a fingerprint slot on the reader to a member.
type Enroller interface {
	Enroll(ctx context.Context, fingerprintID, name string) error
}

// Options configures a Service. Zero values fall back to local time and no-ops.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	Notifier Notifier
	Enroller Enroller
}

// Service coordinates registration and renewal.
type Service struct {
	repo     Repository
	loc      *time.Location
	now      func() time.Time
	notifier Notifier
	enroller Enroller
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{repo: repo, loc: opts.Location, now: opts.Now, notifier: opts.Notifier, enroller: opts.Enroller}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Now returns the current instant in the service's location.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Location is the zone used for calendar arithmetic.
func (s *Service) Location() *time.Location { return s.loc }

// Registration is the input for a new member.
type Registration struct {
	Nama            string
	NomorHP         string
	FingerprintID   string
	PaketMembership string
}

// RenewalInput is the input for a renewal transaction.
type RenewalInput struct {
	PaketMembership  string
	MetodePembayaran PaymentMethod
}

// Packages returns the active catalog.
func (s *Service) Packages(ctx context.Context) ([]Package, error) {
	pkgs, err := s.repo.ListPackages(ctx)
	if err != nil {
		return nil, apperr.Unavailable("list packages", err)
	}
	if len(pkgs) == 0 {
		return DefaultPackages, nil
	}
	var active []Package
	for _, p := range pkgs {
		if p.Aktif {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *Service) findPackage(ctx context.Context, name string) (Package, error) {
	pkgs, err := s.Packages(ctx)
	if err != nil {
		return Package{}, err
	}
	pkg, ok := FindPackage(pkgs, name)
	if !ok {
		return Package{}, apperr.Field("paketMembership", "Pilih paket membership")
	}
	return pkg, nil
}

// Register creates a member whose first term starts now.
func (s *Service) Register(ctx context.Context, in Registration) (Member, error) {
	in.Nama = strings.TrimSpace(in.Nama)
	in.NomorHP = strings.TrimSpace(in.NomorHP)
	in.FingerprintID = strings.TrimSpace(in.FingerprintID)

	fields := validate.Collect(map[string]string{
		"nama":            validate.Nama(in.Nama),
		"nomorHp":         validate.NomorHP(in.NomorHP),
		"fingerprintId":   validate.FingerprintID(in.FingerprintID),
		"paketMembership": validate.Required(in.PaketMembership, "Pilih paket membership"),
	})
	if len(fields) > 0 {
		return Member{}, apperr.Validation(fields)
	}
	pkg, err := s.findPackage(ctx, in.PaketMembership)
	if err != nil {
		return Member{}, err
	}

	now := s.Now()
	period := Renew(nil, now, pkg.DurasiHari)
	m := Member{
		Nama:             in.Nama,
		NomorHP:          in.NomorHP,
		FingerprintID:    in.FingerprintID,
		PaketMembership:  pkg.NamaPaket,
		StatusMembership: Classify(&period.End, now),
		TanggalDaftar:    now,
		TanggalMulai:     period.Start,
		TanggalExpired:   &period.End,
	}

	created, err := s.repo.CreateMember(ctx, m)
	if errors.Is(err, ErrDuplicate) {
		return Member{}, apperr.ConflictField("fingerprintId", "Fingerprint ID sudah terdaftar", err)
	}
	if err != nil {
		return Member{}, apperr.Unavailable("create member", err)
	}

	if s.enroller != nil {
		if err := s.enroller.Enroll(ctx, created.FingerprintID, created.Nama); err != nil {
			log.Printf("fingerprint enroll for %s failed: %v", created.MemberID, err)
		}
	}
	metrics.Registrations.Inc()
	s.notify(ctx)
	return created, nil
}

// Renew records a renewal and moves the member's term in one transaction.
func (s *Service) Renew(ctx context.Context, id string, in RenewalInput) (Transaction, error) {
	fields := validate.Collect(map[string]string{
		"paketMembership": validate.Required(in.PaketMembership, "Pilih paket membership"),
	})
	if !in.MetodePembayaran.Valid() {
		fields["metodePembayaran"] = "Pilih metode pembayaran"
	}
	if len(fields) > 0 {
		return Transaction{}, apperr.Validation(fields)
	}
	pkg, err := s.findPackage(ctx, in.PaketMembership)
	if err != nil {
		return Transaction{}, err
	}

	now := s.Now()
	txn, err := s.repo.Renew(ctx, id, func(cur Member) (Transaction, Member, error) {
		period := Renew(cur.TanggalExpired, now, pkg.DurasiHari)
		end := period.End

		cur.PaketMembership = pkg.NamaPaket
		cur.TanggalMulai = period.Start
		cur.TanggalExpired = &end
		cur.StatusMembership = Classify(&end, now)
		cur.UpdatedAt = now

		return Transaction{
			MemberID:          cur.MemberID,
			NamaMember:        cur.Nama,
			PaketMembership:   pkg.NamaPaket,
			NominalPembayaran: pkg.Harga,
			MetodePembayaran:  in.MetodePembayaran,
			TanggalTransaksi:  now,
			TanggalMulai:      period.Start,
			TanggalExpired:    end,
		}, cur, nil
	})
	if errors.Is(err, ErrMemberNotFound) {
		return Transaction{}, apperr.NotFound("Member tidak ditemukan")
	}
	if err != nil {
		return Transaction{}, apperr.Unavailable("renew membership", err)
	}

	metrics.Renewals.WithLabelValues(txn.PaketMembership, string(txn.MetodePembayaran)).Inc()
	s.notify(ctx)
	return txn, nil
}

// Get returns a member by row id.
func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	return s.found(s.repo.GetMember(ctx, id))
}

// ByMemberID returns a member by its MBR identifier.
func (s *Service) ByMemberID(ctx context.Context, memberID string) (Member, error) {
	return s.found(s.repo.FindByMemberID(ctx, memberID))
}

// ByFingerprint returns the member bound to a reader slot.
func (s *Service) ByFingerprint(ctx context.Context, fingerprintID string) (Member, error) {
	return s.found(s.repo.FindByFingerprint(ctx, fingerprintID))
}

func (s *Service) found(m *Member, err error) (Member, error) {
	if err != nil {
		return Member{}, apperr.Unavailable("get member", err)
	}
	if m == nil {
		return Member{}, apperr.NotFound("Member tidak ditemukan")
	}
	return *m, nil
}

// List returns all members, newest first.
func (s *Service) List(ctx context.Context) ([]Member, error) {
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, apperr.Unavailable("list members", err)
	}
	return members, nil
}

// Transactions returns the renewal history of the member with row id.
func (s *Service) Transactions(ctx context.Context, id string) ([]Transaction, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactions(ctx, m.MemberID)
	if err != nil {
		return nil, apperr.Unavailable("list transactions", err)
	}
	return txns, nil
}

func (s *Service) notify(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, Topic)
	}
}
