package membership

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gymdesk/internal/apperr"
)

type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *recordingNotifier) Notify(_ context.Context, topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
}

type failingEnroller struct{ calls int }

func (e *failingEnroller) Enroll(context.Context, string, string) error {
	e.calls++
	return errors.New("reader offline")
}

func newTestService(t *testing.T, now time.Time) (*Service, *MemRepository, *recordingNotifier) {
	t.Helper()
	repo := NewMemRepository()
	n := &recordingNotifier{}
	svc := NewService(repo, Options{
		Location: time.UTC,
		Now:      func() time.Time { return now },
		Notifier: n,
	})
	return svc, repo, n
}

func validRegistration(fp string) Registration {
	return Registration{Nama: "Ahmad Rizky", NomorHP: "081234567801", FingerprintID: fp, PaketMembership: "1 Bulan"}
}

func TestRegister(t *testing.T) {
	now := time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)
	svc, _, n := newTestService(t, now)

	m, err := svc.Register(context.Background(), validRegistration("1"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if m.MemberID != "MBR001" {
		t.Fatalf("expected MBR001, got %s", m.MemberID)
	}
	if m.TanggalExpired == nil || !m.TanggalExpired.Equal(now.AddDate(0, 0, 30)) {
		t.Fatalf("expected expiry in 30 days, got %v", m.TanggalExpired)
	}
	if !m.TanggalMulai.Equal(now) || !m.TanggalDaftar.Equal(now) {
		t.Fatalf("expected start and registration at now")
	}
	if m.StatusMembership != StatusActive {
		t.Fatalf("expected cached status Aktif, got %s", m.StatusMembership)
	}
	if len(n.topics) != 1 || n.topics[0] != Topic {
		t.Fatalf("expected one members notification, got %v", n.topics)
	}

	second, err := svc.Register(context.Background(), Registration{Nama: "Budi Santoso", NomorHP: "081234567802", FingerprintID: "2", PaketMembership: "3 Bulan"})
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if second.MemberID != "MBR002" || !second.TanggalExpired.Equal(now.AddDate(0, 0, 90)) {
		t.Fatalf("unexpected second member %+v", second)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, repo, _ := newTestService(t, time.Now())

	_, err := svc.Register(context.Background(), Registration{Nama: "A1", NomorHP: "0712", FingerprintID: "x"})
	var aerr *apperr.Error
	if !errors.As(err, &aerr) || aerr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"nama", "nomorHp", "fingerprintId", "paketMembership"} {
		if aerr.Fields[field] == "" {
			t.Fatalf("expected error on %s, got %v", field, aerr.Fields)
		}
	}

	_, err = svc.Register(context.Background(), Registration{Nama: "Citra Dewi", NomorHP: "081234567803", FingerprintID: "3", PaketMembership: "6 Bulan"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected unknown package to be rejected, got %v", err)
	}
	if n, _ := repo.CountMembers(context.Background()); n != 0 {
		t.Fatalf("expected no members written, got %d", n)
	}
}

func TestRegisterDuplicateFingerprint(t *testing.T) {
	svc, _, _ := newTestService(t, time.Now())
	if _, err := svc.Register(context.Background(), validRegistration("7")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(context.Background(), validRegistration("7"))
	var aerr *apperr.Error
	if !errors.As(err, &aerr) || aerr.Kind != apperr.KindConflict || aerr.Fields["fingerprintId"] == "" {
		t.Fatalf("expected fingerprintId conflict, got %v", err)
	}
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate to be wrapped, got %v", err)
	}
}

func TestRegisterEnrollFailureIsNotFatal(t *testing.T) {
	enroller := &failingEnroller{}
	svc := NewService(NewMemRepository(), Options{Enroller: enroller})
	if _, err := svc.Register(context.Background(), validRegistration("9")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if enroller.calls != 1 {
		t.Fatalf("expected one enroll call, got %d", enroller.calls)
	}
}

func TestRegisterConcurrentIDsUnique(t *testing.T) {
	svc := NewService(NewMemRepository(), Options{})
	const n = 50

	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := svc.Register(context.Background(), validRegistration(strconv.Itoa(i+1)))
			ids[i], errs[i] = m.MemberID, err
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, id := range ids {
		if errs[i] != nil {
			t.Fatalf("register %d: %v", i, errs[i])
		}
		if seen[id] {
			t.Fatalf("duplicate member id %s", id)
		}
		seen[id] = true
	}
	if !seen["MBR001"] || !seen["MBR050"] {
		t.Fatalf("expected ids MBR001..MBR050, got %v", ids)
	}
}

func TestRenewStacksAndRecordsTransaction(t *testing.T) {
	regAt := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	clock := regAt
	repo := NewMemRepository()
	svc := NewService(repo, Options{Location: time.UTC, Now: func() time.Time { return clock }})

	m, err := svc.Register(context.Background(), validRegistration("1"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// 20 days later, 10 days remain on the first term.
	clock = regAt.AddDate(0, 0, 20)
	txn, err := svc.Renew(context.Background(), m.ID, RenewalInput{PaketMembership: "1 Bulan", MetodePembayaran: PaymentQRIS})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	oldExpiry := regAt.AddDate(0, 0, 30)
	if !txn.TanggalMulai.Equal(oldExpiry) {
		t.Fatalf("expected start at old expiry %s, got %s", oldExpiry, txn.TanggalMulai)
	}
	if want := clock.AddDate(0, 0, 40); !txn.TanggalExpired.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, txn.TanggalExpired)
	}
	if !txn.NominalPembayaran.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("expected catalog price, got %s", txn.NominalPembayaran)
	}

	got, err := svc.Get(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TanggalExpired.Equal(txn.TanggalExpired) {
		t.Fatalf("member expiry %s does not match transaction %s", got.TanggalExpired, txn.TanggalExpired)
	}

	txns, err := svc.Transactions(context.Background(), m.ID)
	if err != nil || len(txns) != 1 {
		t.Fatalf("expected one transaction, got %d (%v)", len(txns), err)
	}
}

func TestRenewLapsedRestartsAtNow(t *testing.T) {
	regAt := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	clock := regAt
	svc := NewService(NewMemRepository(), Options{Location: time.UTC, Now: func() time.Time { return clock }})
	m, _ := svc.Register(context.Background(), validRegistration("1"))

	clock = regAt.AddDate(0, 0, 35)
	txn, err := svc.Renew(context.Background(), m.ID, RenewalInput{PaketMembership: "3 Bulan", MetodePembayaran: PaymentCash})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !txn.TanggalMulai.Equal(clock) || !txn.TanggalExpired.Equal(clock.AddDate(0, 0, 90)) {
		t.Fatalf("unexpected period %s - %s", txn.TanggalMulai, txn.TanggalExpired)
	}
}

func TestRenewIsAtomic(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	svc, repo, _ := newTestService(t, now)
	m, err := svc.Register(context.Background(), validRegistration("1"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	repo.FailWrite = func(op string) error {
		if op == "update_member" {
			return errors.New("connection reset")
		}
		return nil
	}
	_, err = svc.Renew(context.Background(), m.ID, RenewalInput{PaketMembership: "1 Bulan", MetodePembayaran: PaymentCash})
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if body := apperr.Body(err); body["error"] != apperr.MsgSaveFailed {
		t.Fatalf("expected generic message, got %v", body)
	}

	repo.FailWrite = nil
	got, _ := svc.Get(context.Background(), m.ID)
	if !got.TanggalExpired.Equal(*m.TanggalExpired) {
		t.Fatalf("expiry changed after failed renewal: %s -> %s", m.TanggalExpired, got.TanggalExpired)
	}
	if txns, _ := svc.Transactions(context.Background(), m.ID); len(txns) != 0 {
		t.Fatalf("expected no transaction after failed renewal, got %d", len(txns))
	}
}

func TestRenewValidationAndNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, time.Now())

	_, err := svc.Renew(context.Background(), "missing", RenewalInput{PaketMembership: "1 Bulan", MetodePembayaran: "Kartu"})
	var aerr *apperr.Error
	if !errors.As(err, &aerr) || aerr.Fields["metodePembayaran"] == "" {
		t.Fatalf("expected metodePembayaran error, got %v", err)
	}

	_, err = svc.Renew(context.Background(), "missing", RenewalInput{PaketMembership: "1 Bulan", MetodePembayaran: PaymentTransfer})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPackagesFiltersInactive(t *testing.T) {
	repo := NewMemRepository()
	repo.packages = append(repo.packages, Package{NamaPaket: "6 Bulan", DurasiHari: 180, Harga: decimal.NewFromInt(700000), Aktif: false})
	svc := NewService(repo, Options{})

	pkgs, err := svc.Packages(context.Background())
	if err != nil {
		t.Fatalf("packages: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("expected 2 active packages, got %d", len(pkgs))
	}
}

func TestNewViewDerivesStatus(t *testing.T) {
	now := time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(2 * day)
	v := NewView(Member{StatusMembership: StatusActive, TanggalExpired: &expiry}, now)
	if v.StatusRealtime != StatusH3 {
		t.Fatalf("expected H-3 from expiry, got %s", v.StatusRealtime)
	}
	if v.SisaHari == nil || *v.SisaHari != 2 {
		t.Fatalf("expected 2 days left, got %v", v.SisaHari)
	}
	if NewView(Member{}, now).SisaHari != nil {
		t.Fatal("expected no days left without expiry")
	}
}
