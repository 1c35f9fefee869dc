package membership

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is a paying client with a tracked membership period.
type Member struct {
	ID               string     `json:"id"`
	MemberID         string     `json:"memberId"`
	Nama             string     `json:"nama"`
	NomorHP          string     `json:"nomorHp"`
	FingerprintID    string     `json:"fingerprintId"`
	PaketMembership  string     `json:"paketMembership"`
	StatusMembership Status     `json:"statusMembership"` // cached at write time, stale otherwise
	TanggalDaftar    time.Time  `json:"tanggalDaftar"`
	TanggalMulai     time.Time  `json:"tanggalMulai"`
	TanggalExpired   *time.Time `json:"tanggalExpired,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Status derives the member's status at now.
func (m Member) Status(now time.Time) Status {
	return Classify(m.TanggalExpired, now)
}

// View is a member with its freshly derived status, as returned to clients.
type View struct {
	Member
	StatusRealtime Status `json:"statusRealtime"`
	SisaHari       *int   `json:"sisaHari,omitempty"`
}

// NewView derives the status of m at now.
func NewView(m Member, now time.Time) View {
	v := View{Member: m, StatusRealtime: m.Status(now)}
	if m.TanggalExpired != nil {
		left := DaysLeft(*m.TanggalExpired, now)
		v.SisaHari = &left
	}
	return v
}

// PaymentMethod is how a renewal was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Cash"
	PaymentQRIS     PaymentMethod = "QRIS"
	PaymentTransfer PaymentMethod = "Transfer"
)

// Valid reports whether p is an accepted method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentQRIS, PaymentTransfer:
		return true
	}
	return false
}

// Transaction is the immutable record of one renewal.
type Transaction struct {
	ID                string          `json:"id"`
	MemberID          string          `json:"memberId"`
	NamaMember        string          `json:"namaMember"`
	PaketMembership   string          `json:"paketMembership"`
	NominalPembayaran decimal.Decimal `json:"nominalPembayaran"`
	MetodePembayaran  PaymentMethod   `json:"metodePembayaran"`
	TanggalTransaksi  time.Time       `json:"tanggalTransaksi"`
	TanggalMulai      time.Time       `json:"tanggalMulai"`
	TanggalExpired    time.Time       `json:"tanggalExpired"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Package is a named duration/price tier.
type Package struct {
	NamaPaket  string          `json:"namaPaket"`
	DurasiHari int             `json:"durasiHari"`
	Harga      decimal.Decimal `json:"harga"`
	Aktif      bool            `json:"aktif"`
}

// DefaultPackages is the reference catalog seeded into storage.
var DefaultPackages = []Package{
	{NamaPaket: "1 Bulan", DurasiHari: 30, Harga: decimal.NewFromInt(150000), Aktif: true},
	{NamaPaket: "3 Bulan", DurasiHari: 90, Harga: decimal.NewFromInt(400000), Aktif: true},
}

// FindPackage returns the active package called name.
func FindPackage(pkgs []Package, name string) (Package, bool) {
	for _, p := range pkgs {
		if p.NamaPaket == name && p.Aktif {
			return p, true
		}
	}
	return Package{}, false
}
