package attendance

import (
	"fmt"
	"sort"
	"time"
)

// Tipe distinguishes members from walk-in guests.
type Tipe string

const (
	TipeMember Tipe = "Member"
	TipeTamu   Tipe = "Tamu"
)

// Sumber is where a check-in came from.
type Sumber string

const (
	SumberFingerprint Sumber = "fingerprint"
	SumberManual      Sumber = "manual"
)

// GuestStatus is the status label stored on guest records.
const GuestStatus = "-"

// Record is one immutable check-in (presensi).
type Record struct {
	ID               string    `json:"id"`
	MemberID         *string   `json:"memberId"`
	FingerprintID    *string   `json:"fingerprintId"`
	Nama             string    `json:"nama"`
	Tipe             Tipe      `json:"tipe"`
	StatusMembership string    `json:"statusMembership"` // label at check-in time
	WaktuCheckIn     time.Time `json:"waktuCheckIn"`
	Tanggal          string    `json:"tanggal"`
	Sumber           Sumber    `json:"sumber"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Guest is a walk-in visitor (tamu). Each guest has exactly one Tamu record.
type Guest struct {
	ID               string    `json:"id"`
	Nama             string    `json:"nama"`
	NomorHP          string    `json:"nomorHp"`
	TanggalKunjungan string    `json:"tanggalKunjungan"`
	WaktuKunjungan   time.Time `json:"waktuKunjungan"`
	PresensiID       string    `json:"presensiId"`
	CreatedAt        time.Time `json:"createdAt"`
}

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// DateKey formats t as the YYYY-MM-DD day key in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// ParseDate validates a YYYY-MM-DD key.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t.Format(dateLayout), nil
}

// MonthRange returns the first and last day keys of a YYYY-MM month.
func MonthRange(month string) (from, to string, err error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q: want YYYY-MM", month)
	}
	last := t.AddDate(0, 1, -1)
	return t.Format(dateLayout), last.Format(dateLayout), nil
}

// SortNewestFirst orders records by check-in time, latest first.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].WaktuCheckIn.After(records[j].WaktuCheckIn)
	})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
