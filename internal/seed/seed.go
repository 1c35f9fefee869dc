// Package seed loads demo data into an empty store: the package catalog,
// twenty members spread across every status band and three days of visits.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gymdesk/internal/attendance"
	"gymdesk/internal/membership"
)

// ErrAlreadySeeded is returned when members already exist.
var ErrAlreadySeeded = errors.New("database sudah berisi data, hapus dulu kalau mau seed ulang")

// PackageWriter stores catalog entries.
type PackageWriter interface {
	UpsertPackage(ctx context.Context, p membership.Package) error
}

// Stores are the repositories the seed writes to.
type Stores struct {
	Packages   PackageWriter
	Members    membership.Repository
	Attendance attendance.Repository
}

// Result counts what was written.
type Result struct {
	Paket    int `json:"paket"`
	Members  int `json:"members"`
	Presensi int `json:"presensi"`
	Tamu     int `json:"tamu"`
}

type sample struct {
	nama, nomorHP, fingerprintID, paket string
	daysFromNow                         int
}

var samples = []sample{
	{"Ahmad Rizky", "081234567801", "1", "1 Bulan", 5},
	{"Budi Santoso", "081234567802", "2", "3 Bulan", 2},
	{"Citra Dewi", "081234567803", "3", "1 Bulan", -5},
	{"Doni Pratama", "081234567804", "4", "1 Bulan", 25},
	{"Eka Saputra", "081234567805", "5", "3 Bulan", -10},
	{"Fajar Nugroho", "081234567806", "6", "1 Bulan", 20},
	{"Gita Permata", "081234567807", "7", "1 Bulan", 6},
	{"Hendra Wijaya", "081234567808", "8", "3 Bulan", 45},
	{"Indah Lestari", "081234567809", "9", "1 Bulan", 1},
	{"Joko Susanto", "081234567810", "10", "1 Bulan", 15},
	{"Kartika Sari", "081234567811", "11", "1 Bulan", -3},
	{"Lukman Hakim", "081234567812", "12", "3 Bulan", 60},
	{"Maya Anggraeni", "081234567813", "13", "1 Bulan", 4},
	{"Nanda Putra", "081234567814", "14", "1 Bulan", 18},
	{"Olivia Rahman", "081234567815", "15", "1 Bulan", -7},
	{"Putra Pratama", "081234567816", "16", "1 Bulan", 7},
	{"Rina Marlina", "081234567817", "17", "3 Bulan", 30},
	{"Sandi Firmansyah", "081234567818", "18", "1 Bulan", 3},
	{"Tina Agustina", "081234567819", "19", "1 Bulan", 22},
	{"Umar Bakri", "081234567820", "20", "1 Bulan", -15},
}

var guestNames = []string{"Riko Aditya", "Siska Permata", "Wawan Setiawan", "Dewi Kartini"}

// Run writes the demo data as of now, with day keys in loc. rnd picks who
// visits on each day.
func Run(ctx context.Context, st Stores, now time.Time, loc *time.Location, rnd *rand.Rand) (Result, error) {
	var res Result
	n, err := st.Members.CountMembers(ctx)
	if err != nil {
		return res, fmt.Errorf("count members: %w", err)
	}
	if n > 0 {
		return res, ErrAlreadySeeded
	}
	now = now.In(loc)

	for _, p := range membership.DefaultPackages {
		if err := st.Packages.UpsertPackage(ctx, p); err != nil {
			return res, fmt.Errorf("seed package %s: %w", p.NamaPaket, err)
		}
		res.Paket++
	}

	members := make([]membership.Member, 0, len(samples))
	registered := now.AddDate(0, 0, -30)
	for i, s := range samples {
		expiry := now.AddDate(0, 0, s.daysFromNow)
		m, err := st.Members.CreateMember(ctx, membership.Member{
			Nama:             s.nama,
			NomorHP:          s.nomorHP,
			FingerprintID:    s.fingerprintID,
			PaketMembership:  s.paket,
			StatusMembership: membership.Classify(&expiry, now),
			TanggalDaftar:    registered,
			TanggalMulai:     registered,
			TanggalExpired:   &expiry,
			CreatedAt:        now.Add(-time.Duration(len(samples)-i) * time.Minute),
		})
		if err != nil {
			return res, fmt.Errorf("seed member %s: %w", s.nama, err)
		}
		members = append(members, m)
		res.Members++
	}

	for offset := 0; offset < 3; offset++ {
		day := now.AddDate(0, 0, -offset)
		tanggal := attendance.DateKey(day, loc)

		visitors := append([]membership.Member(nil), members...)
		rnd.Shuffle(len(visitors), func(i, j int) { visitors[i], visitors[j] = visitors[j], visitors[i] })
		visitors = visitors[:6+rnd.IntN(5)]

		for i, m := range visitors {
			at := time.Date(day.Year(), day.Month(), day.Day(), 7+i/3, (i*7+10)%60, 0, 0, loc)
			memberID, fp := m.MemberID, m.FingerprintID
			if _, err := st.Attendance.InsertRecord(ctx, attendance.Record{
				MemberID:         &memberID,
				FingerprintID:    &fp,
				Nama:             m.Nama,
				Tipe:             attendance.TipeMember,
				StatusMembership: string(m.Status(now)),
				WaktuCheckIn:     at,
				Tanggal:          tanggal,
				Sumber:           attendance.SumberFingerprint,
			}); err != nil {
				return res, fmt.Errorf("seed check-in: %w", err)
			}
			res.Presensi++
		}

		guests := 1 + rnd.IntN(2)
		for t := 0; t < guests; t++ {
			at := time.Date(day.Year(), day.Month(), day.Day(), 9+t*3, 30, 0, 0, loc)
			nama := guestNames[(offset*2+t)%len(guestNames)]
			g := attendance.Guest{Nama: nama, NomorHP: fmt.Sprintf("08129999000%d", t), TanggalKunjungan: tanggal, WaktuKunjungan: at}
			rec := attendance.Record{
				Nama:             nama,
				Tipe:             attendance.TipeTamu,
				StatusMembership: attendance.GuestStatus,
				WaktuCheckIn:     at,
				Tanggal:          tanggal,
				Sumber:           attendance.SumberManual,
			}
			if _, _, err := st.Attendance.InsertGuest(ctx, g, rec); err != nil {
				return res, fmt.Errorf("seed guest: %w", err)
			}
			res.Tamu++
			res.Presensi++
		}
	}
	return res, nil
}
