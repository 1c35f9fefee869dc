package report

import (
	"time"

	"gymdesk/internal/attendance"
	"gymdesk/internal/membership"
)

// Dashboard holds the front-page counters.
type Dashboard struct {
	TotalMember    int                 `json:"totalMember"`
	MemberAktif    int                 `json:"memberAktif"` // every non-expired band
	ByStatus       map[string]int      `json:"byStatus"`
	ExpiredH7      int                 `json:"expiredH7"`
	ExpiredH3      int                 `json:"expiredH3"`
	Expired        int                 `json:"expired"`
	CheckInHariIni int                 `json:"checkInHariIni"`
	MemberHariIni  int                 `json:"memberHariIni"`
	TamuHariIni    int                 `json:"tamuHariIni"`
	Terbaru        []attendance.Record `json:"terbaru"`
}

// recentLimit caps the latest check-ins shown on the dashboard.
const recentLimit = 10

// BuildDashboard classifies members at now and counts today's records,
// which are expected newest first.
func BuildDashboard(members []membership.Member, today []attendance.Record, now time.Time) Dashboard {
	d := Dashboard{TotalMember: len(members), ByStatus: make(map[string]int, len(membership.Statuses))}
	for _, st := range membership.Statuses {
		d.ByStatus[string(st)] = 0
	}
	for _, m := range members {
		st := m.Status(now)
		d.ByStatus[string(st)]++
		if st.IsActive() {
			d.MemberAktif++
		}
	}
	d.ExpiredH7 = d.ByStatus[string(membership.StatusH7)]
	d.ExpiredH3 = d.ByStatus[string(membership.StatusH3)]
	d.Expired = d.ByStatus[string(membership.StatusExpired)]

	for _, r := range today {
		switch r.Tipe {
		case attendance.TipeMember:
			d.MemberHariIni++
		case attendance.TipeTamu:
			d.TamuHariIni++
		}
	}
	d.CheckInHariIni = len(today)
	d.Terbaru = today[:min(len(today), recentLimit)]
	if d.Terbaru == nil {
		d.Terbaru = []attendance.Record{}
	}
	return d
}
