package attendance

import (
	"context"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/membership"
)

// ReportQuery selects a daily or monthly attendance report. Exactly one of
// Date and Month is set. Status only narrows Member rows and only when Tipe
// is TipeMember.
type ReportQuery struct {
	Date   string
	Month  string
	Tipe   string // "", "Semua", "Member" or "Tamu"
	Status string // "", "Semua" or a membership status label
}

// Report is a filtered attendance list with totals.
type Report struct {
	Records      []Record `json:"records"`
	TotalCheckIn int      `json:"totalCheckIn"`
	TotalMember  int      `json:"totalMember"`
	TotalTamu    int      `json:"totalTamu"`
}

// ReportFilter narrows records by type and by the member's current status.
type ReportFilter struct {
	Tipe   Tipe              // empty keeps both
	Status membership.Status // empty keeps every status
	// Current maps memberId to the member's status now; records of members
	// not in the map fall back to the label captured at check-in.
	Current map[string]membership.Status
}

// Keep reports whether rec passes f.
func (f ReportFilter) Keep(rec Record) bool {
	if f.Tipe != "" && rec.Tipe != f.Tipe {
		return false
	}
	if f.Tipe != TipeMember || f.Status == "" {
		return true
	}
	status := membership.Status(rec.StatusMembership)
	if rec.MemberID != nil {
		if cur, ok := f.Current[*rec.MemberID]; ok {
			status = cur
		}
	}
	return status == f.Status
}

// Summarize applies f to records and totals the survivors by type.
func Summarize(records []Record, f ReportFilter) Report {
	rep := Report{Records: []Record{}}
	for _, rec := range records {
		if !f.Keep(rec) {
			continue
		}
		rep.Records = append(rep.Records, rec)
		switch rec.Tipe {
		case TipeMember:
			rep.TotalMember++
		case TipeTamu:
			rep.TotalTamu++
		}
	}
	rep.TotalCheckIn = len(rep.Records)
	return rep
}

// CurrentStatuses derives each member's status at now, keyed by memberId.
func CurrentStatuses(members []membership.Member, now time.Time) map[string]membership.Status {
	out := make(map[string]membership.Status, len(members))
	for _, m := range members {
		out[m.MemberID] = m.Status(now)
	}
	return out
}

// Report runs q and applies its filters.
func (s *Service) Report(ctx context.Context, q ReportQuery) (Report, error) {
	f, err := parseReportFilter(q)
	if err != nil {
		return Report{}, err
	}

	var recs []Record
	switch {
	case q.Date != "" && q.Month != "":
		return Report{}, apperr.Field("date", "Pilih tanggal atau bulan, bukan keduanya")
	case q.Month != "":
		recs, err = s.ByMonth(ctx, q.Month)
	default:
		date := q.Date
		if date == "" {
			date = s.Today()
		} else if date, err = ParseDate(date); err != nil {
			return Report{}, apperr.Field("date", err.Error())
		}
		recs, err = s.ByDate(ctx, date)
	}
	if err != nil {
		return Report{}, err
	}

	if f.Tipe == TipeMember && f.Status != "" {
		members, err := s.members.List(ctx)
		if err != nil {
			return Report{}, err
		}
		f.Current = CurrentStatuses(members, s.now())
	}
	return Summarize(recs, f), nil
}

func parseReportFilter(q ReportQuery) (ReportFilter, error) {
	var f ReportFilter
	switch Tipe(q.Tipe) {
	case "", "Semua":
	case TipeMember, TipeTamu:
		f.Tipe = Tipe(q.Tipe)
	default:
		return f, apperr.Field("tipe", "Tipe harus Semua, Member atau Tamu")
	}
	if q.Status != "" && q.Status != "Semua" {
		st, ok := membership.ParseStatus(q.Status)
		if !ok {
			return f, apperr.Field("status", "Status membership tidak dikenal")
		}
		f.Status = st
	}
	return f, nil
}
