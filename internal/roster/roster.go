// Package roster filters, searches and pages the member list. Status
// filtering always uses the status derived at the given instant, never the
// label cached on the member row.
package roster

import (
	"strings"
	"time"

	"gymdesk/internal/membership"
)

// Filter selects members by derived status.
type Filter string

const (
	FilterAll       Filter = "Semua"
	FilterActive    Filter = Filter(membership.StatusActive) // "Aktif" band only, no warning bands
	FilterH7        Filter = Filter(membership.StatusH7)
	FilterH3        Filter = Filter(membership.StatusH3)
	FilterExpired   Filter = Filter(membership.StatusExpired)
	FilterActiveAny Filter = "Aktif (Semua)" // every non-expired band, as counted on the dashboard
)

// ParseFilter maps a query value to a Filter; blank means FilterAll.
func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(strings.TrimSpace(s)); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterActive, FilterH7, FilterH3, FilterExpired, FilterActiveAny:
		return f, true
	}
	return "", false
}

// Match reports whether a member with status st passes f.
func (f Filter) Match(st membership.Status) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterActiveAny:
		return st.IsActive()
	default:
		return membership.Status(f) == st
	}
}

// DefaultPageSize is the member table's page size.
const DefaultPageSize = 7

// Query describes one view of the member table.
type Query struct {
	Status   Filter
	Name     string // case-insensitive substring of nama
	Page     int
	PageSize int
}

// WithFilter returns q filtered by f, back on the first page.
func (q Query) WithFilter(f Filter) Query {
	q.Status = f
	q.Page = 1
	return q
}

// WithSearch returns q searching for name, back on the first page.
func (q Query) WithSearch(name string) Query {
	q.Name = name
	q.Page = 1
	return q
}

// Page is one slice of the filtered member list.
type Page struct {
	Items         []membership.View `json:"items"`
	Page          int               `json:"page"`
	PageSize      int               `json:"pageSize"`
	TotalPages    int               `json:"totalPages"`
	TotalFiltered int               `json:"totalFiltered"`
	Buttons       []Button          `json:"buttons"`
}

// Apply filters members by status and name, then returns the requested
// page. Order is preserved. Page is clamped to [1, TotalPages].
func Apply(members []membership.Member, q Query, now time.Time) Page {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	needle := strings.ToLower(q.Name)

	filtered := make([]membership.View, 0, len(members))
	for _, m := range members {
		v := membership.NewView(m, now)
		if !q.Status.Match(v.StatusRealtime) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Nama), needle) {
			continue
		}
		filtered = append(filtered, v)
	}

	total := TotalPages(len(filtered), size)
	page := q.Page
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	end := start + size
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Page{
		Items:         filtered[start:end],
		Page:          page,
		PageSize:      size,
		TotalPages:    total,
		TotalFiltered: len(filtered),
		Buttons:       PageWindow(page, total),
	}
}

// TotalPages is ceil(n/size).
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Lookup returns members whose name, phone or member id contains q,
// ignoring case, keeping at most limit results (0 means no limit).
func Lookup(members []membership.Member, q string, limit int) []membership.Member {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return nil
	}
	var out []membership.Member
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.Nama), needle) ||
			strings.Contains(strings.ToLower(m.NomorHP), needle) ||
			strings.Contains(strings.ToLower(m.MemberID), needle) {
			out = append(out, m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
