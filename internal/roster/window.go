package roster

// Button is one entry of the pager: a page number or an ellipsis gap.
type Button struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// PageWindow lists the pager buttons for current of total pages. Up to five
// pages are all shown; beyond that the first and last page, the current page
// and its neighbours, and an ellipsis for each hidden run.
func PageWindow(current, total int) []Button {
	var out []Button
	if total <= 5 {
		for i := 1; i <= total; i++ {
			out = append(out, Button{Page: i})
		}
		return out
	}

	out = append(out, Button{Page: 1})
	if current > 3 {
		out = append(out, Button{Ellipsis: true})
	}
	for i := max(2, current-1); i <= min(total-1, current+1); i++ {
		out = append(out, Button{Page: i})
	}
	if current < total-2 {
		out = append(out, Button{Ellipsis: true})
	}
	return append(out, Button{Page: total})
}
