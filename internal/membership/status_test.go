package membership

import (
	"testing"
	"time"
)

func TestClassifyBands(t *testing.T) {
	now := time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		offset time.Duration
		want   Status
	}{
		{"eight days", 8 * day, StatusActive},
		{"seven days", 7 * day, StatusH7},
		{"four days", 4 * day, StatusH7},
		{"three days", 3 * day, StatusH3},
		{"three days and a minute rounds up to four", 3*day + time.Minute, StatusH7},
		{"thirty minutes counts as one day", 30 * time.Minute, StatusH3},
		{"exactly now", 0, StatusH3},
		{"one hour ago rounds to zero", -time.Hour, StatusH3},
		{"one day ago", -day, StatusExpired},
		{"long expired", -40 * day, StatusExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expiry := now.Add(tc.offset)
			if got := Classify(&expiry, now); got != tc.want {
				t.Fatalf("Classify(now%+v) = %q, want %q", tc.offset, got, tc.want)
			}
		})
	}
}

func TestClassifyMissingExpiry(t *testing.T) {
	if got := Classify(nil, time.Now()); got != StatusExpired {
		t.Fatalf("nil expiry: got %q", got)
	}
	var zero time.Time
	if got := Classify(&zero, time.Now()); got != StatusExpired {
		t.Fatalf("zero expiry: got %q", got)
	}
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for diff := -2; diff <= 9; diff++ {
		expiry := now.Add(time.Duration(diff) * day)
		if got := DaysLeft(expiry, now); got != diff {
			t.Fatalf("DaysLeft(%d days) = %d", diff, got)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, ok := ParseStatus(string(s))
		if !ok || got != s {
			t.Fatalf("ParseStatus(%q) = %q, %v", s, got, ok)
		}
	}
	if _, ok := ParseStatus("aktif"); ok {
		t.Fatal("labels are case-sensitive")
	}
	if StatusExpired.IsActive() || !StatusH3.IsActive() {
		t.Fatal("IsActive mismatch")
	}
}
