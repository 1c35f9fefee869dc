package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/attendance"
	"gymdesk/internal/auth"
	"gymdesk/internal/live"
	"gymdesk/internal/membership"
	"gymdesk/internal/queue"
	"gymdesk/internal/report"
	"gymdesk/internal/roster"
)

var wib = time.FixedZone("WIB", 7*3600)

type fixture struct {
	handler http.Handler
	queue   *queue.InMemory
	hub     *live.MemoryHub
	admin   string
	now     time.Time
}

func newFixture(t *testing.T, health map[string]HealthCheck) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, wib) }
	hub := live.NewMemoryHub()
	members := membership.NewService(membership.NewMemRepository(), membership.Options{Location: wib, Now: now, Notifier: hub})
	att := attendance.NewService(attendance.NewMemRepository(), members, attendance.Options{Location: wib, Now: now, Notifier: hub})

	hash, err := auth.HashPassword("rahasia123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	signer := auth.Signer{Issuer: "gymdesk-test", Key: "test-key", AccessTTL: time.Minute, RefreshTTL: time.Hour}
	q := queue.NewInMemory(4)

	srv := New(Options{
		Members:    members,
		Attendance: att,
		Auth:       auth.NewService(signer, auth.NewMemTokenStore(), "admin", hash),
		Queue:      q,
		Hub:        hub,
		Health:     health,
	})
	f := &fixture{handler: srv.Handler(), queue: q, hub: hub, now: now()}

	var tokens auth.TokenPair
	f.expect(t, http.MethodPost, "/v1/auth/login", "", gin.H{"username": "admin", "password": "rahasia123"}, http.StatusOK, &tokens)
	f.admin = tokens.AccessToken
	return f
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *fixture) expect(t *testing.T, method, path, token string, body any, status int, out any) {
	t.Helper()
	w := f.do(method, path, token, body)
	if w.Code != status {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func (f *fixture) register(t *testing.T, nama, hp, fp string) membership.View {
	t.Helper()
	var resp struct {
		Member membership.View `json:"member"`
	}
	f.expect(t, http.MethodPost, "/v1/members", f.admin, gin.H{
		"nama": nama, "nomorHp": hp, "fingerprintId": fp, "paketMembership": "1 Bulan",
	}, http.StatusCreated, &resp)
	return resp.Member
}

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func TestAuthGuards(t *testing.T) {
	f := newFixture(t, nil)

	var e errorBody
	f.expect(t, http.MethodPost, "/v1/auth/login", "", gin.H{"username": "admin", "password": "salah"}, http.StatusUnauthorized, &e)
	if e.Error != "Username atau password salah" {
		t.Fatalf("unexpected message %q", e.Error)
	}

	f.expect(t, http.MethodGet, "/v1/members", "", nil, http.StatusUnauthorized, nil)

	f.expect(t, http.MethodPost, "/v1/devices/register", "", gin.H{"deviceId": "pintu-depan"}, http.StatusUnauthorized, nil)

	var device auth.TokenPair
	f.expect(t, http.MethodPost, "/v1/devices/register", f.admin, gin.H{"deviceId": "pintu-depan"}, http.StatusCreated, &device)
	f.expect(t, http.MethodPost, "/v1/devices/register", device.AccessToken, gin.H{"deviceId": "pintu-lain"}, http.StatusForbidden, nil)
	f.expect(t, http.MethodGet, "/v1/members", device.AccessToken, nil, http.StatusForbidden, nil)
	f.expect(t, http.MethodGet, "/v1/members", device.RefreshToken, nil, http.StatusUnauthorized, nil)

	var refreshed auth.TokenPair
	f.expect(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": device.RefreshToken}, http.StatusOK, &refreshed)
	f.expect(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": device.RefreshToken}, http.StatusUnauthorized, nil)
}

func TestCreateMemberValidation(t *testing.T) {
	f := newFixture(t, nil)

	var e errorBody
	f.expect(t, http.MethodPost, "/v1/members", f.admin, gin.H{
		"nama": "A1", "nomorHp": "12345", "fingerprintId": "abc", "paketMembership": "1 Bulan",
	}, http.StatusBadRequest, &e)
	for _, field := range []string{"nama", "nomorHp", "fingerprintId"} {
		if e.Fields[field] == "" {
			t.Fatalf("expected a message for %s, got %v", field, e.Fields)
		}
	}

	f.expect(t, http.MethodPost, "/v1/members", f.admin, "not an object", http.StatusBadRequest, &e)
	if e.Fields["body"] == "" {
		t.Fatalf("expected body error, got %v", e.Fields)
	}

	m := f.register(t, "Ahmad Rizky", "081234567801", "1")
	if m.MemberID == "" || m.StatusRealtime != membership.StatusActive {
		t.Fatalf("unexpected member %+v", m)
	}
	if m.SisaHari == nil || *m.SisaHari != 30 {
		t.Fatalf("expected 30 days left, got %v", m.SisaHari)
	}

	f.expect(t, http.MethodPost, "/v1/members", f.admin, gin.H{
		"nama": "Budi Santoso", "nomorHp": "081234567802", "fingerprintId": "1", "paketMembership": "1 Bulan",
	}, http.StatusConflict, &e)
	if e.Code != "CONFLICT" || e.Fields["fingerprintId"] != "Fingerprint ID sudah terdaftar" {
		t.Fatalf("expected duplicate fingerprint message, got %v", e.Fields)
	}
}

func TestListAndLookupMembers(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "Ahmad Rizky", "081234567801", "1")
	f.register(t, "Budi Santoso", "081234567802", "2")
	f.register(t, "Citra Dewi", "081234567803", "3")

	var page roster.Page
	f.expect(t, http.MethodGet, "/v1/members?status=Semua", f.admin, nil, http.StatusOK, &page)
	if page.TotalFiltered != 3 || len(page.Items) != 3 || page.Page != 1 {
		t.Fatalf("unexpected page %+v", page)
	}

	f.expect(t, http.MethodGet, "/v1/members?status=Expired", f.admin, nil, http.StatusOK, &page)
	if page.TotalFiltered != 0 || page.Page != 1 {
		t.Fatalf("expected empty expired page, got %+v", page)
	}

	f.expect(t, http.MethodGet, "/v1/members?q=budi&page=9", f.admin, nil, http.StatusOK, &page)
	if page.TotalFiltered != 1 || page.Page != 1 || page.Items[0].Nama != "Budi Santoso" {
		t.Fatalf("unexpected search page %+v", page)
	}

	f.expect(t, http.MethodGet, "/v1/members?status=Bogus", f.admin, nil, http.StatusBadRequest, nil)
	f.expect(t, http.MethodGet, "/v1/members?page=dua", f.admin, nil, http.StatusBadRequest, nil)

	var found struct {
		Members []membership.View `json:"members"`
	}
	f.expect(t, http.MethodGet, "/v1/members/lookup?q=0812345678", f.admin, nil, http.StatusOK, &found)
	if len(found.Members) != 3 {
		t.Fatalf("expected phone prefix to match all, got %d", len(found.Members))
	}
}

func TestRenewMember(t *testing.T) {
	f := newFixture(t, nil)
	m := f.register(t, "Ahmad Rizky", "081234567801", "1")

	var e errorBody
	f.expect(t, http.MethodPost, "/v1/members/"+m.ID+"/renewals", f.admin, gin.H{
		"paketMembership": "1 Bulan", "metodePembayaran": "Cek",
	}, http.StatusBadRequest, &e)
	if e.Fields["metodePembayaran"] == "" {
		t.Fatalf("expected payment method error, got %v", e.Fields)
	}
	f.expect(t, http.MethodPost, "/v1/members/nope/renewals", f.admin, gin.H{
		"paketMembership": "1 Bulan", "metodePembayaran": "Cash",
	}, http.StatusNotFound, nil)

	var renewed struct {
		Transaction membership.Transaction `json:"transaction"`
		Member      membership.View        `json:"member"`
	}
	f.expect(t, http.MethodPost, "/v1/members/"+m.ID+"/renewals", f.admin, gin.H{
		"paketMembership": "3 Bulan", "metodePembayaran": "QRIS",
	}, http.StatusCreated, &renewed)
	if !renewed.Transaction.TanggalMulai.Equal(*m.TanggalExpired) {
		t.Fatalf("expected renewal to stack on %v, got %v", m.TanggalExpired, renewed.Transaction.TanggalMulai)
	}
	if renewed.Member.PaketMembership != "3 Bulan" || renewed.Member.StatusRealtime != membership.StatusActive {
		t.Fatalf("unexpected member after renewal %+v", renewed.Member)
	}

	var history struct {
		Transactions []membership.Transaction `json:"transactions"`
	}
	f.expect(t, http.MethodGet, "/v1/members/"+m.ID+"/renewals", f.admin, nil, http.StatusOK, &history)
	if len(history.Transactions) != 1 || history.Transactions[0].MetodePembayaran != membership.PaymentQRIS {
		t.Fatalf("unexpected history %+v", history.Transactions)
	}
}

func TestCheckInGuestAndReports(t *testing.T) {
	f := newFixture(t, nil)
	m := f.register(t, "Ahmad Rizky", "081234567801", "1")

	var e errorBody
	f.expect(t, http.MethodPost, "/v1/checkins", f.admin, gin.H{"memberId": ""}, http.StatusBadRequest, &e)
	if e.Fields["memberId"] != "Pilih member" {
		t.Fatalf("unexpected fields %v", e.Fields)
	}
	f.expect(t, http.MethodPost, "/v1/checkins", f.admin, gin.H{"memberId": "MBR999"}, http.StatusNotFound, nil)

	var checked struct {
		Record attendance.Record `json:"record"`
	}
	f.expect(t, http.MethodPost, "/v1/checkins", f.admin, gin.H{"memberId": m.MemberID}, http.StatusCreated, &checked)
	if checked.Record.Tanggal != "2026-03-10" || checked.Record.StatusMembership != string(membership.StatusActive) {
		t.Fatalf("unexpected record %+v", checked.Record)
	}

	var guest struct {
		Guest  attendance.Guest  `json:"guest"`
		Record attendance.Record `json:"record"`
	}
	f.expect(t, http.MethodPost, "/v1/guests", f.admin, gin.H{"nama": "Riko Aditya", "nomorHp": "081298765432"}, http.StatusCreated, &guest)
	if guest.Guest.PresensiID != guest.Record.ID || guest.Record.Tipe != attendance.TipeTamu {
		t.Fatalf("guest not linked to its record: %+v %+v", guest.Guest, guest.Record)
	}

	var rep attendance.Report
	f.expect(t, http.MethodGet, "/v1/attendance", f.admin, nil, http.StatusOK, &rep)
	if rep.TotalCheckIn != 2 || rep.TotalMember != 1 || rep.TotalTamu != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	f.expect(t, http.MethodGet, "/v1/attendance?tipe=Tamu", f.admin, nil, http.StatusOK, &rep)
	if len(rep.Records) != 1 || rep.Records[0].Nama != "Riko Aditya" {
		t.Fatalf("unexpected guest report %+v", rep.Records)
	}
	f.expect(t, http.MethodGet, "/v1/attendance?date=2026-03-10&month=2026-03", f.admin, nil, http.StatusBadRequest, nil)

	var d report.Dashboard
	f.expect(t, http.MethodGet, "/v1/reports/dashboard", f.admin, nil, http.StatusOK, &d)
	if d.TotalMember != 1 || d.MemberAktif != 1 || d.CheckInHariIni != 2 || d.TamuHariIni != 1 || len(d.Terbaru) != 2 {
		t.Fatalf("unexpected dashboard %+v", d)
	}

	var visits struct {
		Days []report.DayCount `json:"days"`
	}
	f.expect(t, http.MethodGet, "/v1/reports/visits?days=3", f.admin, nil, http.StatusOK, &visits)
	if len(visits.Days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(visits.Days))
	}
	last := visits.Days[2]
	if last.Tanggal != "2026-03-10" || last.Member != 1 || last.Tamu != 1 || last.Total != 2 {
		t.Fatalf("unexpected last day %+v", last)
	}
	f.expect(t, http.MethodGet, "/v1/reports/visits", f.admin, nil, http.StatusOK, &visits)
	if len(visits.Days) != 7 {
		t.Fatalf("expected default of 7 days, got %d", len(visits.Days))
	}
	for _, bad := range []string{"0", "367", "tujuh"} {
		f.expect(t, http.MethodGet, "/v1/reports/visits?days="+bad, f.admin, nil, http.StatusBadRequest, nil)
	}
}

func TestPostScanQueues(t *testing.T) {
	f := newFixture(t, nil)

	var device auth.TokenPair
	f.expect(t, http.MethodPost, "/v1/devices/register", f.admin, gin.H{"deviceId": "pintu-depan"}, http.StatusCreated, &device)

	var e errorBody
	for _, off := range []time.Duration{-time.Hour, 24 * time.Hour, -3 * time.Minute} {
		f.expect(t, http.MethodPost, "/v1/scans", device.AccessToken, gin.H{"fingerprintId": "7", "scannedAt": f.now.Add(off)}, http.StatusBadRequest, &e)
		if e.Fields["scannedAt"] == "" {
			t.Fatalf("scan %v from now: expected scannedAt error, got %v", off, e.Fields)
		}
	}

	f.expect(t, http.MethodPost, "/v1/scans", device.AccessToken, gin.H{"fingerprintId": "7", "deviceId": "pintu-belakang"}, http.StatusForbidden, nil)
	f.expect(t, http.MethodPost, "/v1/scans", device.AccessToken, gin.H{"fingerprintId": "tujuh"}, http.StatusBadRequest, nil)
	f.expect(t, http.MethodPost, "/v1/scans", f.admin, gin.H{"fingerprintId": "7"}, http.StatusForbidden, nil)
	f.expect(t, http.MethodPost, "/v1/scans", device.AccessToken, gin.H{"fingerprintId": "7"}, http.StatusAccepted, nil)
	delayed := f.now.Add(-30 * time.Second)
	f.expect(t, http.MethodPost, "/v1/scans", device.AccessToken, gin.H{"fingerprintId": "8", "scannedAt": delayed}, http.StatusAccepted, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msgs, err := f.queue.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	want := []queue.Scan{
		{FingerprintID: "7", DeviceID: "pintu-depan", ScannedAt: f.now},
		{FingerprintID: "8", DeviceID: "pintu-depan", ScannedAt: delayed},
	}
	for _, w := range want {
		select {
		case msg := <-msgs:
			scan, err := queue.DecodeScan(msg)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if scan.FingerprintID != w.FingerprintID || scan.DeviceID != w.DeviceID || !scan.ScannedAt.Equal(w.ScannedAt) {
				t.Fatalf("expected %+v, got %+v", w, scan)
			}
		case <-ctx.Done():
			t.Fatalf("scan %s was not queued", w.FingerprintID)
		}
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, map[string]HealthCheck{
		"db":    func(context.Context) bool { return true },
		"redis": func(context.Context) bool { return false },
	})
	var body map[string]any
	f.expect(t, http.MethodGet, "/healthz", "", nil, http.StatusServiceUnavailable, &body)
	if body["status"] != "degraded" || body["db"] != true || body["redis"] != false {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestStreamAttendanceToday(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/stream/attendance/today", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.admin)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data:") {
				return strings.TrimPrefix(line, "data:")
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}
	if first := next(); strings.TrimSpace(first) != "[]" {
		t.Fatalf("expected empty first snapshot, got %q", first)
	}

	m := f.register(t, "Ahmad Rizky", "081234567801", "1")
	f.expect(t, http.MethodPost, "/v1/checkins", f.admin, gin.H{"memberId": m.MemberID}, http.StatusCreated, nil)
	if second := next(); !strings.Contains(second, "Ahmad Rizky") {
		t.Fatalf("expected the check-in in the next snapshot, got %q", second)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Subscribers(attendance.Topic) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription still open after the client left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
