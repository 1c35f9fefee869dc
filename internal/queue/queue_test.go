package queue

import (
	"context"
	"testing"
	"time"
)

func TestSerializeRoundTrip(t *testing.T) {
	tests := []Message{
		{Type: TypeScan, Body: []byte(`{"fingerprintId":"7"}`)},
		{Type: TypeScan, Body: []byte("a|b|c")},
		{Type: "", Body: []byte("x")},
	}
	for _, msg := range tests {
		got := deserialize(serialize(msg))
		if got.Type != msg.Type || string(got.Body) != string(msg.Body) {
			t.Fatalf("round trip %q: got %q %q", serialize(msg), got.Type, got.Body)
		}
	}
	if got := deserialize("legacy"); got.Type != "" || string(got.Body) != "legacy" {
		t.Fatalf("unexpected legacy decode %+v", got)
	}
}

func TestScanMessage(t *testing.T) {
	at := time.Date(2025, 1, 20, 7, 30, 0, 0, time.UTC)
	msg, err := NewScanMessage(Scan{FingerprintID: "12", DeviceID: "front-door", ScannedAt: at})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s, err := DecodeScan(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.FingerprintID != "12" || s.DeviceID != "front-door" || !s.ScannedAt.Equal(at) {
		t.Fatalf("unexpected scan %+v", s)
	}

	if _, err := DecodeScan(Message{Type: "checkin", Body: msg.Body}); err == nil {
		t.Fatal("expected wrong type to fail")
	}
	if _, err := DecodeScan(Message{Type: TypeScan, Body: []byte(`{}`)}); err == nil {
		t.Fatal("expected missing fingerprint id to fail")
	}
}

func TestInMemoryQueue(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"1", "2"} {
		msg, _ := NewScanMessage(Scan{FingerprintID: id})
		if err := q.Publish(ctx, msg); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	msgs, _ := q.Consume(ctx)
	for _, want := range []string{"1", "2"} {
		select {
		case msg := <-msgs:
			s, err := DecodeScan(msg)
			if err != nil || s.FingerprintID != want {
				t.Fatalf("expected scan %s, got %+v (%v)", want, s, err)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}

	cancel()
	select {
	case _, ok := <-msgs:
		if ok {
			t.Fatal("expected channel closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Publish(ctx, Message{Type: TypeScan}); err == nil {
		t.Fatal("expected publish to a full queue to time out")
	}
}
