package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestDispatcherDeliversNotification(t *testing.T) {
	var mu sync.Mutex
	var received []message

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg message
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("invalid notification body: %v", err)
		}
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, 3, 10*time.Millisecond, nil)
	d.Notify("submission.approved", map[string]interface{}{"submission_id": float64(42)})
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected one delivery, got %d", len(received))
	}
	if received[0].Event != "submission.approved" {
		t.Errorf("unexpected event %q", received[0].Event)
	}
	if got := received[0].Payload["submission_id"]; got != float64(42) {
		t.Errorf("unexpected payload value %v", got)
	}
}

func TestDispatcherRetriesOnServerError(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, 5, time.Millisecond, nil)
	d.Notify("submission.rejected", nil)
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Errorf("expected delivery on third attempt, got %d attempts", attempts)
	}
}

func TestDispatcherDisabledWithoutURL(t *testing.T) {
	d := NewDispatcher("", 3, time.Millisecond, nil)
	// Must be a no-op, not a panic or a blocked send.
	d.Notify("submission.approved", nil)
	d.Close()
}
