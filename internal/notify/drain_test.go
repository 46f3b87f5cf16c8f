package notify_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"lectern/internal/config"
	"lectern/internal/notify"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail func(*notify.Notification) error
}

func (f *fakeSender) Send(_ context.Context, notification *notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(notification); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, notification.TemplateKey)
	return nil
}

func TestDrainOnceDeliversBatch(t *testing.T) {
	cfg := config.Notifications{MaxAttempts: 3, BatchSize: 10}
	store := newNotifyStore(t, cfg)
	sender := &fakeSender{}
	drainer := notify.NewDrainer(store, sender, cfg, nil)
	ctx := context.Background()

	for _, title := range []string{"a", "b"} {
		if _, err := store.Enqueue(ctx, "", "job_completed", map[string]string{"title": title}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	sent, failed, err := drainer.DrainOnce(ctx)
	if err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if sent != 2 || failed != 0 {
		t.Fatalf("sent=%d failed=%d", sent, failed)
	}
	if remaining, _ := store.Claim(ctx, 10); len(remaining) != 0 {
		t.Fatalf("queue should be empty, got %d", len(remaining))
	}
}

func TestDrainOnceRequeuesFailedDelivery(t *testing.T) {
	cfg := config.Notifications{MaxAttempts: 3, BatchSize: 10}
	store := newNotifyStore(t, cfg)
	sender := &fakeSender{fail: func(*notify.Notification) error {
		return errors.New("endpoint down")
	}}
	drainer := notify.NewDrainer(store, sender, cfg, nil)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, "", "test", nil); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	batch, err := store.Claim(ctx, 1)
	if err != nil || len(batch) != 1 {
		t.Fatalf("Claim: batch=%v err=%v", batch, err)
	}
	if _, err := store.ReclaimSending(ctx); err != nil {
		t.Fatalf("ReclaimSending: %v", err)
	}
	id := batch[0].ID

	sent, failed, err := drainer.DrainOnce(ctx)
	if err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if sent != 0 || failed != 1 {
		t.Fatalf("drain: sent=%d failed=%d", sent, failed)
	}

	requeued, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if requeued.Status != notify.StatusPending || requeued.Attempts != 1 {
		t.Fatalf("expected deferred pending retry, got %+v", requeued)
	}
	if requeued.LastError != "endpoint down" {
		t.Fatalf("last error not recorded: %q", requeued.LastError)
	}
	if !requeued.ScheduledAt.After(requeued.CreatedAt) {
		t.Fatalf("retry should be deferred: scheduled=%v created=%v", requeued.ScheduledAt, requeued.CreatedAt)
	}
}

func TestNtfySenderPostsWithHeaders(t *testing.T) {
	var gotTitle, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("X-Title")
		gotPriority = r.Header.Get("X-Priority")
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	}))
	defer server.Close()

	sender := notify.NewSender(config.Notifications{Endpoint: server.URL, RequestTimeout: 5})
	err := sender.Send(context.Background(), &notify.Notification{
		TemplateKey: "job_failed",
		Subject:     "Lectern - Processing Failed",
		Body:        "Processing failed for X.",
		Priority:    notify.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotTitle != "Lectern - Processing Failed" || gotPriority != "high" {
		t.Fatalf("unexpected headers title=%q priority=%q", gotTitle, gotPriority)
	}
	if gotBody != "Processing failed for X." {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestNtfySenderRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := notify.NewSender(config.Notifications{Endpoint: server.URL})
	err := sender.Send(context.Background(), &notify.Notification{Subject: "s", Body: "b"})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestNewSenderWithoutEndpointIsNoop(t *testing.T) {
	sender := notify.NewSender(config.Notifications{})
	if err := sender.Send(context.Background(), &notify.Notification{}); err != nil {
		t.Fatalf("noop sender should not fail: %v", err)
	}
}
