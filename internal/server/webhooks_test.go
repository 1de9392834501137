package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"checkline/internal/config"
	"checkline/internal/db"
	"checkline/internal/engine"
	"checkline/internal/migrate"
)

func newWebhookEngine(t *testing.T, hooks ...config.WebhookConfig) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Webhooks = hooks
	return engine.New(conn, cfg)
}

type capturedDelivery struct {
	event    string
	delivery string
	secret   string
	body     []byte
}

type deliveryRecorder struct {
	mu   sync.Mutex
	recv []capturedDelivery
}

func (r *deliveryRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	data, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.recv = append(r.recv, capturedDelivery{
		event:    req.Header.Get("X-Checkline-Event"),
		delivery: req.Header.Get("X-Checkline-Delivery"),
		secret:   req.Header.Get("X-Checkline-Secret"),
		body:     data,
	})
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *deliveryRecorder) deliveries() []capturedDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]capturedDelivery, len(r.recv))
	copy(out, r.recv)
	return out
}

func TestWebhookDispatcherStopsOnCancel(t *testing.T) {
	d := &webhookDispatcher{
		client:  http.DefaultClient,
		cursors: make(map[int]int64),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		d.run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatcher did not stop on context cancel")
	}
}

func TestWebhookDelivery(t *testing.T) {
	rec := &deliveryRecorder{}
	ts := httptest.NewServer(rec)
	defer ts.Close()

	e := newWebhookEngine(t, config.WebhookConfig{URL: ts.URL, Secret: "s3cret"})
	if _, err := e.CreateProcedure(context.Background(), engine.ProcedureCreateOptions{
		Title:   "Pump Inspection",
		ActorID: "tech-1",
	}); err != nil {
		t.Fatalf("CreateProcedure: %v", err)
	}

	d := &webhookDispatcher{
		engine:   e,
		webhooks: e.Config.Webhooks,
		client:   ts.Client(),
		cursors:  map[int]int64{0: 0},
	}
	d.dispatchAll(context.Background())

	got := rec.deliveries()
	if len(got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(got))
	}
	if got[0].event != "procedure.created" {
		t.Fatalf("event header = %q", got[0].event)
	}
	if got[0].secret != "s3cret" {
		t.Fatalf("secret header = %q", got[0].secret)
	}
	var evt webhookEvent
	if err := json.Unmarshal(got[0].body, &evt); err != nil {
		t.Fatalf("unmarshal delivery: %v", err)
	}
	if evt.Type != "procedure.created" || evt.ActorID != "tech-1" {
		t.Fatalf("delivered event: %+v", evt)
	}
	if !json.Valid(evt.Payload) {
		t.Fatalf("payload not JSON: %s", evt.Payload)
	}
}

func TestWebhookFilterSkipsButAdvancesCursor(t *testing.T) {
	rec := &deliveryRecorder{}
	ts := httptest.NewServer(rec)
	defer ts.Close()

	e := newWebhookEngine(t, config.WebhookConfig{URL: ts.URL, Events: []string{"execution.submitted"}})
	if _, err := e.CreateProcedure(context.Background(), engine.ProcedureCreateOptions{
		Title:   "Pump Inspection",
		ActorID: "tech-1",
	}); err != nil {
		t.Fatalf("CreateProcedure: %v", err)
	}

	d := &webhookDispatcher{
		engine:   e,
		webhooks: e.Config.Webhooks,
		client:   ts.Client(),
		cursors:  map[int]int64{0: 0},
	}
	d.dispatchAll(context.Background())

	if got := rec.deliveries(); len(got) != 0 {
		t.Fatalf("filtered event delivered: %+v", got)
	}
	d.mu.Lock()
	cursor := d.cursors[0]
	d.mu.Unlock()
	if cursor == 0 {
		t.Fatalf("cursor must advance past filtered events")
	}
}

func TestEventFilter(t *testing.T) {
	all := newEventFilter(nil)
	if !all.match("procedure.created") {
		t.Fatalf("empty filter should match everything")
	}
	blank := newEventFilter([]string{"  ", ""})
	if !blank.match("template.saved") {
		t.Fatalf("blank-only filter should match everything")
	}
	some := newEventFilter([]string{"execution.submitted"})
	if some.match("execution.started") || !some.match("execution.submitted") {
		t.Fatalf("explicit filter must match only listed types")
	}
}
