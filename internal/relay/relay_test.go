package relay

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
	"github.com/khoirulanam-dev/CTF-Polije/internal/present"
	"github.com/khoirulanam-dev/CTF-Polije/internal/source"
	"github.com/khoirulanam-dev/CTF-Polije/internal/store"
)

type fakeSource struct {
	events []model.Event
	err    error
	calls  int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(context.Context) ([]model.Event, error) {
	f.calls++
	return f.events, f.err
}

type fakePurger struct{ calls int }

func (f *fakePurger) PurgeOwn(context.Context) (int, error) {
	f.calls++
	return 4, nil
}

// memChat records what reached the channel.
type memChat struct {
	next  int
	texts map[string]string
	embed map[string]present.Embed
}

func newMemChat() *memChat {
	return &memChat{texts: map[string]string{}, embed: map[string]present.Embed{}}
}

func (m *memChat) id() string {
	m.next++
	return fmt.Sprintf("m%d", m.next)
}

func (m *memChat) Send(_ context.Context, content string) (string, error) {
	id := m.id()
	m.texts[id] = content
	return id, nil
}

func (m *memChat) SendEmbed(_ context.Context, e present.Embed) (string, error) {
	id := m.id()
	m.embed[id] = e
	return id, nil
}

func (m *memChat) EditEmbed(_ context.Context, id string, e present.Embed) error {
	if _, ok := m.embed[id]; !ok {
		return errors.New("unknown message")
	}
	m.embed[id] = e
	return nil
}

func (m *memChat) Delete(_ context.Context, id string) error {
	delete(m.texts, id)
	delete(m.embed, id)
	return nil
}

type panicRenderer struct{}

func (panicRenderer) Leaderboard(context.Context, []model.Event, *store.RenderState) error {
	panic("boom")
}

func (panicRenderer) Announce(context.Context, []model.Event, *store.RenderState) error {
	return nil
}

var alice = model.Event{
	ID:        model.DigestID("alice", "pwn1", "2024-01-01T00:00:00Z"),
	User:      "alice",
	Challenge: "pwn1",
	Category:  "pwn",
	Time:      "2024-01-01T00:00:00Z",
}

type harness struct {
	relay  *Relay
	src    *fakeSource
	chat   *memChat
	purger *fakePurger
	store  *store.FileStore
}

func newHarness(t *testing.T, dir string) *harness {
	t.Helper()
	h := &harness{
		src:    &fakeSource{},
		chat:   newMemChat(),
		purger: &fakePurger{},
		store:  store.NewFileStore(filepath.Join(dir, "solves.json"), filepath.Join(dir, "state.json")),
	}
	p := present.New(h.chat, present.Options{
		Now: func() time.Time { return time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC) },
	})
	r, err := New(Options{Source: h.src, Store: h.store, Renderer: p, Purger: h.purger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.relay = r
	return h
}

func TestPrepareFreshStatePurges(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir)
	if err := h.relay.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if h.purger.calls != 1 {
		t.Fatalf("purge calls = %d, want 1", h.purger.calls)
	}

	h.src.events = []model.Event{alice}
	if err := h.relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	again := newHarness(t, dir)
	if err := again.relay.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if again.purger.calls != 0 {
		t.Fatalf("purge ran with persisted state present")
	}
	if got := again.relay.Snapshot(); len(got) != 1 || got[0].ID != alice.ID {
		t.Fatalf("restored ledger = %+v", got)
	}
	if again.relay.Render().TableID == "" {
		t.Fatal("restored render state has no table id")
	}
}

func TestFirstEventScenario(t *testing.T) {
	h := newHarness(t, t.TempDir())
	ctx := context.Background()
	if err := h.relay.Prepare(ctx); err != nil {
		t.Fatal(err)
	}

	h.src.events = []model.Event{alice}
	if err := h.relay.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(h.chat.embed) != 1 || len(h.chat.texts) != 1 {
		t.Fatalf("chat = %d embeds, %d texts; want 1, 1", len(h.chat.embed), len(h.chat.texts))
	}
	for _, txt := range h.chat.texts {
		if !strings.Contains(txt, "**alice**") || !strings.Contains(txt, "10 minutes ago") || !strings.Contains(txt, alice.ID) {
			t.Fatalf("announcement = %q", txt)
		}
	}

	// same batch again: nothing new reaches the channel
	sent := h.chat.next
	if err := h.relay.RunOnce(ctx); err != nil {
		t.Fatalf("second RunOnce() error = %v", err)
	}
	if h.chat.next != sent {
		t.Fatalf("unchanged batch sent %d more messages", h.chat.next-sent)
	}

	ledger, ok, err := h.store.LoadLedger(ctx)
	if err != nil || !ok || len(ledger) != 1 {
		t.Fatalf("persisted ledger = %+v ok=%v err=%v", ledger, ok, err)
	}
	st, ok, err := h.store.LoadRender(ctx)
	if err != nil || !ok || st.TableID == "" || len(st.LatestIDs) != 1 {
		t.Fatalf("persisted render = %+v ok=%v err=%v", st, ok, err)
	}
}

func TestRunOnceSurvivesFetchFailure(t *testing.T) {
	h := newHarness(t, t.TempDir())
	ctx := context.Background()
	_ = h.relay.Prepare(ctx)

	h.src.events = []model.Event{alice}
	if err := h.relay.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	h.src.events, h.src.err = nil, &source.FetchError{Source: "fake", Status: 503, Err: errors.New("unavailable")}
	err := h.relay.RunOnce(ctx)
	var fe *source.FetchError
	if !errors.As(err, &fe) || fe.Status != 503 {
		t.Fatalf("RunOnce() error = %v, want FetchError 503", err)
	}
	if got := h.relay.Snapshot(); len(got) != 1 {
		t.Fatalf("ledger after failed fetch = %d events, want 1", len(got))
	}

	h.src.err = nil
	h.src.events = []model.Event{alice}
	if err := h.relay.RunOnce(ctx); err != nil {
		t.Fatalf("recovery cycle error = %v", err)
	}
}

func TestRunOnceRecoversPanic(t *testing.T) {
	src := &fakeSource{events: []model.Event{alice}}
	st := store.NewFileStore(filepath.Join(t.TempDir(), "a.json"), filepath.Join(t.TempDir(), "b.json"))
	r, err := New(Options{Source: src, Store: st, Renderer: panicRenderer{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.RunOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("RunOnce() error = %v, want panic error", err)
	}
	if err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("ledger was committed before the panic; second cycle should still see alice as new")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.relay.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if h.src.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1 immediate cycle", h.src.calls)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("New(empty) expected error")
	}
}

func TestFlatten(t *testing.T) {
	a, b, c := errors.New("a"), errors.New("b"), errors.New("c")
	got := flatten(errors.Join(a, errors.Join(b, c)))
	if len(got) != 3 || got[0] != a || got[2] != c {
		t.Fatalf("flatten() = %v", got)
	}
	if flatten(nil) != nil {
		t.Fatal("flatten(nil) != nil")
	}
}
