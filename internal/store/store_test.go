package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

func TestFileStoreMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "solves.json"), filepath.Join(dir, "state.json"))
	ledger, ok, err := s.LoadLedger(context.Background())
	if err != nil || ok || len(ledger) != 0 {
		t.Fatalf("LoadLedger() = %v, %v, %v; want empty, false, nil", ledger, ok, err)
	}
	st, ok, err := s.LoadRender(context.Background())
	if err != nil || ok || st.TableID != "" {
		t.Fatalf("LoadRender() = %+v, %v, %v; want zero, false, nil", st, ok, err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "data", "solves.json"), filepath.Join(dir, "data", "state.json"))
	ctx := context.Background()

	ledger := []model.Event{
		{ID: "a", User: "alice", Challenge: "pwn1", Category: "pwn", Time: "2024-01-01T00:00:00Z"},
		{ID: "b", User: "bob", Challenge: "web1", Category: "web", Time: "2024-01-01T00:05:00Z"},
	}
	if err := s.SaveLedger(ctx, ledger); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}
	st := RenderState{TableID: "100", LatestIDs: []string{"1", "2"}, Announced: []string{"a", "b"}}
	if err := s.SaveRender(ctx, st); err != nil {
		t.Fatalf("SaveRender() error = %v", err)
	}

	gotLedger, ok, err := s.LoadLedger(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadLedger() ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(gotLedger, ledger) {
		t.Fatalf("LoadLedger() = %+v, want %+v", gotLedger, ledger)
	}
	gotSt, ok, err := s.LoadRender(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadRender() ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(gotSt, st) {
		t.Fatalf("LoadRender() = %+v, want %+v", gotSt, st)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("data dir has %d entries, want 2 (no temp files left)", len(entries))
	}
}

func TestFileStoreReadsLegacyState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	legacy := `{"latest_ids": ["11", "12"], "table_id": null}`
	if err := os.WriteFile(statePath, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(filepath.Join(dir, "solves.json"), statePath)
	st, ok, err := s.LoadRender(context.Background())
	if err != nil || !ok {
		t.Fatalf("LoadRender() ok=%v err=%v", ok, err)
	}
	if st.TableID != "" || !reflect.DeepEqual(st.LatestIDs, []string{"11", "12"}) {
		t.Fatalf("LoadRender() = %+v", st)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "solves.json")
	if err := os.WriteFile(path, []byte("[{"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, filepath.Join(dir, "state.json"))
	_, _, err := s.LoadLedger(context.Background())
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("LoadLedger() error = %v, want ErrDecode", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	s, err := NewFromConfig(config.StateConfig{Backend: "file", SolvesFile: "a.json", StateFile: "b.json"})
	if err != nil || s.Name() != "file" {
		t.Fatalf("NewFromConfig(file) = %v, %v", s, err)
	}
	if _, err := NewFromConfig(config.StateConfig{Backend: "etcd"}); err == nil {
		t.Fatal("NewFromConfig(etcd) expected error")
	}
}

func TestSeenBounded(t *testing.T) {
	t.Parallel()

	s := NewSeen(3, "a", "b")
	s.Mark("c")
	s.Mark("d")
	if s.Has("a") {
		t.Fatal("oldest key should have been evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if !s.Has(k) {
			t.Fatalf("Has(%q) = false", k)
		}
	}
	s.Mark("b")
	if got, want := s.Keys(), []string{"c", "d", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	s.Mark("")
	if s.Len() != 3 {
		t.Fatalf("Len() = %d after empty mark", s.Len())
	}
}
