package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

func TestLokiPush(t *testing.T) {
	var got lokiPush
	var tenant, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		tenant = r.Header.Get("X-Scope-OrgID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode push: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewLoki(config.LokiConfig{URL: srv.URL + "/", TenantID: "ctf"})
	events := []model.Event{
		{ID: "a", User: "alice", Challenge: "pwn1", Category: "pwn", Time: "2024-01-01T00:00:00Z"},
		{ID: "b", User: "bob", Challenge: "web1", Category: "web", Time: "2024-01-01T00:01:00Z"},
		{ID: "c", User: "carol", Challenge: "pwn2", Category: "pwn", Time: "2024-01-01T00:02:00Z"},
	}
	if err := s.Push(context.Background(), events); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if path != "/loki/api/v1/push" || tenant != "ctf" {
		t.Fatalf("request path=%q tenant=%q", path, tenant)
	}
	if len(got.Streams) != 2 {
		t.Fatalf("streams = %d, want 2 (one per category)", len(got.Streams))
	}
	pwn := got.Streams[0]
	if pwn.Stream["job"] != "firstblood-bot" || pwn.Stream["source"] != "firstblood" || pwn.Stream["category"] != "pwn" {
		t.Fatalf("labels = %v", pwn.Stream)
	}
	if len(pwn.Values) != 2 || pwn.Values[0][0] != "1704067200000000000" {
		t.Fatalf("values = %v", pwn.Values)
	}
	var line model.Event
	if err := json.Unmarshal([]byte(pwn.Values[1][1]), &line); err != nil || line.User != "carol" {
		t.Fatalf("line = %q (%v)", pwn.Values[1][1], err)
	}
}

func TestLokiPushEmptyIsNoop(t *testing.T) {
	s := NewLoki(config.LokiConfig{URL: "http://127.0.0.1:1"})
	if err := s.Push(context.Background(), nil); err != nil {
		t.Fatalf("Push(nil) error = %v", err)
	}
}

func TestLokiPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "entry too far behind", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewLoki(config.LokiConfig{URL: srv.URL})
	err := s.Push(context.Background(), []model.Event{{ID: "a", Category: "pwn", Time: "2024-01-01T00:00:00Z"}})
	if err == nil {
		t.Fatal("Push() expected error on 400")
	}
}

func TestFromConfig(t *testing.T) {
	if got := FromConfig(config.Config{}); len(got) != 0 {
		t.Fatalf("FromConfig(empty) = %d sinks", len(got))
	}
	got := FromConfig(config.Config{Loki: config.LokiConfig{URL: "http://loki:3100"}})
	if len(got) != 1 || got[0].Name() != "loki" {
		t.Fatalf("FromConfig(loki) = %v", got)
	}
}
