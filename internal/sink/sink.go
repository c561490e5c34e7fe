// Package sink archives newly detected first-blood events outside the chat.
package sink

import (
	"context"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

type Sink interface {
	Name() string
	Push(ctx context.Context, events []model.Event) error
}

// FromConfig returns the sinks that are configured. None is a valid answer.
func FromConfig(cfg config.Config) []Sink {
	var out []Sink
	if cfg.Loki.URL != "" {
		out = append(out, NewLoki(cfg.Loki))
	}
	return out
}
