package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

var (
	ErrDecode = errors.New("store: decode failed")
	ErrEncode = errors.New("store: encode failed")
	ErrWrite  = errors.New("store: write failed")
)

// RenderState tracks which chat messages currently represent the relay.
type RenderState struct {
	TableID   string   `json:"table_id"`
	LatestIDs []string `json:"latest_ids"`
	// Announced holds event ids that already got an announcement, oldest first.
	Announced []string `json:"announced,omitempty"`
}

// Store persists the ledger and render state. The bool results report whether
// the document existed; a missing document is not an error.
type Store interface {
	Name() string
	LoadLedger(ctx context.Context) ([]model.Event, bool, error)
	SaveLedger(ctx context.Context, ledger []model.Event) error
	LoadRender(ctx context.Context) (RenderState, bool, error)
	SaveRender(ctx context.Context, st RenderState) error
	Close() error
}

func NewFromConfig(c config.StateConfig) (Store, error) {
	switch c.Backend {
	case "", "file":
		return NewFileStore(c.SolvesFile, c.StateFile), nil
	case "redis":
		return NewRedisStore(c.Redis)
	default:
		return nil, fmt.Errorf("unknown state backend: %s", c.Backend)
	}
}
