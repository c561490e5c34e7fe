package source

import (
	"context"
	"fmt"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Event, error)
}

func NewFromConfig(c config.BackendConfig) (Source, error) {
	switch c.IDScheme {
	case "", "digest", "native":
		return NewSupabaseSource(c), nil
	default:
		return nil, fmt.Errorf("unknown id scheme: %s", c.IDScheme)
	}
}

// FetchError wraps every way a fetch can fail. Status is the HTTP status when
// the backend answered, 0 otherwise.
type FetchError struct {
	Source string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
