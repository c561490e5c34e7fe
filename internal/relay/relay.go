// Package relay drives the poll cycle: fetch, reconcile, render, archive, persist.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoirulanam-dev/CTF-Polije/internal/logutil"
	"github.com/khoirulanam-dev/CTF-Polije/internal/metrics"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
	"github.com/khoirulanam-dev/CTF-Polije/internal/present"
	"github.com/khoirulanam-dev/CTF-Polije/internal/reconcile"
	"github.com/khoirulanam-dev/CTF-Polije/internal/sink"
	"github.com/khoirulanam-dev/CTF-Polije/internal/source"
	"github.com/khoirulanam-dev/CTF-Polije/internal/store"
)

// Renderer is what the relay needs from the presenter.
type Renderer interface {
	Leaderboard(ctx context.Context, ledger []model.Event, st *store.RenderState) error
	Announce(ctx context.Context, delta []model.Event, st *store.RenderState) error
}

// Purger removes the bot's own chat messages.
type Purger interface {
	PurgeOwn(ctx context.Context) (int, error)
}

type Options struct {
	Source     source.Source
	Store      store.Store
	Renderer   Renderer
	Purger     Purger // optional
	Sinks      []sink.Sink
	Metrics    *metrics.Metrics // optional
	Logger     *slog.Logger
	Interval   time.Duration
	LedgerSize int
}

type Relay struct {
	opts Options

	mu     sync.RWMutex
	ledger []model.Event
	render store.RenderState
}

func New(opts Options) (*Relay, error) {
	if opts.Source == nil || opts.Store == nil || opts.Renderer == nil {
		return nil, errors.New("relay: source, store and renderer are required")
	}
	if opts.Logger == nil {
		opts.Logger = logutil.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.LedgerSize <= 0 {
		opts.LedgerSize = reconcile.DefaultLimit
	}
	return &Relay{opts: opts}, nil
}

// Prepare loads persisted state. When the ledger or the render state is
// missing (or unreadable) the channel is purged of the bot's old messages and
// rendering starts from scratch.
func (r *Relay) Prepare(ctx context.Context) error {
	log := r.opts.Logger
	ledger, haveLedger, err := r.opts.Store.LoadLedger(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrDecode) {
			return fmt.Errorf("load ledger: %w", err)
		}
		log.Warn("ledger_unreadable", "store", r.opts.Store.Name(), "error", err.Error())
		ledger, haveLedger = nil, false
	}
	render, haveRender, err := r.opts.Store.LoadRender(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrDecode) {
			return fmt.Errorf("load render state: %w", err)
		}
		log.Warn("render_state_unreadable", "store", r.opts.Store.Name(), "error", err.Error())
		haveRender = false
	}

	if !haveLedger || !haveRender {
		render = store.RenderState{}
		if r.opts.Purger != nil {
			n, err := r.opts.Purger.PurgeOwn(ctx)
			if err != nil {
				log.Warn("startup_purge_error", "deleted", n, "error", err.Error())
			} else {
				log.Info("startup_purge", "deleted", n)
			}
		}
	}

	r.mu.Lock()
	r.ledger = ledger
	r.render = render
	r.mu.Unlock()
	r.opts.Metrics.LedgerSize(len(ledger))
	log.Info("state_loaded",
		"store", r.opts.Store.Name(),
		"ledger", len(ledger),
		"have_ledger", haveLedger,
		"have_render", haveRender,
	)
	return nil
}

// Run polls once right away and then every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.opts.Interval)
	defer t.Stop()
	for {
		r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			r.opts.Logger.Info("poll_stopped")
			return nil
		case <-t.C:
		}
	}
}

// RunOnce performs one cycle. Failures are logged and counted; the returned
// error is the joined set of everything that went wrong.
func (r *Relay) RunOnce(ctx context.Context) (err error) {
	start := time.Now()
	log := r.opts.Logger.With("cycle_id", uuid.NewString())
	result := "ok"
	defer func() {
		if p := recover(); p != nil {
			result = "panic"
			err = fmt.Errorf("relay: panic in cycle: %v", p)
			log.Error("poll_cycle_panic", "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
		}
		r.opts.Metrics.Cycle(result, time.Since(start))
	}()

	var errs []error

	fetched, ferr := r.opts.Source.Fetch(ctx)
	if ferr != nil {
		errs = append(errs, ferr)
		r.recordFetchError(ferr)
		log.Warn("fetch_error", "source", r.opts.Source.Name(), "error", ferr.Error())
		fetched = nil
	}
	r.opts.Metrics.Fetched(len(fetched))

	r.mu.RLock()
	old := r.ledger
	render := cloneRender(r.render)
	r.mu.RUnlock()

	res := reconcile.Merge(old, fetched, r.opts.LedgerSize)
	r.opts.Metrics.NewEvents(len(res.New))

	if len(res.New) > 0 {
		log.Info("new_first_bloods", "count", len(res.New))
		if err := r.opts.Renderer.Leaderboard(ctx, res.Ledger, &render); err != nil {
			errs = append(errs, err)
			r.recordRenderErrors(err)
			log.Warn("leaderboard_error", "error", err.Error())
		}
		if err := r.opts.Renderer.Announce(ctx, res.New, &render); err != nil {
			errs = append(errs, err)
			r.recordRenderErrors(err)
			log.Warn("announce_error", "error", err.Error())
		}
		for _, s := range r.opts.Sinks {
			if err := s.Push(ctx, res.New); err != nil {
				errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
				r.opts.Metrics.SinkError(s.Name())
				log.Warn("sink_push_error", "sink", s.Name(), "error", err.Error())
			}
		}
	}

	r.mu.Lock()
	r.ledger = res.Ledger
	r.render = render
	r.mu.Unlock()
	r.opts.Metrics.LedgerSize(len(res.Ledger))

	if err := r.opts.Store.SaveLedger(ctx, res.Ledger); err != nil {
		errs = append(errs, err)
		log.Error("save_ledger_error", "store", r.opts.Store.Name(), "error", err.Error())
	}
	if err := r.opts.Store.SaveRender(ctx, render); err != nil {
		errs = append(errs, err)
		log.Error("save_render_error", "store", r.opts.Store.Name(), "error", err.Error())
	}

	if len(errs) > 0 {
		result = "partial"
	}
	log.Debug("poll_cycle_done",
		"fetched", len(fetched),
		"new", len(res.New),
		"ledger", len(res.Ledger),
		"took", time.Since(start).String(),
	)
	return errors.Join(errs...)
}

// Snapshot returns a copy of the ledger, oldest first.
func (r *Relay) Snapshot() []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Event, len(r.ledger))
	copy(out, r.ledger)
	return out
}

// Render returns a copy of the current render state.
func (r *Relay) Render() store.RenderState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneRender(r.render)
}

func (r *Relay) recordFetchError(err error) {
	status := "transport"
	var fe *source.FetchError
	if errors.As(err, &fe) && fe.Status != 0 {
		status = strconv.Itoa(fe.Status)
	}
	r.opts.Metrics.FetchError(r.opts.Source.Name(), status)
}

func (r *Relay) recordRenderErrors(err error) {
	for _, e := range flatten(err) {
		var re *present.RenderError
		if errors.As(e, &re) {
			r.opts.Metrics.RenderError(re.Op)
		}
	}
}

// flatten expands errors.Join trees into their leaves.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func cloneRender(st store.RenderState) store.RenderState {
	out := store.RenderState{TableID: st.TableID}
	out.LatestIDs = append([]string(nil), st.LatestIDs...)
	out.Announced = append([]string(nil), st.Announced...)
	return out
}
