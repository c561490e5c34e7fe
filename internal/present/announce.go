package present

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
	"github.com/khoirulanam-dev/CTF-Polije/internal/store"
)

// Announce posts one message per new event, keeping at most MaxLatest of them
// live. Only the newest MaxLatest events of delta are considered, and events
// already in st.Announced are skipped. The oldest live message is deleted
// before each send once the cap is reached. Chat failures are collected and
// returned; they never stop the remaining events.
func (p *Presenter) Announce(ctx context.Context, delta []model.Event, st *store.RenderState) error {
	limit := p.opts.MaxLatest
	candidates := delta
	if len(candidates) > limit {
		candidates = candidates[len(candidates)-limit:]
	}

	announced := store.NewSeen(p.opts.MaxAnnounce, st.Announced...)
	now := p.opts.Now()
	var errs []error

	for _, e := range candidates {
		if announced.Has(e.ID) {
			continue
		}
		for len(st.LatestIDs) >= limit {
			oldest := st.LatestIDs[0]
			st.LatestIDs = st.LatestIDs[1:]
			if err := p.chat.Delete(ctx, oldest); err != nil {
				errs = append(errs, &RenderError{Op: "delete_latest", MessageID: oldest, Err: err})
			}
		}

		id, err := p.chat.Send(ctx, p.announcement(e, now))
		if err != nil {
			errs = append(errs, &RenderError{Op: "send_latest", Err: err})
			continue
		}
		st.LatestIDs = append(st.LatestIDs, id)
		announced.Mark(e.ID)
		p.opts.Logger.Info("first_blood_announced", "user", e.User, "challenge", e.Challenge, "message_id", id)
	}

	if len(st.LatestIDs) > limit {
		st.LatestIDs = st.LatestIDs[len(st.LatestIDs)-limit:]
	}
	st.Announced = announced.Keys()
	return errors.Join(errs...)
}

// announcement carries the event id in a spoiler so posted messages can be
// matched back to ledger entries by hand.
func (p *Presenter) announcement(e model.Event, now time.Time) string {
	mention := ""
	if p.opts.Mention != "" {
		mention = " " + p.opts.Mention
	}
	return fmt.Sprintf("🩸 **%s** claimed first blood on **%s** (%s) at %s%s ||%s||",
		e.User, e.Challenge, e.Category, RelativeTime(e.Time, now), mention, e.ID)
}
