package present

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
	"github.com/khoirulanam-dev/CTF-Polije/internal/store"
)

const (
	tableColor    = 0xff0000
	fieldValueMax = 1024 // discord embed field value limit
	zeroWidth     = "\u200b"
)

// Leaderboard creates or updates the single table message listing the newest
// ledger entries. An edit that fails for any reason falls back to sending a
// fresh message, whose id replaces st.TableID.
func (p *Presenter) Leaderboard(ctx context.Context, ledger []model.Event, st *store.RenderState) error {
	embed := p.tableEmbed(ledger)

	if st.TableID != "" {
		err := p.chat.EditEmbed(ctx, st.TableID, embed)
		if err == nil {
			return nil
		}
		p.opts.Logger.Debug("leaderboard_edit_failed", "message_id", st.TableID, "error", err.Error())
	}

	id, err := p.chat.SendEmbed(ctx, embed)
	if err != nil {
		return &RenderError{Op: "send_table", Err: err}
	}
	st.TableID = id
	return nil
}

func (p *Presenter) tableEmbed(ledger []model.Event) Embed {
	n := p.opts.TableSize
	recent := ledger
	if len(recent) > n {
		recent = recent[len(recent)-n:]
	}
	now := p.opts.Now()
	lines := make([]string, 0, len(recent))
	for _, e := range recent {
		lines = append(lines, fmt.Sprintf("%s → %s (%s) \n| %s", e.User, e.Challenge, e.Category, RelativeTime(e.Time, now)))
	}
	value := strings.Join(lines, "\n")
	if value == "" {
		value = zeroWidth
	}
	return Embed{
		Title:       fmt.Sprintf("🏆 First Blood Table (%d latest)", n),
		Description: fmt.Sprintf("Showing the latest %d first blood solves.", n),
		Color:       tableColor,
		Fields:      []Field{{Name: zeroWidth, Value: clamp(value, fieldValueMax)}},
	}
}

// clamp cuts s to at most max runes, marking the cut with an ellipsis.
func clamp(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
