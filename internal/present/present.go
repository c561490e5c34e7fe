// Package present renders the ledger into chat: one leaderboard message kept
// up to date in place, plus a short feed of per-event announcements.
package present

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khoirulanam-dev/CTF-Polije/internal/logutil"
)

// Chat is the slice of the chat API the presenter needs. Returned strings are
// message ids.
type Chat interface {
	Send(ctx context.Context, content string) (string, error)
	SendEmbed(ctx context.Context, e Embed) (string, error)
	EditEmbed(ctx context.Context, messageID string, e Embed) error
	Delete(ctx context.Context, messageID string) error
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// RenderError is one failed chat operation.
type RenderError struct {
	Op        string // send_table, edit_table, delete_latest, send_latest
	MessageID string
	Err       error
}

func (e *RenderError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.MessageID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

type Options struct {
	TableSize   int    // events listed on the leaderboard
	MaxLatest   int    // live announcement messages
	MaxAnnounce int    // remembered announced ids
	Mention     string // appended to announcements when set
	Logger      *slog.Logger
	Now         func() time.Time
}

type Presenter struct {
	chat Chat
	opts Options
}

func New(chat Chat, opts Options) *Presenter {
	if opts.TableSize <= 0 {
		opts.TableSize = 10
	}
	if opts.MaxLatest <= 0 {
		opts.MaxLatest = 3
	}
	if opts.MaxAnnounce <= 0 {
		opts.MaxAnnounce = 100
	}
	if opts.Logger == nil {
		opts.Logger = logutil.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Presenter{chat: chat, opts: opts}
}
