// Package discord binds the presenter's Chat interface and the startup needs of
// the relay (ready wait, channel lookup, mention lookup, purge) to a discordgo
// session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/khoirulanam-dev/CTF-Polije/internal/logutil"
	"github.com/khoirulanam-dev/CTF-Polije/internal/present"
)

var ErrNotBound = errors.New("discord: channel not bound")

type Client struct {
	s      *discordgo.Session
	logger *slog.Logger

	ready     chan struct{}
	selfID    string
	channelID string
	guildID   string
}

func New(token string, logger *slog.Logger) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord: empty token")
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	if logger == nil {
		logger = logutil.Discard()
	}

	c := &Client{s: s, logger: logger, ready: make(chan struct{})}
	s.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		if r.User != nil {
			c.selfID = r.User.ID
			logger.Info("discord_ready", "user", r.User.Username, "user_id", r.User.ID)
		}
		close(c.ready)
	})
	return c, nil
}

// Open connects the gateway and blocks until the Ready event, ctx ends, or
// timeout passes.
func (c *Client) Open(ctx context.Context, timeout time.Duration) error {
	if err := c.s.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.ready:
		return nil
	case <-timer.C:
		return fmt.Errorf("discord: no ready event after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Close() error { return c.s.Close() }

// Bind resolves the target channel. Every message call goes there afterwards.
func (c *Client) Bind(_ context.Context, channelID string) error {
	ch, err := c.s.Channel(channelID)
	if err != nil {
		return fmt.Errorf("discord: channel %s not found: %w", channelID, err)
	}
	c.channelID = ch.ID
	c.guildID = ch.GuildID
	c.logger.Info("discord_channel_bound", "channel_id", ch.ID, "channel", ch.Name, "guild_id", ch.GuildID)
	return nil
}

func (c *Client) Send(_ context.Context, content string) (string, error) {
	if c.channelID == "" {
		return "", ErrNotBound
	}
	m, err := c.s.ChannelMessageSend(c.channelID, content)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (c *Client) SendEmbed(_ context.Context, e present.Embed) (string, error) {
	if c.channelID == "" {
		return "", ErrNotBound
	}
	m, err := c.s.ChannelMessageSendEmbed(c.channelID, toEmbed(e))
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (c *Client) EditEmbed(_ context.Context, messageID string, e present.Embed) error {
	if c.channelID == "" {
		return ErrNotBound
	}
	_, err := c.s.ChannelMessageEditEmbed(c.channelID, messageID, toEmbed(e))
	return err
}

func (c *Client) Delete(_ context.Context, messageID string) error {
	if c.channelID == "" {
		return ErrNotBound
	}
	return c.s.ChannelMessageDelete(c.channelID, messageID)
}

// PurgeOwn deletes every message the bot authored in the bound channel.
func (c *Client) PurgeOwn(ctx context.Context) (int, error) {
	if c.channelID == "" {
		return 0, ErrNotBound
	}
	deleted := 0
	before := ""
	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		batch, err := c.s.ChannelMessages(c.channelID, 100, before, "", "")
		if err != nil {
			return deleted, fmt.Errorf("discord: list messages: %w", err)
		}
		if len(batch) == 0 {
			return deleted, nil
		}
		for _, m := range batch {
			if m.Author == nil || m.Author.ID != c.selfID {
				continue
			}
			if err := c.s.ChannelMessageDelete(c.channelID, m.ID); err != nil {
				c.logger.Warn("discord_purge_delete_error", "message_id", m.ID, "error", err.Error())
				continue
			}
			deleted++
		}
		// discord returns newest first
		before = batch[len(batch)-1].ID
	}
}

// ResolveMention turns a member/role id or name into a mention string. Anything
// that cannot be resolved is returned as plain "@ident".
func (c *Client) ResolveMention(_ context.Context, ident string) string {
	if c.guildID == "" {
		return "@" + ident
	}
	return resolveMention(&guildDirectory{s: c.s, guildID: c.guildID}, ident)
}

func toEmbed(e present.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}
