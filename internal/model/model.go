package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Unknown is shown for display fields the backend left empty.
const Unknown = "<unknown>"

// Event is one first-blood notification, normalized from the backend payload.
// The JSON shape matches the ledger file written by earlier deployments.
type Event struct {
	ID        string `json:"id"` // stable across fetches; the only dedup key
	User      string `json:"user"`
	Challenge string `json:"challenge"`
	Category  string `json:"category"`
	Time      string `json:"time"` // ISO-8601, kept exactly as the backend sent it
}

// Timestamp parses Time. ok is false when the string is not a recognised ISO-8601 form.
func (e Event) Timestamp() (time.Time, bool) {
	t, err := ParseTime(e.Time)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DigestID derives the canonical event id: hex sha256 of "user|challenge|time".
func DigestID(user, challenge, ts string) string {
	sum := sha256.Sum256([]byte(user + "|" + challenge + "|" + ts))
	return hex.EncodeToString(sum[:])
}

// ParseTime accepts the timestamp shapes the backend has been seen to emit:
// RFC3339 with or without fractional seconds, a space instead of 'T', and
// zone-less values (read as UTC).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999Z07",
		"2006-01-02 15:04:05.999999999Z07",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time: %s", s)
}
