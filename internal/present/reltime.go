package present

import (
	"fmt"
	"time"

	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

// RelativeTime renders iso relative to now: "n seconds ago" up to a minute,
// then minutes, hours, and "n days ago • HH:MM" up to 30 days, after which the
// absolute time is shown. Input that does not parse is returned as is.
func RelativeTime(iso string, now time.Time) string {
	then, err := model.ParseTime(iso)
	if err != nil {
		return iso
	}
	secs := int64(now.Sub(then) / time.Second)
	if secs < 60 {
		return plural(secs, "second") + " ago"
	}
	mins := secs / 60
	if mins < 60 {
		return plural(mins, "minute") + " ago"
	}
	hours := mins / 60
	if hours < 24 {
		return plural(hours, "hour") + " ago"
	}
	days := hours / 24
	if days < 30 {
		return plural(days, "day") + " ago • " + then.Format("15:04")
	}
	return then.Format("2006-01-02 15:04:05")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
