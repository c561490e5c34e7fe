package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBindings maps viper keys to the environment variable names the bot has
// always been deployed with.
var envBindings = map[string]string{
	"discord.token":          "DISCORD_TOKEN",
	"discord.channel_id":     "CHANNEL_ID",
	"discord.mention_target": "MENTION_ROLE_ID",
	"backend.url":            "SUPABASE_URL",
	"backend.api_key":        "SUPABASE_KEY",
	"backend.id_scheme":      "ID_SCHEME",
	"poll.interval_seconds":  "POLL_INTERVAL",
	"state.backend":          "STATE_BACKEND",
	"state.solves_file":      "SOLVES_FILE",
	"state.state_file":       "STATE_FILE",
	"state.redis.addr":       "REDIS_ADDR",
	"state.redis.password":   "REDIS_PASSWORD",
	"loki.url":               "LOKI_URL",
	"server.listen_address":  "METRICS_ADDR",
	"logging.level":          "LOG_LEVEL",
	"logging.format":         "LOG_FORMAT",
}

// BindEnv registers the environment names on v.
func BindEnv(v *viper.Viper) {
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
}

// Overlay copies every key that is set on v (env or changed flag) over c.
func Overlay(c *Config, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = strings.TrimSpace(v.GetString(key))
		}
	}
	str("discord.token", &c.Discord.Token)
	str("discord.channel_id", &c.Discord.ChannelID)
	str("discord.mention_target", &c.Discord.MentionTarget)
	str("backend.url", &c.Backend.URL)
	str("backend.api_key", &c.Backend.APIKey)
	str("backend.id_scheme", &c.Backend.IDScheme)
	str("state.backend", &c.State.Backend)
	str("state.solves_file", &c.State.SolvesFile)
	str("state.state_file", &c.State.StateFile)
	str("state.redis.addr", &c.State.Redis.Addr)
	str("state.redis.password", &c.State.Redis.Password)
	str("loki.url", &c.Loki.URL)
	str("server.listen_address", &c.Server.ListenAddress)
	str("logging.level", &c.Logging.Level)
	str("logging.format", &c.Logging.Format)

	if v.IsSet("poll.interval_seconds") {
		if secs := v.GetInt("poll.interval_seconds"); secs > 0 {
			c.Poll.Interval = time.Duration(secs) * time.Second
		}
	}
	c.ApplyDefaults()
}
