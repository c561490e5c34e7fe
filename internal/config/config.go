package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type DiscordConfig struct {
	Token         string        `yaml:"token"`
	ChannelID     string        `yaml:"channel_id"`
	MentionTarget string        `yaml:"mention_target"` // member/role id or name; "" or "0" disables
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`
}

type BackendConfig struct {
	URL       string        `yaml:"url"`     // supabase project url
	APIKey    string        `yaml:"api_key"` // sent as apikey + bearer token
	Timeout   time.Duration `yaml:"timeout"`
	Limit     int           `yaml:"limit"` // p_limit
	UserAgent string        `yaml:"user_agent"`
	IDScheme  string        `yaml:"id_scheme"` // digest | native
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type StateConfig struct {
	Backend    string      `yaml:"backend"` // file | redis
	SolvesFile string      `yaml:"solves_file"`
	StateFile  string      `yaml:"state_file"`
	Redis      RedisConfig `yaml:"redis"`
}

type PollConfig struct {
	Interval   time.Duration `yaml:"interval"`
	LedgerSize int           `yaml:"ledger_size"`
	TableSize  int           `yaml:"table_size"`
	MaxLatest  int           `yaml:"max_latest"`
}

type LokiConfig struct {
	URL       string        `yaml:"url"`       // http://loki:3100
	TenantID  string        `yaml:"tenant_id"` // optional multi-tenancy
	Job       string        `yaml:"job"`       // label value, default: firstblood-bot
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address"` // "off" disables the status server
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // text | json
	AddSource bool   `yaml:"add_source"`
}

type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Backend BackendConfig `yaml:"backend"`
	State   StateConfig   `yaml:"state"`
	Poll    PollConfig    `yaml:"poll"`
	Loki    LokiConfig    `yaml:"loki"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// Load reads the YAML file at path and applies defaults. An empty path yields
// a defaults-only config, which is the usual case when everything comes from env.
func Load(path string) (Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	c.ApplyDefaults()
	return c, nil
}

func (c *Config) ApplyDefaults() {
	if c.Discord.ReadyTimeout == 0 {
		c.Discord.ReadyTimeout = 30 * time.Second
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Backend.Limit <= 0 {
		c.Backend.Limit = 100
	}
	if c.Backend.IDScheme == "" {
		c.Backend.IDScheme = "digest"
	}
	if c.State.Backend == "" {
		c.State.Backend = "file"
	}
	if c.State.SolvesFile == "" {
		c.State.SolvesFile = "solves.json"
	}
	if c.State.StateFile == "" {
		c.State.StateFile = "state.json"
	}
	if c.State.Redis.Prefix == "" {
		c.State.Redis.Prefix = "firstblood"
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 60 * time.Second
	}
	if c.Poll.LedgerSize <= 0 {
		c.Poll.LedgerSize = 100
	}
	if c.Poll.TableSize <= 0 {
		c.Poll.TableSize = 10
	}
	if c.Poll.MaxLatest <= 0 {
		c.Poll.MaxLatest = 3
	}
	if c.Loki.Job == "" {
		c.Loki.Job = "firstblood-bot"
	}
	if c.Loki.Timeout == 0 {
		c.Loki.Timeout = 10 * time.Second
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":9108"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// StatusServerEnabled reports whether the status server should listen.
func (c Config) StatusServerEnabled() bool {
	return c.Server.ListenAddress != "off"
}

// Mention returns the configured mention target, or "" when mentions are off.
func (c Config) Mention() string {
	m := strings.TrimSpace(c.Discord.MentionTarget)
	if m == "0" {
		return ""
	}
	return m
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Discord.Token) == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN not set"))
	}
	if id := strings.TrimSpace(c.Discord.ChannelID); id == "" || id == "0" {
		errs = append(errs, errors.New("CHANNEL_ID not set"))
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		errs = append(errs, errors.New("SUPABASE_URL not set"))
	}
	if strings.TrimSpace(c.Backend.APIKey) == "" {
		errs = append(errs, errors.New("SUPABASE_KEY not set"))
	}
	switch c.Backend.IDScheme {
	case "digest", "native":
	default:
		errs = append(errs, fmt.Errorf("unknown backend.id_scheme: %s", c.Backend.IDScheme))
	}
	switch c.State.Backend {
	case "file":
	case "redis":
		if strings.TrimSpace(c.State.Redis.Addr) == "" {
			errs = append(errs, errors.New("state.redis.addr required for redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state.backend: %s", c.State.Backend))
	}
	return errors.Join(errs...)
}
