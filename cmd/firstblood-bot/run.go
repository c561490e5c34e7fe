package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/discord"
	"github.com/khoirulanam-dev/CTF-Polije/internal/logutil"
	"github.com/khoirulanam-dev/CTF-Polije/internal/metrics"
	"github.com/khoirulanam-dev/CTF-Polije/internal/present"
	"github.com/khoirulanam-dev/CTF-Polije/internal/relay"
	"github.com/khoirulanam-dev/CTF-Polije/internal/server"
	"github.com/khoirulanam-dev/CTF-Polije/internal/sink"
	"github.com/khoirulanam-dev/CTF-Polije/internal/source"
	"github.com/khoirulanam-dev/CTF-Polije/internal/store"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and poll the scoreboard for first bloods",
		RunE: func(cmd *cobra.Command, args []string) error {
			once, _ := cmd.Flags().GetBool("once")
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger, err := logutil.New(cfg.Logging)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, once, logger)
		},
	}
	cmd.Flags().Bool("once", false, "Run a single poll cycle and exit.")
	return cmd
}

func run(ctx context.Context, cfg config.Config, once bool, logger *slog.Logger) error {
	bot, err := discord.New(cfg.Discord.Token, logger)
	if err != nil {
		return err
	}
	logger.Info("discord_connecting", "ready_timeout", cfg.Discord.ReadyTimeout.String())
	if err := bot.Open(ctx, cfg.Discord.ReadyTimeout); err != nil {
		logger.Error("discord_open_error", "error", err.Error())
		return err
	}
	defer bot.Close()
	if err := bot.Bind(ctx, cfg.Discord.ChannelID); err != nil {
		logger.Error("discord_channel_error", "channel_id", cfg.Discord.ChannelID, "error", err.Error())
		return err
	}

	mention := ""
	if m := cfg.Mention(); m != "" {
		mention = bot.ResolveMention(ctx, m)
		logger.Info("mention_resolved", "target", m, "mention", mention)
	}

	st, err := store.NewFromConfig(cfg.State)
	if err != nil {
		return err
	}
	defer st.Close()

	src, err := source.NewFromConfig(cfg.Backend)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sinks := sink.FromConfig(cfg)
	for _, s := range sinks {
		logger.Info("sink_enabled", "sink", s.Name())
	}

	r, err := relay.New(relay.Options{
		Source: src,
		Store:  st,
		Renderer: present.New(bot, present.Options{
			TableSize: cfg.Poll.TableSize,
			MaxLatest: cfg.Poll.MaxLatest,
			Mention:   mention,
			Logger:    logger,
		}),
		Purger:     bot,
		Sinks:      sinks,
		Metrics:    m,
		Logger:     logger,
		Interval:   cfg.Poll.Interval,
		LedgerSize: cfg.Poll.LedgerSize,
	})
	if err != nil {
		return err
	}
	if err := r.Prepare(ctx); err != nil {
		logger.Error("state_load_error", "error", err.Error())
		return err
	}

	if once {
		if err := r.RunOnce(ctx); err != nil {
			logger.Warn("poll_cycle_errors", "error", err.Error())
		}
		return nil
	}

	if cfg.StatusServerEnabled() {
		gin.SetMode(gin.ReleaseMode)
		srv := server.New(cfg.Server, reg, r.Snapshot)
		go func() {
			logger.Info("status_server_listening", "addr", cfg.Server.ListenAddress)
			if err := srv.Serve(); err != nil {
				logger.Error("status_server_error", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("poll_started", "interval", cfg.Poll.Interval.String(), "source", src.Name(), "store", st.Name())
	return r.Run(ctx)
}
