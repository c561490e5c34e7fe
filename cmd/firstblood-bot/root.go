package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

// newRoot also returns the viper instance the flags and env are bound to.
func newRoot() (*cobra.Command, *viper.Viper) {
	v := viper.New()
	config.BindEnv(v)

	cmd := &cobra.Command{
		Use:           "firstblood-bot",
		Short:         "Relay CTF first-blood notifications into a Discord channel",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error.")
	cmd.PersistentFlags().String("log-format", "", "Logging format: text|json.")
	_ = v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(newRunCmd(v))
	cmd.AddCommand(newVersionCmd())
	return cmd, v
}

// loadConfig reads the optional YAML file and overlays env vars and flags.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(strings.TrimSpace(v.GetString("config")))
	if err != nil {
		return config.Config{}, err
	}
	config.Overlay(&cfg, v)
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "firstblood-bot %s\n", strings.TrimSpace(version))
			if c := strings.TrimSpace(commit); c != "" && c != "none" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", c)
			}
			return nil
		},
	}
}
