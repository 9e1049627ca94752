package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yapyap/go-auth/config"
)

var configFile string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yapyap-auth",
		Short: "YapYap authentication service",
		Long: `yapyap-auth registers accounts through email verification and
issues stateless session cookies for the YapYap chat client.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().Bool("debug", false, "dump request payloads and effective config")
	cmd.PersistentFlags().String("database.driver", "sqlite", "database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database.dsn", "", "database connection string")
	cmd.PersistentFlags().String("log.level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
