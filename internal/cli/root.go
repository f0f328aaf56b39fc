// Package cli implements the mission-control CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/app"
	"github.com/rcliao/mission-control/internal/config"
	"github.com/rcliao/mission-control/internal/logging"
	"github.com/rcliao/mission-control/internal/search"
	"github.com/rcliao/mission-control/internal/store"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mission-control",
	Short: "Workspace dashboard: activities, tasks, memories and documents",
	Long:  "A local dashboard over activities, scheduled tasks, memories and indexed documents. SQLite-backed, single binary, with one search across everything.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MISSION_CONTROL_DB or ~/.mission-control/dashboard.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $MISSION_CONTROL_CONFIG or ~/.mission-control/config.toml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func loadConfig() config.Config {
	cfg, err := config.Resolve(configPath, dbPath)
	if err != nil {
		exitErr("load config", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			exitErr("load config", err)
		}
	}
	return cfg
}

func newLogger(cfg config.Config) *log.Logger {
	logger, err := logging.New(os.Stderr, cfg.Logging)
	if err != nil {
		exitErr("logging", err)
	}
	return logger
}

// env is everything a command needs to talk to the dashboard.
type env struct {
	cfg      config.Config
	logger   *log.Logger
	store    *store.SQLiteStore
	svc      *app.Service
	registry *prometheus.Registry
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("close store", "err", err)
	}
}

// openEnv resolves config, opens the store and builds the service.
func openEnv() *env {
	cfg := loadConfig()
	logger := newLogger(cfg)

	if err := config.EnsureConfigDir(cfg.Database.Path); err != nil {
		exitErr("create data dir", err)
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		exitErr("open store", err)
	}
	logger.Debug("store opened", "path", cfg.Database.Path)

	reg := prometheus.NewRegistry()
	svc := app.New(s,
		app.WithLogger(logger),
		app.WithSearchMetrics(search.NewMetrics(reg)),
		app.WithLimits(cfg.Search.Limit, cfg.Search.RecentLimit),
	)
	return &env{cfg: cfg, logger: logger, store: s, svc: svc, registry: reg}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textOutput() bool { return formatFlag == "text" }

// readContent takes the positional args, or stdin when they are empty and
// stdin is not a terminal.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 or a local date with optional minutes.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD[ HH:MM])", s)
}

func timeFlag(cmd *cobra.Command, name string) time.Time {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return time.Time{}
	}
	t, err := parseTime(v)
	if err != nil {
		exitErr(name, err)
	}
	return t
}

// optString returns a pointer to the flag value when the flag was set.
func optString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func optInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func metaFlag(cmd *cobra.Command) map[string]any {
	raw, _ := cmd.Flags().GetString("meta")
	if raw == "" {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		exitErr("meta", fmt.Errorf("must be a JSON object: %w", err))
	}
	return meta
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
