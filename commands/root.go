package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-x-monitor/internal/ai"
	"github.com/penwyp/go-x-monitor/internal/application/watch"
	"github.com/penwyp/go-x-monitor/internal/config"
	"github.com/penwyp/go-x-monitor/internal/core/store"
	"github.com/penwyp/go-x-monitor/internal/presentation/display"
	"github.com/penwyp/go-x-monitor/internal/presentation/interaction"
	"github.com/penwyp/go-x-monitor/internal/stream"
	"github.com/penwyp/go-x-monitor/internal/targets"
	"github.com/penwyp/go-x-monitor/internal/util"
)

var (
	// Logging related
	debug   bool
	logFile string

	// Configuration
	configPath string

	// Session logging
	logSession  bool
	sessionFile string

	rootCmd = &cobra.Command{
		Use:   "go-x-monitor [flags]",
		Short: "Real-time X filtered stream monitor",
		Long: `go-x-monitor watches the X filtered stream through user-defined monitors.

Target files dropped into the targets directory become monitors backed by
remote stream rules. Matched posts land in a live activity feed and can be
forwarded to an AI provider for summarization.

Examples:
  go-x-monitor                                  # Run with default settings
  go-x-monitor --config /path/to/config.yaml    # Use an explicit config file
  go-x-monitor --log-session                    # Also append feed items to a session log
  go-x-monitor rules list                       # List remote stream rules
  go-x-monitor rules purge                      # Delete remote rules created by this tool
  go-x-monitor rules terminate                  # Kill every active stream connection`,
		RunE: runWatch,
	}
)

const defaultLogFile = "~/.go-x-monitor/logs/app.log"

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default ~/.go-x-monitor/config.yaml, or X_MONITOR_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile,
		"Application log file path")

	rootCmd.Flags().BoolVar(&logSession, "log-session", false,
		"Append every feed item to logs/session-<timestamp>.log")
	rootCmd.Flags().StringVar(&sessionFile, "session-file", "",
		"Session log file path (implies --log-session)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	initLogging()

	cfg, cfgPath, created, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if created {
		util.LogInfof("created default config at %s", cfgPath)
	}

	monitors, err := store.LoadMonitors(cfg.StatePath)
	if err != nil {
		return err
	}
	st := store.New(monitors)
	bus := watch.NewBus()

	opts := watch.Options{
		Config:    cfg,
		Store:     st,
		Analyzer:  ai.NewClient(),
		StatePath: cfg.StatePath,
	}

	if strings.TrimSpace(cfg.BearerToken) != "" {
		client := stream.NewClient(cfg.BearerToken)
		loop := stream.NewLoop(client, bus.Send)
		opts.Rules = client
		opts.RunStream = loop.Run
	} else {
		st.PushError("X bearer token is missing. Set X_BEARER_TOKEN or x_bearer_token in the config to connect.")
	}

	targetsDir, err := targets.PrepareDir(cfg.TargetsDir)
	if err != nil {
		return fmt.Errorf("failed to prepare targets directory: %w", err)
	}
	entries, err := targets.LoadEntries(targetsDir)
	if err != nil {
		return fmt.Errorf("failed to read targets directory: %w", err)
	}

	watcher, err := targets.NewWatcher(targetsDir)
	if err != nil {
		util.LogWarnf("target file watching disabled: %v", err)
		st.PushError(fmt.Sprintf("target file watching disabled: %v", err))
	} else {
		defer watcher.Close()
		opts.TargetEvents = watcher.Events()
	}

	if logSession || sessionFile != "" {
		path := sessionFile
		var err error
		if path == "" {
			path, err = watch.DefaultSessionLogPath()
		}
		if err == nil {
			var logger *watch.SessionLogger
			logger, err = watch.NewSessionLogger(path)
			if err == nil {
				defer logger.Close()
				opts.SessionLog = logger
				st.PushInfo("session log: " + logger.Path())
			}
		}
		if err != nil {
			st.PushError(fmt.Sprintf("session logging disabled: %v", err))
		}
	}

	renderer := display.NewRenderer()
	renderer.EnterAltScreen()
	defer renderer.ExitAltScreen()
	opts.Renderer = renderer

	keyboard, err := interaction.NewKeyboardReader()
	if err != nil {
		util.LogWarnf("keyboard input unavailable: %v", err)
		st.PushError("keyboard input unavailable; running read-only (Ctrl+C to quit)")
	} else {
		defer keyboard.Close()
		opts.Intents = keyboard
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := watch.New(bus, opts)
	orchestrator.ImportEntries(entries)
	orchestrator.Run(ctx)
	return nil
}

func initLogging() {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}
	path := expandPath(logFile)
	ensureDir(filepath.Dir(path))
	util.InitLogger(logLevel, path, debug)
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
