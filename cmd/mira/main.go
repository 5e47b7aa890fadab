// Mira is a voice-driven personal assistant.
//
// It captures utterances, asks a generative language backend for a
// structured reply, executes the requested action (lights, timers,
// messages), and speaks the response. Configuration is loaded from a
// single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	mira run                 Start the assistant loop
//	mira version             Print version and build information
//	mira -o json version     Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mirahq/mira-agent/internal/actions"
	"github.com/mirahq/mira-agent/internal/agent"
	"github.com/mirahq/mira-agent/internal/buildinfo"
	"github.com/mirahq/mira-agent/internal/config"
	"github.com/mirahq/mira-agent/internal/devices"
	"github.com/mirahq/mira-agent/internal/events"
	"github.com/mirahq/mira-agent/internal/journal"
	"github.com/mirahq/mira-agent/internal/llm"
	"github.com/mirahq/mira-agent/internal/notify"
	"github.com/mirahq/mira-agent/internal/prompt"
	"github.com/mirahq/mira-agent/internal/rooms"
	"github.com/mirahq/mira-agent/internal/session"
	"github.com/mirahq/mira-agent/internal/speech"
	"github.com/mirahq/mira-agent/internal/timers"
	"github.com/mirahq/mira-agent/internal/vision"
	"github.com/mirahq/mira-agent/internal/weather"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdin, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the mira command. All OS-level
// dependencies are injected as parameters. Arguments are parsed by
// hand: the flag package relies on package-level globals
// (flag.CommandLine), which makes it impossible to call run()
// concurrently from tests, and the argument surface is small enough
// that manual parsing is clearer than bringing in a CLI framework.
func run(ctx context.Context, stdin io.Reader, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var sessionKey string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-session" && i+1 < len(args):
			sessionKey = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-session="):
			sessionKey = strings.TrimPrefix(args[i], "-session=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "run":
		return runAssistant(ctx, stdin, stdout, configPath, sessionKey)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runAssistant wires every collaborator and supervises the two
// long-running goroutines: the turn loop and the timer watcher. The
// shutdown sequence is:
//  1. SIGINT/SIGTERM (or exhausted input) cancels the context
//  2. The watcher and loop drain and return
//  3. MQTT, redis, and the journal close via defers
func runAssistant(ctx context.Context, stdin io.Reader, stdout io.Writer, configPath, sessionKey string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Mira",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)

	// Secrets referenced as ${VAR} in the config file can live in a
	// local .env; a missing file is fine.
	_ = godotenv.Load()

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", cfgPath, err)
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger only covers the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("config %s: %w", cfgPath, err)
		}
		logger = newLogger(stdout, level)
	}
	logger.Info("config loaded", "path", cfgPath, "model", cfg.Gemini.Model)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	// --- Activity journal ---
	jrnl, err := journal.NewStore(filepath.Join(cfg.DataDir, "mira.db"))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	// --- Session store ---
	var store session.Store
	switch cfg.Session.Backend {
	case "redis":
		rs, err := session.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	default:
		fs, err := session.NewFileStore(cfg.DataDir)
		if err != nil {
			return err
		}
		store = fs
	}

	if sessionKey == "" {
		sessionKey = cfg.Session.Key
	}
	if sessionKey == "" {
		sessionKey = session.NewKey(time.Now())
	}

	bus := events.New()
	registry := rooms.NewRegistry(cfg.Rooms)

	// --- Speech I/O ---
	listener := speech.NewConsoleListener(stdin, stdout)
	var speaker speech.Speaker
	if cfg.Speech.PlayerCmd != "" {
		cs, err := speech.NewCommandSpeaker(cfg.Speech.PlayerCmd, stdout, logger)
		if err != nil {
			return fmt.Errorf("speech player: %w", err)
		}
		speaker = cs
	} else {
		speaker = speech.NewConsoleSpeaker(stdout)
	}

	// --- Language backend and context providers ---
	var systemPrompt string
	if cfg.Gemini.SystemPromptFile != "" {
		data, err := os.ReadFile(cfg.Gemini.SystemPromptFile)
		if err != nil {
			return fmt.Errorf("read system prompt: %w", err)
		}
		systemPrompt = string(data)
	}
	llmClient := llm.NewClient(cfg.Gemini, systemPrompt, logger)

	var weatherProv prompt.Provider
	if cfg.Weather.APIKey != "" {
		weatherProv = weather.NewClient(cfg.Weather, logger)
	} else {
		logger.Info("weather context disabled (not configured)")
		weatherProv = prompt.ProviderFunc(func(context.Context) string {
			return weather.Placeholder
		})
	}
	cameraProv := vision.NewProvider(cfg.Camera, llmClient, logger)
	builder := prompt.NewBuilder(weatherProv, cameraProv, nil)

	// --- Outbound collaborators ---
	var notifier actions.Notifier
	if wh := notify.NewWebhook(cfg.Webhook, logger); wh.Enabled() {
		notifier = wh
	} else {
		logger.Info("webhook delivery disabled (not configured)")
	}

	var zones actions.ZoneController
	if cfg.MQTT.Enabled() {
		ctrl := devices.NewController(cfg.MQTT, logger)
		if err := ctrl.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if err := ctrl.Stop(stopCtx); err != nil {
				logger.Error("mqtt shutdown failed", "error", err)
			}
		}()
		zones = ctrl
	} else {
		logger.Info("device control disabled (not configured)")
	}

	// --- Timers, dispatch, loop ---
	pool := timers.NewPool(logger, bus)
	watcher := timers.NewWatcher(logger, bus, pool, speaker, cfg.Timers.Announcement, 0)
	dispatcher := actions.NewDispatcher(registry, zones, notifier, pool, bus, logger)

	loop := agent.NewLoop(agent.Options{
		Logger:       logger,
		Bus:          bus,
		Listener:     listener,
		Speaker:      speaker,
		Builder:      builder,
		Generator:    llmClient,
		Dispatcher:   dispatcher,
		Store:        store,
		Journal:      jrnl,
		SessionKey:   sessionKey,
		HistoryLimit: cfg.Session.HistoryLimit,
	})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		return journalTimerEvents(gctx, bus, jrnl, logger)
	})
	g.Go(func() error {
		// When the input source ends, bring the watcher down too.
		defer cancel()
		return loop.Run(gctx)
	})

	err = g.Wait()
	logger.Info("Mira stopped")
	return err
}

// journalTimerEvents records timer lifecycle events from the bus until
// ctx is cancelled. Best effort: journal write failures are logged.
func journalTimerEvents(ctx context.Context, bus *events.Bus, jrnl *journal.Store, logger *slog.Logger) error {
	ch, cancel := bus.Subscribe(32)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-ch:
			var event string
			switch e.Kind {
			case events.KindTimerScheduled:
				event = "scheduled"
			case events.KindTimerFired:
				event = "fired"
			default:
				continue
			}
			id, _ := e.Data["timer_id"].(string)
			seconds, _ := e.Data["seconds"].(float64)
			if err := jrnl.RecordTimerEvent(id, event, int(seconds)); err != nil {
				logger.Warn("timer journal write failed", "error", err)
			}
		}
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Mira - Voice-Driven Personal Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: mira [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run          Start the assistant loop")
	fmt.Fprintln(w, "  init         Initialize a working directory with defaults")
	fmt.Fprintln(w, "  version      Print version and build information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Config file (default: search standard locations)")
	fmt.Fprintln(w, "  -session <key>    Resume or pin a session key")
	fmt.Fprintln(w, "  -o <format>       Output format for version: text or json")
	return nil
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output goes through slog; this helper
// standardizes the handler configuration.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}
