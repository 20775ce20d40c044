package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/internal/logging"
	intOtel "github.com/robolab-sim/engine/internal/otel"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

var (
	// build information set by ldflags
	BuildVersion = "dev"
	BuildDate    = "unknown"

	SessionStartTime = time.Now()

	// Logging
	SlogManager *logging.SlogManager
	Logger      *slog.Logger
	ZLogger     zerolog.Logger
	LogFilePath string
	LogFile     *os.File

	// Telemetry
	OTelProvider *intOtel.Provider
)

const usage = `robosim - robot simulation engine

Usage:
  robosim [flags] [run]          run a session (default)
  robosim [flags] sessions       list recorded sessions
  robosim [flags] report <id>    summarise a recorded session

Flags:
`

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	fs := pflag.NewFlagSet("robosim", pflag.ContinueOnError)
	opts := registerFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Printf("robosim %s (%s)\n", BuildVersion, BuildDate)
		return 0
	}

	if err := config.BindFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := config.Load(opts.configDir); err != nil {
		// defaults are set regardless; a missing file is not fatal
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}

	if err := setupLogging(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer shutdownLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "run"
	rest := fs.Args()
	if len(rest) > 0 {
		cmd, rest = strings.ToLower(rest[0]), rest[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runSimulation(ctx, opts, os.Stdout)
	case "sessions":
		err = listSessions(ctx, opts.limit, os.Stdout)
	case "report":
		if len(rest) == 0 {
			fmt.Println("No session ID provided.")
			return 2
		}
		err = reportSessions(ctx, rest, os.Stdout)
	default:
		fs.Usage()
		return 2
	}

	if err != nil {
		Logger.Error("robosim failed", "command", cmd, "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// options are flags that are not config keys.
type options struct {
	configDir string
	challenge string
	catalog   string
	program   string
	learner   string
	duration  time.Duration
	hold      bool
	limit     int
	version   bool
}

func registerFlags(fs *pflag.FlagSet) *options {
	opts := &options{}
	fs.StringVar(&opts.configDir, "config", ".", "directory containing "+config.FileName)
	fs.StringVarP(&opts.challenge, "challenge", "c", "", "challenge file, or a challenge id from --catalog")
	fs.StringVar(&opts.catalog, "catalog", "", "challenge catalog file (JSON array)")
	fs.StringVarP(&opts.program, "program", "p", "", "program file (JSON action list)")
	fs.StringVar(&opts.learner, "learner", "default", "learner whose challenge progress is tracked")
	fs.DurationVarP(&opts.duration, "duration", "d", 0, "end the session after this long (0 = until the program ends or a signal)")
	fs.BoolVar(&opts.hold, "hold", false, "keep ticking after the program finishes")
	fs.IntVar(&opts.limit, "limit", 20, "sessions to list")
	fs.BoolVarP(&opts.version, "version", "v", false, "print version and exit")

	// config keys that can be overridden per run
	fs.String("logLevel", "info", "log level (debug, info, warn, error)")
	fs.String("logsDir", "./simlogs", "directory for log files")
	fs.String("simulation.robotKind", "mobile", "robot kind")
	fs.Int("simulation.tickRate", 60, "ticks per second")
	fs.String("storage.type", "memory", "storage backend (memory, sqlite, postgres, websocket)")
	return opts
}
