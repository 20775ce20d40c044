package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/internal/logging"
	intOtel "github.com/robolab-sim/engine/internal/otel"
	"github.com/robolab-sim/engine/internal/session"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// activeSession feeds session attributes into every log record.
var activeSession atomic.Pointer[session.Session]

func sessionAttrs() []slog.Attr {
	if s := activeSession.Load(); s != nil {
		return s.LogAttrs()
	}
	return nil
}

// setupLogging creates the log file, the optional OTel provider, the slog
// logger and the zerolog logger used by the database and influx managers.
func setupLogging() error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("error creating logs dir: %w", err)
	}

	LogFilePath = logging.LogFilePath(logsDir, logging.ServiceName, SessionStartTime)

	// keep the previous log of the same second
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to create/open log file %s: %w", LogFilePath, err)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.SetContextProvider(sessionAttrs)

	otelCfg := config.GetOTelConfig()
	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: BuildVersion,
			Attributes: []attribute.KeyValue{
				attribute.String("robot.kind", viper.GetString("simulation.robotKind")),
			},
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		} else {
			otelLogProvider = OTelProvider.LoggerProvider()
		}
	}

	level := viper.GetString("logLevel")
	SlogManager.Setup(LogFile, level, otelLogProvider)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	Logger.Info("Begin logging in logs directory", "path", LogFilePath, "version", BuildVersion)
	if OTelProvider != nil {
		Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}

	ZLogger = newZerolog(LogFile, level)

	config.Watch(func() {
		newLevel := viper.GetString("logLevel")
		SlogManager.SetLevel(newLevel)
		Logger.Info("Config file changed", "logLevel", newLevel)
	})
	return nil
}

// newZerolog writes console-formatted records to stderr and the log file.
func newZerolog(file io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	mlw := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		},
		zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		},
	)

	return zerolog.New(mlw).Level(lvl).With().Timestamp().Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
			if s := activeSession.Load(); s != nil {
				e.Str("sessionId", s.ID())
			}
		}))
}

func shutdownLogging() {
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
