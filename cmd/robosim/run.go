package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robolab-sim/engine/internal/api"
	"github.com/robolab-sim/engine/internal/channel"
	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/internal/curriculum"
	"github.com/robolab-sim/engine/internal/dispatcher"
	"github.com/robolab-sim/engine/internal/handlers"
	"github.com/robolab-sim/engine/internal/influx"
	"github.com/robolab-sim/engine/internal/logging"
	"github.com/robolab-sim/engine/internal/monitor"
	"github.com/robolab-sim/engine/internal/parser"
	"github.com/robolab-sim/engine/internal/sequencer"
	"github.com/robolab-sim/engine/internal/session"
	"github.com/robolab-sim/engine/internal/storage"
	"github.com/robolab-sim/engine/internal/worker"
	"github.com/robolab-sim/engine/pkg/core"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// runSimulation runs one session: the tick loop, the program (if any) and
// the monitor share an errgroup. The session ends when the program
// finishes (unless opts.hold), when opts.duration elapses, or on signal.
func runSimulation(ctx context.Context, opts *options, out io.Writer) error {
	simCfg := config.GetSimulationConfig()
	sessCfg, err := session.ConfigFrom(simCfg, config.GetEnvironmentBounds())
	if err != nil {
		return err
	}

	p := parser.NewParser(Logger)

	var actions []sequencer.Action
	if opts.program != "" {
		data, err := os.ReadFile(opts.program)
		if err != nil {
			return fmt.Errorf("failed to read program: %w", err)
		}
		if actions, err = p.ParseActions(data); err != nil {
			return err
		}
	}

	// Storage
	storageCfg := config.GetStorageConfig()
	backend, db, err := storage.NewBackend(storageCfg, Logger)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()
	if db == nil {
		if sqlBackend, ok := backend.(interface{ DB() *gorm.DB }); ok {
			db = sqlBackend.DB()
		}
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	// Curriculum
	progress, err := newProgress(db, opts.learner)
	if err != nil {
		return err
	}
	catalog, parsedCatalog, err := loadCatalog(p, opts.catalog)
	if err != nil {
		return err
	}

	// Dispatcher and storage workers
	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	workerManager := worker.NewManager(worker.Dependencies{Logger: Logger}, backend)
	workerManager.RegisterHandlers(d)

	notices := channel.New[notice](256)
	sess, err := session.New(sessCfg, session.Dependencies{
		Publisher: &teePublisher{next: d, notices: notices},
		Parser:    p,
		Progress:  progress,
		Logger:    Logger,
	})
	if err != nil {
		return err
	}
	activeSession.Store(sess)
	defer activeSession.Store(nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.duration > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, opts.duration)
		defer cancel()
	}

	handlerService, err := handlers.NewService(runCtx, handlers.Dependencies{
		Session:  sess,
		Parser:   p,
		Catalog:  catalog,
		Progress: progress,
		Logger:   Logger,
	})
	if err != nil {
		return err
	}
	handlerService.Register(d)

	if opts.challenge != "" {
		if err := loadChallenge(runCtx, d, sess, catalog, parsedCatalog, progress, opts.challenge); err != nil {
			return err
		}
		fmt.Fprintf(out, "challenge %q loaded\n", sess.Challenge().ID)
	}

	// Monitor, with influx when enabled
	logsDir := viper.GetString("logsDir")
	influxManager := influx.NewManager(ZLogger, config.GetInfluxConfig(),
		filepath.Join(logsDir, "influx_backup.log.gz"))
	monitorDeps := monitor.Dependencies{
		Session:    sess,
		Queue:      d,
		Logger:     Logger,
		Interval:   simCfg.MonitorInterval,
		StatusPath: filepath.Join(logsDir, "status.json"),
	}
	switch err := influxManager.Connect(runCtx); {
	case err == nil:
		monitorDeps.Influx = influxManager
		defer influxManager.Close()
	case errors.Is(err, influx.ErrDisabled):
		Logger.Debug("InfluxDB disabled")
	default:
		Logger.Warn("InfluxDB unavailable", "error", err)
	}
	monitorService := monitor.NewService(monitorDeps)

	sess.Begin()
	Logger.Info("Session running", "tickInterval", sessCfg.TickInterval, "actions", len(actions))

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return sess.Run(gctx, sessCfg.TickInterval)
	})
	g.Go(func() error {
		return monitorService.Run(gctx)
	})
	g.Go(func() error {
		printNotices(gctx, notices, out)
		return nil
	})
	if len(actions) > 0 {
		g.Go(func() error {
			outcome := sess.Sequencer().Run(gctx, actions)
			fmt.Fprintf(out, "program finished: %d/%d executed, %d failed, aborted=%t\n",
				outcome.Executed, outcome.Total, outcome.Failed, outcome.Aborted)
			if !opts.hold {
				cancel()
			}
			return nil
		})
	}

	err = g.Wait()
	sess.End()
	if ferr := OTelProvider.Flush(ctx); ferr != nil {
		Logger.Warn("Failed to flush OTel logs", "error", ferr)
	}

	printSummary(out, sess.Status())

	if exp, ok := backend.(storage.Exportable); ok && err == nil {
		uploadExport(ctx, exp.GetExportedFilePath(), sess)
	}
	return err
}

func newProgress(db *gorm.DB, learner string) (curriculum.Progress, error) {
	if db == nil {
		return curriculum.NewMemoryProgress(), nil
	}
	p, err := curriculum.NewGormProgress(db, learner)
	if err != nil {
		return nil, fmt.Errorf("failed to set up challenge progress: %w", err)
	}
	return p, nil
}

func loadCatalog(p *parser.Parser, path string) (*curriculum.Catalog, map[string]parser.ParsedChallenge, error) {
	if path == "" {
		return nil, nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	parsed, err := p.ParseCatalog(data)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]parser.ParsedChallenge, len(parsed))
	challenges := make([]core.Challenge, len(parsed))
	for i, pc := range parsed {
		challenges[i] = pc.Challenge
		byID[pc.Challenge.ID] = pc
	}
	catalog, err := curriculum.NewCatalog(challenges...)
	if err != nil {
		return nil, nil, err
	}
	Logger.Info("Loaded challenge catalog", "path", path, "challenges", catalog.Len())
	return catalog, byID, nil
}

// loadChallenge loads a catalog challenge directly, keeping its arena, and
// hands anything else to the :CHALLENGE:LOAD: handler.
func loadChallenge(
	ctx context.Context,
	d *dispatcher.Dispatcher,
	sess *session.Session,
	catalog *curriculum.Catalog,
	parsed map[string]parser.ParsedChallenge,
	progress curriculum.Progress,
	arg string,
) error {
	if pc, ok := parsed[arg]; ok {
		if _, err := catalog.Open(ctx, progress, arg); err != nil {
			return err
		}
		return sess.LoadChallenge(pc)
	}
	_, err := d.Dispatch(dispatcher.Event{
		Command:   handlers.CmdChallengeLoad,
		Args:      []string{arg},
		Timestamp: time.Now(),
	})
	return err
}

func printSummary(w io.Writer, st session.Status) {
	fmt.Fprintf(w, "session %s: %d ticks, distance %.2f m, battery %.1f%%, collisions %d\n",
		st.SessionID, st.Tick, st.Robot.DistanceTraveled, st.Robot.BatteryLevel, st.Collisions)
	for _, o := range st.Objectives {
		mark := " "
		if o.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-16s %s (%.0f%%)\n", mark, o.Criterion.ObjectiveID, o.Criterion, o.Progress*100)
	}
	if st.ChallengeID != "" && st.Finished {
		fmt.Fprintf(w, "challenge %q finished\n", st.ChallengeID)
	}
}

// uploadExport sends the session export to the results server when
// uploads are enabled.
func uploadExport(ctx context.Context, path string, sess *session.Session) {
	cfg := config.GetUploadConfig()
	if !cfg.Enabled || path == "" {
		return
	}

	client := api.New(cfg.URL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Warn("Results server unavailable, keeping export on disk", "path", path, "error", err)
		return
	}

	info := sess.Info()
	st := sess.Status()
	completed := 0
	for _, o := range st.Objectives {
		if o.Completed {
			completed++
		}
	}
	meta := api.SessionMetadata{
		SessionID:       info.ID,
		RobotKind:       info.RobotKind,
		ChallengeID:     info.ChallengeID,
		DurationSeconds: info.EndTime.Sub(info.StartTime).Seconds(),
		Completed:       completed,
	}
	if err := client.Upload(ctx, path, meta); err != nil {
		Logger.Error("Failed to upload session export", "path", path, "error", err)
		return
	}
	Logger.Info("Uploaded session export", "path", path)
}
