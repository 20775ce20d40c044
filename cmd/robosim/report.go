package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/internal/database"
	"github.com/robolab-sim/engine/internal/geo"
	gormstorage "github.com/robolab-sim/engine/internal/storage/gorm"
	"github.com/robolab-sim/engine/internal/util"
	"github.com/robolab-sim/engine/pkg/core"

	"gorm.io/gorm"
)

var errNotQueryable = errors.New("storage type keeps no queryable sessions")

// openSessionDB connects to the database the configured backend records into.
func openSessionDB(cfg config.StorageConfig) (*gorm.DB, func(), error) {
	switch cfg.Type {
	case "sqlite":
		db, err := database.OpenSqlite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return nil, nil, err
		}
		return db, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil

	case "postgres":
		m := database.NewManager(ZLogger, cfg.DB)
		if err := m.Connect(); err != nil {
			return nil, nil, err
		}
		if m.ShouldSaveLocal {
			_ = m.Close()
			return nil, nil, fmt.Errorf("postgres at %s unreachable", cfg.DB.Host)
		}
		if err := m.Setup(); err != nil {
			_ = m.Close()
			return nil, nil, err
		}
		return m.DB, func() { _ = m.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", errNotQueryable, cfg.Type)
}

// listSessions prints the most recent recorded sessions.
func listSessions(ctx context.Context, limit int, w io.Writer) error {
	db, closeDB, err := openSessionDB(config.GetStorageConfig())
	if err != nil {
		return err
	}
	defer closeDB()

	sessions, err := gormstorage.ListSessions(ctx, db, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROBOT\tCHALLENGE\tSTARTED\tDURATION")
	for _, s := range sessions {
		challenge := s.ChallengeID
		if challenge == "" {
			challenge = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.RobotKind, challenge,
			s.StartTime.Local().Format(time.DateTime), sessionDuration(s.StartTime, s.EndTime))
	}
	return tw.Flush()
}

// reportSessions prints a summary of each session in ids. Unknown ids are
// reported and skipped.
func reportSessions(ctx context.Context, ids []string, w io.Writer) error {
	db, closeDB, err := openSessionDB(config.GetStorageConfig())
	if err != nil {
		return err
	}
	defer closeDB()

	var seen []string
	for _, id := range ids {
		if util.Contains(seen, id) {
			continue
		}
		if len(seen) > 0 {
			fmt.Fprintln(w)
		}
		seen = append(seen, id)
		rec, err := gormstorage.LoadSession(ctx, db, id)
		if errors.Is(err, gormstorage.ErrSessionNotFound) {
			fmt.Fprintf(w, "session %s: not found\n", id)
			continue
		}
		if err != nil {
			return err
		}
		writeReport(w, rec)
	}
	return nil
}

func writeReport(w io.Writer, rec gormstorage.SessionRecord) {
	s := rec.Session
	fmt.Fprintf(w, "session %s\n", s.ID)
	fmt.Fprintf(w, "  robot:      %s\n", s.RobotKind)
	if s.ChallengeID != "" {
		fmt.Fprintf(w, "  challenge:  %s\n", s.ChallengeID)
	}
	fmt.Fprintf(w, "  started:    %s\n", s.StartTime.Local().Format(time.DateTime))
	fmt.Fprintf(w, "  duration:   %s\n", sessionDuration(s.StartTime, s.EndTime))
	fmt.Fprintf(w, "  arena:      x [%.1f, %.1f] z [%.1f, %.1f], %d obstacles\n",
		s.Environment.MinX, s.Environment.MaxX, s.Environment.MinZ, s.Environment.MaxZ,
		s.Environment.ObstacleCount)

	if n := len(rec.States); n > 0 {
		first, last := rec.States[0].Snapshot, rec.States[n-1].Snapshot
		track := make([]core.Position3D, n)
		for i, st := range rec.States {
			track[i] = st.Snapshot.Position
		}
		fmt.Fprintf(w, "  samples:    %d (last at tick %d)\n", n, rec.States[n-1].Tick)
		fmt.Fprintf(w, "  distance:   %.2f m\n", last.DistanceTraveled)
		fmt.Fprintf(w, "  track:      %.2f m sampled, %.2f m start to end\n",
			geo.GroundTrackLength(track),
			geo.PlanarDistance(geo.FromPosition3D(first.Position), geo.FromPosition3D(last.Position)))
		fmt.Fprintf(w, "  battery:    %.1f%%\n", last.BatteryLevel)
	}
	fmt.Fprintf(w, "  collisions: %d\n", len(rec.Collisions))

	failed := 0
	for _, st := range rec.Steps {
		if st.Err != "" {
			failed++
		}
	}
	if len(rec.Steps) > 0 {
		fmt.Fprintf(w, "  steps:      %d (%d skipped)\n", len(rec.Steps), failed)
	}

	for _, o := range rec.Objectives {
		fmt.Fprintf(w, "  [x] %s at tick %d\n", o.ObjectiveID, o.Tick)
	}
	for _, c := range rec.Challenges {
		fmt.Fprintf(w, "  challenge %s completed at tick %d\n", c.ChallengeID, c.Tick)
	}
}

func sessionDuration(start, end time.Time) string {
	if end.IsZero() || end.Before(start) {
		return "running"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}
