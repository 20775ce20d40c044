// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robolab-sim/engine/internal/geo"
	"github.com/robolab-sim/engine/pkg/core"
)

// SessionExport is the root JSON structure of an exported session.
type SessionExport struct {
	SessionID   string               `json:"sessionId"`
	RobotKind   core.RobotKind       `json:"robotKind"`
	ChallengeID string               `json:"challengeId,omitempty"`
	StartTime   time.Time            `json:"startTime"`
	EndTime     time.Time            `json:"endTime"`
	Environment core.EnvironmentInfo `json:"environment"`
	Summary     Summary              `json:"summary"`

	// Track rows are [tick, x, y, z, yaw, battery].
	Track      [][]any `json:"track"`
	GroundPath string  `json:"groundPath,omitempty"` // WKT line string on X/Z

	Collisions []core.CollisionEvent     `json:"collisions"`
	Objectives []core.ObjectiveCompleted `json:"objectives"`
	Challenges []core.ChallengeCompleted `json:"challenges"`
	Steps      []core.SequenceStep       `json:"steps"`
}

// Summary holds figures derived from the recorded data.
type Summary struct {
	Ticks            uint64  `json:"ticks"`
	DurationSeconds  float64 `json:"durationSeconds"`
	DistanceTraveled float64 `json:"distanceTraveled"`
	GroundPathLength float64 `json:"groundPathLength"`
	FinalBattery     float64 `json:"finalBattery"`
	Collisions       int     `json:"collisions"`
	Completed        bool    `json:"completed"`
}

// exportJSON writes the session to <challenge>_<start>.json[.gz] in the
// output directory.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.session, b.cfg.CompressOutput))

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func exportFileName(s *core.Session, compress bool) string {
	name := s.ChallengeID
	if name == "" {
		name = "freeplay"
	}
	name = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(name)
	timestamp := s.StartTime.Format("20060102_150405")

	if compress {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

func (b *Backend) buildExport() SessionExport {
	s := b.session
	export := SessionExport{
		SessionID:   s.ID,
		RobotKind:   s.RobotKind,
		ChallengeID: s.ChallengeID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Environment: s.Environment,
		Track:       make([][]any, 0, len(b.states)),
		Collisions:  nonNil(b.collisions),
		Objectives:  nonNil(b.objectives),
		Challenges:  nonNil(b.challenges),
		Steps:       nonNil(b.steps),
	}
	if export.EndTime.IsZero() {
		export.EndTime = time.Now()
	}

	positions := make([]core.Position3D, 0, len(b.states))
	for _, st := range b.states {
		snap := st.Snapshot
		export.Track = append(export.Track, []any{
			st.Tick,
			snap.Position.X,
			snap.Position.Y,
			snap.Position.Z,
			snap.Yaw,
			snap.BatteryLevel,
		})
		positions = append(positions, snap.Position)
	}

	sum := Summary{
		DurationSeconds: export.EndTime.Sub(s.StartTime).Seconds(),
		Collisions:      len(b.collisions),
		Completed:       len(b.challenges) > 0,
	}
	if n := len(b.states); n > 0 {
		last := b.states[n-1]
		sum.Ticks = last.Tick
		sum.DistanceTraveled = last.Snapshot.DistanceTraveled
		sum.FinalBattery = last.Snapshot.BatteryLevel
	}
	if len(positions) >= 2 {
		sum.GroundPathLength = geo.GroundTrackLength(positions)
		if ls, err := geo.GroundTrack(positions); err == nil {
			export.GroundPath = ls.AsText()
		}
	}
	export.Summary = sum

	return export
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return gzWriter.Close()
}
