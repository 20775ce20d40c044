package gormstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/robolab-sim/engine/internal/model"
	"github.com/robolab-sim/engine/internal/model/convert"
	"github.com/robolab-sim/engine/pkg/core"

	"gorm.io/gorm"
)

// ErrSessionNotFound is returned by LoadSession for an unknown id.
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord is a stored session with everything recorded for it.
type SessionRecord struct {
	Session    core.Session
	States     []core.RobotStateSample
	Collisions []core.CollisionEvent
	Objectives []core.ObjectiveCompleted
	Challenges []core.ChallengeCompleted
	Steps      []core.SequenceStep
}

// ListSessions returns the most recent sessions first.
func ListSessions(ctx context.Context, db *gorm.DB, limit int) ([]core.Session, error) {
	var rows []model.Session
	q := db.WithContext(ctx).Order("start_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]core.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.SessionToCore(r))
	}
	return out, nil
}

// LoadSession reads one session and all of its records in tick order.
func LoadSession(ctx context.Context, db *gorm.DB, id string) (SessionRecord, error) {
	var rec SessionRecord
	db = db.WithContext(ctx)

	var row model.Session
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rec, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return rec, fmt.Errorf("failed to load session: %w", err)
	}
	rec.Session = convert.SessionToCore(row)

	var states []model.RobotState
	if err := db.Where("session_id = ?", id).Order("tick").Find(&states).Error; err != nil {
		return rec, fmt.Errorf("failed to load robot states: %w", err)
	}
	for _, s := range states {
		sample := convert.RobotStateToCore(s)
		sample.Snapshot.Kind = rec.Session.RobotKind
		rec.States = append(rec.States, sample)
	}

	var collisions []model.Collision
	if err := db.Where("session_id = ?", id).Order("tick").Find(&collisions).Error; err != nil {
		return rec, fmt.Errorf("failed to load collisions: %w", err)
	}
	for _, c := range collisions {
		rec.Collisions = append(rec.Collisions, convert.CollisionToCore(c))
	}

	var objectives []model.ObjectiveCompletion
	if err := db.Where("session_id = ?", id).Order("tick").Find(&objectives).Error; err != nil {
		return rec, fmt.Errorf("failed to load objective completions: %w", err)
	}
	for _, o := range objectives {
		rec.Objectives = append(rec.Objectives, convert.ObjectiveCompletionToCore(o))
	}

	var challenges []model.ChallengeCompletion
	if err := db.Where("session_id = ?", id).Order("tick").Find(&challenges).Error; err != nil {
		return rec, fmt.Errorf("failed to load challenge completions: %w", err)
	}
	for _, c := range challenges {
		rec.Challenges = append(rec.Challenges, convert.ChallengeCompletionToCore(c))
	}

	var steps []model.SequenceStep
	if err := db.Where("session_id = ?", id).Order("id").Find(&steps).Error; err != nil {
		return rec, fmt.Errorf("failed to load sequence steps: %w", err)
	}
	for _, s := range steps {
		rec.Steps = append(rec.Steps, convert.SequenceStepToCore(s))
	}

	return rec, nil
}
