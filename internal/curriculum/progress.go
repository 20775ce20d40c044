package curriculum

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robolab-sim/engine/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Progress records which challenges a learner has completed.
type Progress interface {
	MarkCompleted(ctx context.Context, challengeID string, at time.Time) error
	IsCompleted(ctx context.Context, challengeID string) (bool, error)
	CompletedIDs(ctx context.Context) ([]string, error)
}

// MemoryProgress keeps progress for the lifetime of the process.
type MemoryProgress struct {
	mu   sync.RWMutex
	done map[string]time.Time
}

func NewMemoryProgress() *MemoryProgress {
	return &MemoryProgress{done: make(map[string]time.Time)}
}

// MarkCompleted keeps the first completion time.
func (p *MemoryProgress) MarkCompleted(_ context.Context, challengeID string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.done[challengeID]; !ok {
		p.done[challengeID] = at
	}
	return nil
}

func (p *MemoryProgress) IsCompleted(_ context.Context, challengeID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.done[challengeID]
	return ok, nil
}

func (p *MemoryProgress) CompletedIDs(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.done))
	for id := range p.done {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// GormProgress persists progress per learner in the challenge_progress table.
type GormProgress struct {
	db      *gorm.DB
	learner string
}

// NewGormProgress migrates the progress table and scopes the store to learner.
func NewGormProgress(db *gorm.DB, learner string) (*GormProgress, error) {
	if db == nil {
		return nil, errors.New("nil database")
	}
	if err := db.AutoMigrate(&model.ChallengeProgress{}); err != nil {
		return nil, fmt.Errorf("failed to migrate challenge progress: %w", err)
	}
	return &GormProgress{db: db, learner: learner}, nil
}

// MarkCompleted inserts a row once; repeated completions keep the first time.
func (p *GormProgress) MarkCompleted(ctx context.Context, challengeID string, at time.Time) error {
	row := model.ChallengeProgress{
		Learner:     p.learner,
		ChallengeID: challengeID,
		CompletedAt: at,
	}
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record completion of %s: %w", challengeID, err)
	}
	return nil
}

func (p *GormProgress) IsCompleted(ctx context.Context, challengeID string) (bool, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Model(&model.ChallengeProgress{}).
		Where("learner = ? AND challenge_id = ?", p.learner, challengeID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to query progress: %w", err)
	}
	return n > 0, nil
}

func (p *GormProgress) CompletedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := p.db.WithContext(ctx).
		Model(&model.ChallengeProgress{}).
		Where("learner = ?", p.learner).
		Order("challenge_id").
		Pluck("challenge_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	return ids, nil
}
