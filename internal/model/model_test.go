package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Session", &Session{}, "sessions"},
		{"RobotState", &RobotState{}, "robot_states"},
		{"Collision", &Collision{}, "collisions"},
		{"ObjectiveCompletion", &ObjectiveCompletion{}, "objective_completions"},
		{"ChallengeCompletion", &ChallengeCompletion{}, "challenge_completions"},
		{"SequenceStep", &SequenceStep{}, "sequence_steps"},
		{"ChallengeProgress", &ChallengeProgress{}, "challenge_progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_CoverEveryTable(t *testing.T) {
	assert.Len(t, DatabaseModels, 7)
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T has no TableName", m)
	}
}
