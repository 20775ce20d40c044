package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    Command
		wantErr error
	}{
		{"move forward", Request{Action: "move", Direction: "forward", Speed: 0.5}, Move{Direction: Forward, Speed: 0.5}, nil},
		{"move upper case", Request{Action: "MOVE", Direction: "Left", Speed: 1}, Move{Direction: Left, Speed: 1}, nil},
		{"speed clamped high", Request{Action: "move", Direction: "backward", Speed: 7}, Move{Direction: Backward, Speed: MaxSpeed}, nil},
		{"speed clamped low", Request{Action: "move", Direction: "right", Speed: 0.01}, Move{Direction: Right, Speed: MinSpeed}, nil},
		{"speed omitted", Request{Action: "move", Direction: "forward"}, Move{Direction: Forward, Speed: DefaultSpeed}, nil},
		{"joint move", Request{Action: "move", Direction: "forward", Joint: "Elbow"}, MoveJoint{Joint: "elbow", Direction: Forward}, nil},
		{"rotate", Request{Action: "rotate", Direction: "right", Speed: 0.3}, Rotate{Direction: Right, Speed: 0.3}, nil},
		{"grab", Request{Action: "grab"}, Grab{}, nil},
		{"release", Request{Action: "release"}, Release{}, nil},
		{"stop", Request{Action: "stop"}, Stop{}, nil},
		{"unknown action", Request{Action: "jump"}, nil, ErrUnknownAction},
		{"move without direction", Request{Action: "move"}, nil, ErrInvalidCommand},
		{"rotate forward", Request{Action: "rotate", Direction: "forward"}, nil, ErrInvalidCommand},
		{"rotate with joint", Request{Action: "rotate", Direction: "left", Joint: "base"}, nil, ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, 1.0, Forward.Sign())
	assert.Equal(t, 1.0, Right.Sign())
	assert.Equal(t, -1.0, Backward.Sign())
	assert.Equal(t, -1.0, Left.Sign())
	assert.True(t, Left.Lateral())
	assert.False(t, Backward.Lateral())
}

func TestCommandActions(t *testing.T) {
	assert.Equal(t, ActionMove, MoveJoint{}.Action())
	assert.Equal(t, ActionRotate, Rotate{}.Action())
	assert.Equal(t, "stop", Stop{}.String())
	assert.Equal(t, "move forward joint=elbow", MoveJoint{Joint: "elbow", Direction: Forward}.String())
}
