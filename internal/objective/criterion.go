// Package objective tracks challenge objective progress from the motion a
// robot actually performs and reports each completion exactly once.
package objective

import "fmt"

// Kind of motion a criterion measures.
type Kind string

const (
	KindMove   Kind = "move"
	KindRotate Kind = "rotate"
	// KindNone never completes from motion; only MarkCompleted finishes it.
	KindNone Kind = "none"
)

// Axis a criterion measures along.
type Axis string

const (
	AxisX    Axis = "x"
	AxisY    Axis = "y"
	AxisZ    Axis = "z"
	AxisNone Axis = "none"
)

// Criterion is the parsed, immutable target of one objective. Sign is +1 or
// -1; a rotate criterion with Sign 0 counts rotation in either direction.
type Criterion struct {
	ObjectiveID string  `json:"objectiveId"`
	Kind        Kind    `json:"kind"`
	Axis        Axis    `json:"axis"`
	Sign        int     `json:"sign"`
	Threshold   float64 `json:"threshold"`
}

// None returns a criterion that only explicit marking can complete.
func None(objectiveID string) Criterion {
	return Criterion{ObjectiveID: objectiveID, Kind: KindNone, Axis: AxisNone}
}

func (c Criterion) String() string {
	if c.Kind == KindNone {
		return fmt.Sprintf("%s: none", c.ObjectiveID)
	}
	return fmt.Sprintf("%s: %s %s sign=%+d threshold=%g", c.ObjectiveID, c.Kind, c.Axis, c.Sign, c.Threshold)
}

// contribution returns how much a tick's motion advances the criterion.
// Motion against the required direction contributes nothing.
func (c Criterion) contribution(dx, dz, dyawDeg float64) float64 {
	var v float64
	switch c.Kind {
	case KindMove:
		switch c.Axis {
		case AxisX:
			v = dx
		case AxisZ:
			v = dz
		default:
			return 0
		}
	case KindRotate:
		v = dyawDeg
		if c.Sign == 0 {
			if v < 0 {
				return -v
			}
			return v
		}
	default:
		return 0
	}
	if v*float64(c.Sign) > 0 {
		if v < 0 {
			return -v
		}
		return v
	}
	return 0
}
