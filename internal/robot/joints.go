package robot

import (
	"math"
	"sort"

	"github.com/robolab-sim/engine/internal/geo"
)

// Arm joint names.
const (
	JointBase     = "base"
	JointShoulder = "shoulder"
	JointElbow    = "elbow"
	JointWrist    = "wrist"
)

// Limit is an inclusive joint angle range in radians.
type Limit struct {
	Min float64
	Max float64
}

// Clamp limits an angle to the range.
func (l Limit) Clamp(angle float64) float64 {
	return geo.Clamp(angle, l.Min, l.Max)
}

var jointLimits = map[string]Limit{
	JointBase:     {Min: -math.Pi, Max: math.Pi},
	JointShoulder: {Min: -math.Pi / 2, Max: math.Pi / 4},
	JointElbow:    {Min: -math.Pi / 2, Max: math.Pi / 2},
	JointWrist:    {Min: -math.Pi, Max: math.Pi},
}

// JointLimit looks up the range for a named arm joint.
func JointLimit(joint string) (Limit, bool) {
	l, ok := jointLimits[joint]
	return l, ok
}

// JointNames returns the arm joints in sorted order.
func JointNames() []string {
	names := make([]string, 0, len(jointLimits))
	for n := range jointLimits {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
