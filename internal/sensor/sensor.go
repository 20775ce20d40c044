// Package sensor answers sensor reads against a robot's current state.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/robolab-sim/engine/internal/geo"
	"github.com/robolab-sim/engine/pkg/core"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrUnknownSensor is returned for sensor types the bank does not model.
var ErrUnknownSensor = errors.New("unknown sensor")

// Type names a sensor.
type Type string

const (
	Distance Type = "distance"
	Gyro     Type = "gyro"
	Battery  Type = "battery"
	Position Type = "position"
	Touch    Type = "touch"
	Light    Type = "light"
)

// Types returns every supported sensor type.
func Types() []Type {
	return []Type{Distance, Gyro, Battery, Position, Touch, Light}
}

// ParseType converts a user-supplied name into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownSensor)
}

const (
	// MaxRange is the distance reported when nothing is hit.
	MaxRange = 10.0
	// RayStep is the ray march increment.
	RayStep = 0.05
	// TouchReach is how far ahead the touch sensor probes.
	TouchReach = 0.1

	lightMean  = 500.0
	lightSigma = 50.0
)

// Reading is the result of one sensor read. Vector is set for position reads.
type Reading struct {
	Type   Type             `json:"type"`
	Value  float64          `json:"value"`
	Vector *core.Position3D `json:"vector,omitempty"`
	Time   time.Time        `json:"time"`
}

// Source exposes the robot and arena the bank reads from.
type Source interface {
	Snapshot() core.RobotSnapshot
	Collides(position r3.Vec) bool
}

// Option configures a Bank.
type Option func(*Bank)

// WithLatency delays every read, simulating a slow bus.
func WithLatency(d time.Duration) Option {
	return func(b *Bank) {
		b.latency = d
	}
}

// WithSeed makes light readings reproducible.
func WithSeed(seed uint64) Option {
	return func(b *Bank) {
		b.light.Src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
}

// Bank serves reads for one robot.
type Bank struct {
	src     Source
	latency time.Duration

	mu    sync.Mutex
	light distuv.Normal
}

// NewBank creates a sensor bank reading from src.
func NewBank(src Source, opts ...Option) *Bank {
	b := &Bank{
		src: src,
		light: distuv.Normal{
			Mu:    lightMean,
			Sigma: lightSigma,
			Src:   rand.NewPCG(uint64(time.Now().UnixNano()), 0),
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Read returns a reading of the given type. It fails with the context's
// error if ctx ends before the read completes.
func (b *Bank) Read(ctx context.Context, t Type) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if b.latency > 0 {
		timer := time.NewTimer(b.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Reading{}, ctx.Err()
		case <-timer.C:
		}
	}

	snap := b.src.Snapshot()
	pos := geo.FromPosition3D(snap.Position)
	r := Reading{Type: t, Time: time.Now()}

	switch t {
	case Distance:
		r.Value = b.rayMarch(pos, snap.Yaw)
	case Gyro:
		r.Value = geo.RadToDeg(snap.Yaw)
	case Battery:
		r.Value = snap.BatteryLevel
	case Position:
		p := snap.Position
		r.Vector = &p
		r.Value = math.Hypot(p.X, p.Z)
	case Touch:
		probe := r3.Add(pos, r3.Scale(TouchReach, geo.Forward(snap.Yaw)))
		if b.src.Collides(probe) {
			r.Value = 1
		}
	case Light:
		b.mu.Lock()
		r.Value = math.Max(0, b.light.Rand())
		b.mu.Unlock()
	default:
		return Reading{}, fmt.Errorf("%q: %w", t, ErrUnknownSensor)
	}
	return r, nil
}

// rayMarch walks forward until the robot would collide, capped at MaxRange.
func (b *Bank) rayMarch(from r3.Vec, yaw float64) float64 {
	dir := geo.Forward(yaw)
	steps := int(math.Round(MaxRange / RayStep))
	for i := 1; i <= steps; i++ {
		if b.src.Collides(r3.Add(from, r3.Scale(float64(i)*RayStep, dir))) {
			return float64(i-1) * RayStep
		}
	}
	return MaxRange
}
