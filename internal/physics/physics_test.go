package physics

import (
	"math"
	"testing"

	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/environment"
	"github.com/robolab-sim/engine/internal/robot"
	"github.com/robolab-sim/engine/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rapid"
)

const dt = 1.0 / 60

var arena = environment.Bounds{MinX: -5, MaxX: 5, MinZ: -5, MaxZ: 5}

func newState(t testing.TB, kind core.RobotKind) *robot.State {
	t.Helper()
	s, err := robot.NewState(kind)
	require.NoError(t, err)
	return s
}

func run(s *robot.State, env Collider, seconds float64) {
	for range int(math.Round(seconds / dt)) {
		Step(s, env, dt)
	}
}

func TestStep_MobileDrivesForward(t *testing.T) {
	s := newState(t, core.KindMobile)
	env := environment.Open(environment.Bounds{MinX: -50, MaxX: 50, MinZ: -50, MaxZ: 50})
	require.NoError(t, command.Interpret(s, command.Move{Direction: command.Forward, Speed: 0.5}))

	run(s, env, 2)

	assert.Greater(t, s.Position.Z, 5.0)
	assert.InDelta(t, 0, s.Position.X, 1e-9)
	assert.InDelta(t, s.Position.Z, s.DistanceTraveled, 1e-9)
	assert.Less(t, s.Velocity.Z, 4.0, "friction decays velocity")
	assert.Empty(t, s.ErrorLog)
}

func TestStep_CollisionAtBoundary(t *testing.T) {
	s := newState(t, core.KindMobile)
	s.Position.X = 4.9
	env := environment.Open(arena)
	require.NoError(t, command.Interpret(s, command.Move{Direction: command.Right, Speed: 1}))

	res := Step(s, env, dt)

	assert.True(t, res.Collided)
	assert.Greater(t, res.Candidate.X, 5.0)
	assert.Zero(t, res.Delta)
	assert.Equal(t, 4.9, s.Position.X)
	assert.Equal(t, []string{robot.CollisionFault}, s.ErrorLog)
	assert.False(t, s.IsMoving)
	assert.Zero(t, s.Velocity)

	// the rest of a one second hold changes nothing and logs nothing more
	run(s, env, 1-dt)
	assert.Equal(t, 4.9, s.Position.X)
	assert.Len(t, s.ErrorLog, 1)
}

func TestStep_CollisionKeepsYaw(t *testing.T) {
	s := newState(t, core.KindMobile)
	s.Position.Z = 4.99
	require.NoError(t, command.Interpret(s, command.Move{Direction: command.Forward, Speed: 1}))
	require.NoError(t, command.Interpret(s, command.Rotate{Direction: command.Right, Speed: 1}))

	res := Step(s, environment.Open(arena), dt)
	assert.True(t, res.Collided)
	assert.Zero(t, s.Yaw)
	assert.Zero(t, s.AngularVelocity)
}

func TestStep_RotateWrapsYaw(t *testing.T) {
	s := newState(t, core.KindMobile)
	s.Yaw = math.Pi - 0.01
	s.AngularVelocity = 1.2

	res := Step(s, environment.Open(arena), dt)
	assert.False(t, res.Collided)
	assert.Greater(t, res.YawDelta, 0.0)
	assert.Less(t, s.Yaw, 0.0, "yaw wrapped past pi")
	assert.Greater(t, s.Yaw, -math.Pi)
}

func TestStep_DroneHovers(t *testing.T) {
	s := newState(t, core.KindDrone)
	run(s, environment.Open(arena), 20)
	assert.InDelta(t, s.Profile.HoverHeight, s.Position.Y, 0.2)
}

func TestStep_SpiderPinnedToStance(t *testing.T) {
	s := newState(t, core.KindSpider)
	s.Velocity.Y = 5
	require.NoError(t, command.Interpret(s, command.Move{Direction: command.Forward, Speed: 1}))
	run(s, environment.Open(arena), 0.5)
	assert.Equal(t, s.Profile.StanceHeight, s.Position.Y)
	assert.Greater(t, s.Position.Z, 0.0)
}

func TestStep_SpiderDampsHarderThanMobile(t *testing.T) {
	mobile := newState(t, core.KindMobile)
	spider := newState(t, core.KindSpider)
	mobile.Velocity = r3.Vec{Z: 1}
	spider.Velocity = r3.Vec{Z: 1}

	Step(mobile, nil, 1)
	Step(spider, nil, 1)
	assert.Less(t, spider.Velocity.Z, mobile.Velocity.Z)
}

func TestStep_ArmStationaryButDrains(t *testing.T) {
	s := newState(t, core.KindArm)
	s.Velocity = r3.Vec{X: 1}
	require.NoError(t, command.Interpret(s, command.MoveJoint{Joint: robot.JointWrist, Direction: command.Forward}))

	res := Step(s, environment.Open(arena), 1)
	assert.Zero(t, s.Position)
	assert.InDelta(t, s.Profile.Drain.Moving, res.Drained, 1e-9)
}

func TestStep_DrainOrdering(t *testing.T) {
	env := environment.Open(arena)

	idle := newState(t, core.KindMobile)
	rotating := newState(t, core.KindMobile)
	moving := newState(t, core.KindMobile)
	require.NoError(t, command.Interpret(rotating, command.Rotate{Direction: command.Left, Speed: 1}))
	require.NoError(t, command.Interpret(moving, command.Move{Direction: command.Forward, Speed: 0.1}))

	di := Step(idle, env, dt).Drained
	dr := Step(rotating, env, dt).Drained
	dm := Step(moving, env, dt).Drained
	assert.Greater(t, dm, dr)
	assert.Greater(t, dr, di)
}

func TestStep_IgnoresBadDelta(t *testing.T) {
	s := newState(t, core.KindMobile)
	s.Velocity = r3.Vec{Z: 1}
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		res := Step(s, nil, bad)
		assert.Zero(t, res)
	}
	assert.Equal(t, robot.MaxBattery, s.BatteryLevel)
}

func TestStep_BatteryStaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom(core.AllKinds()).Draw(t, "kind")
		s, err := robot.NewState(kind)
		if err != nil {
			t.Fatal(err)
		}
		s.IsMoving = rapid.Bool().Draw(t, "moving")
		env := environment.Open(arena)
		steps := rapid.IntRange(1, 300).Draw(t, "steps")
		for range steps {
			Step(s, env, rapid.Float64Range(0, 5).Draw(t, "dt"))
			if s.BatteryLevel < 0 || s.BatteryLevel > robot.MaxBattery {
				t.Fatalf("battery %v out of range", s.BatteryLevel)
			}
		}
	})
}

func TestStep_CollisionNeverMovesRobot(t *testing.T) {
	env, err := environment.New(arena,
		environment.Obstacle{Shape: environment.ShapeBox, Position: r3.Vec{X: 2, Z: 2}, HalfDimensions: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}},
		environment.Obstacle{Shape: environment.ShapeCylinder, Position: r3.Vec{X: -2, Z: 1}, Radius: 0.7},
	)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		s, err := robot.NewState(core.KindMobile)
		if err != nil {
			t.Fatal(err)
		}
		s.Yaw = rapid.Float64Range(-math.Pi, math.Pi).Draw(t, "yaw")
		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for range steps {
			s.Velocity = r3.Vec{
				X: rapid.Float64Range(-6, 6).Draw(t, "vx"),
				Z: rapid.Float64Range(-6, 6).Draw(t, "vz"),
			}
			before := s.Position
			res := Step(s, env, dt)
			if res.Collided && s.Position != before {
				t.Fatalf("collided step moved robot from %v to %v", before, s.Position)
			}
			if env.Collides(s.Position) {
				t.Fatalf("robot ended inside a collision at %v", s.Position)
			}
		}
	})
}
