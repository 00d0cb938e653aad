package armkin

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(DefaultModel(), DefaultJacobianConfig(), logging.NewTestLogger(t))
	require.NoError(t, err)
	return eng
}

func TestNewEngine(t *testing.T) {
	_, err := NewEngine(nil, DefaultJacobianConfig(), nil)
	assert.Error(t, err)

	_, err = NewEngine(DefaultModel(), JacobianConfig{}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	eng, err := NewEngineFromConfig(&Config{Logger: logging.NewTestLogger(t)})
	require.NoError(t, err)
	assert.True(t, eng.Model().Equal(DefaultModel()))

	cfg := DefaultConfig()
	cfg.IK.Method = "gradient"
	_, err = NewEngineFromConfig(&cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestEngineEndToEnd(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	goal := JointVector{30, -20, 40, 30, 0, 50}
	target := TargetPose{Position: eng.ForwardKinematics(goal)}

	best, err := eng.SolveBest(ctx, target, JointVector{}, DefaultMultiSolutionConfig(), DefaultIKConfig())
	require.NoError(t, err)
	require.True(t, best.Success, best.Message)

	traj, err := eng.PlanTrajectory(ctx, JointVector{}, best.Joints, nil, DefaultPlanningConfig(), nil)
	require.NoError(t, err)
	smoothed := eng.Smooth(traj, 5)
	assert.False(t, hasCollision(eng.CheckTrajectory(smoothed, nil, DefaultPlanningConfig())))

	scaled, err := eng.ScaleVelocity(smoothed, nil, DefaultPlanningConfig())
	require.NoError(t, err)
	assert.Equal(t, smoothed.Duration(), scaled.Duration())

	last := scaled.Waypoints[len(scaled.Waypoints)-1]
	assert.Less(t, last.EndEffectorPosition.Sub(target.Position).Norm(), bestSuccessError)
}

func TestEngineDiagnostics(t *testing.T) {
	eng := newTestEngine(t)

	d := eng.Diagnostics(JointVector{}.With(Base, 100).With(Gripper, 30))
	assert.True(t, d.WithinLimits)
	assert.False(t, d.NearSingularity)
	assert.InDelta(t, 10, d.JointMargins[Base], 1e-12)
	assert.InDelta(t, 90, d.JointMargins[Elbow], 1e-12)
	assert.InDelta(t, 30, d.JointMargins[Gripper], 1e-12)
	assertVecNear(t, eng.ForwardKinematics(d.Joints), d.EndEffectorPosition, 1e-12)

	d = eng.Diagnostics(JointVector{}.With(Elbow, -90))
	assert.True(t, d.NearSingularity)

	d = eng.Diagnostics(JointVector{}.With(Wrist, 120))
	assert.False(t, d.WithinLimits)
	assert.InDelta(t, -25, d.JointMargins[Wrist], 1e-12)
}

func TestEngineSmoothChecked(t *testing.T) {
	eng := newTestEngine(t)
	cfg := DefaultPlanningConfig()
	traj, err := eng.PlanTrajectory(context.Background(), sweepStart, sweepEnd, nil, cfg, nil)
	require.NoError(t, err)
	obstacles := []Obstacle{blockingBox(eng.planner)}

	smoothed := eng.Smooth(traj, 5)
	assert.True(t, smoothed.Clean(), "collision points are carried over from the input")

	checked := eng.SmoothChecked(traj, 5, obstacles, cfg)
	assert.Equal(t, smoothed.Waypoints, checked.Waypoints)
	assert.False(t, checked.Clean())
	assert.Equal(t, eng.CheckTrajectory(smoothed, obstacles, cfg), checked.CollisionPoints)

	assert.True(t, eng.SmoothChecked(traj, 5, nil, cfg).Clean())
}
