package armkin

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zigzag(p *MotionPlanner) *Trajectory {
	traj := &Trajectory{Strategy: StrategyDirect, Attempts: 1}
	for i, base := range []float64{0, 10, 0, 10, 0} {
		q := JointVector{}.With(Base, base)
		traj.Waypoints = append(traj.Waypoints, Waypoint{
			Joints:              q,
			EndEffectorPosition: p.model.ForwardKinematics(q),
			VelocityScale:       1,
			TimestampOffset:     time.Duration(i) * 100 * time.Millisecond,
		})
	}
	return traj
}

func TestSmooth(t *testing.T) {
	p := newTestPlanner(t)
	traj := zigzag(p)

	smoothed := p.Smooth(traj, 3)
	require.Len(t, smoothed.Waypoints, 5)
	assert.Equal(t, traj.Waypoints[0], smoothed.Waypoints[0])
	assert.Equal(t, traj.Waypoints[4], smoothed.Waypoints[4])
	assert.InDelta(t, 10.0/3, smoothed.Waypoints[1].Joints[Base], 1e-12)
	assert.InDelta(t, 20.0/3, smoothed.Waypoints[2].Joints[Base], 1e-12)
	for _, wp := range smoothed.Waypoints {
		assertVecNear(t, p.model.ForwardKinematics(wp.Joints), wp.EndEffectorPosition, 1e-12)
	}
	assert.Equal(t, 10.0, traj.Waypoints[1].Joints[Base], "input is not modified")

	t.Run("window of one is a copy", func(t *testing.T) {
		assert.Equal(t, traj, p.Smooth(traj, 1))
	})

	t.Run("even windows round up", func(t *testing.T) {
		assert.Equal(t, p.Smooth(traj, 3), p.Smooth(traj, 2))
		assert.Equal(t, p.Smooth(traj, 5), p.Smooth(traj, 4))
	})
}

func TestScaleVelocity(t *testing.T) {
	p := newTestPlanner(t)
	cfg := DefaultPlanningConfig()

	t.Run("no obstacles keeps full speed", func(t *testing.T) {
		traj := zigzag(p)
		scaled, err := p.ScaleVelocity(traj, nil, cfg)
		require.NoError(t, err)
		assert.Equal(t, traj, scaled)
	})

	t.Run("slows down near obstacles", func(t *testing.T) {
		obstacles := []Obstacle{blockingBox(p)}
		traj, err := p.PlanTrajectory(context.Background(), sweepStart, sweepEnd, obstacles, cfg, nil)
		require.NoError(t, err)

		scaled, err := p.ScaleVelocity(traj, obstacles, cfg)
		require.NoError(t, err)
		require.Len(t, scaled.Waypoints, len(traj.Waypoints))
		assert.Greater(t, scaled.Duration(), traj.Duration())

		slowed := false
		for i, wp := range scaled.Waypoints {
			assert.GreaterOrEqual(t, wp.VelocityScale, cfg.MinVelocityFactor)
			assert.LessOrEqual(t, wp.VelocityScale, 1.0)
			assert.Equal(t, traj.Waypoints[i].Joints, wp.Joints)
			if wp.VelocityScale < 1 {
				slowed = true
			}
			if i > 0 {
				assert.GreaterOrEqual(t, wp.TimestampOffset, scaled.Waypoints[i-1].TimestampOffset)
			}
		}
		assert.True(t, slowed)
	})

	t.Run("inside an obstacle uses the floor", func(t *testing.T) {
		traj := zigzag(p)
		tip := traj.Waypoints[0].EndEffectorPosition
		obstacles := []Obstacle{{ID: "around", Shape: ShapeSphere, Position: tip, Size: r3.Vector{X: 0.01}}}
		scaled, err := p.ScaleVelocity(traj, obstacles, cfg)
		require.NoError(t, err)
		assert.Equal(t, cfg.MinVelocityFactor, scaled.Waypoints[0].VelocityScale)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		bad := cfg
		bad.MinVelocityFactor = 0
		_, err := p.ScaleVelocity(zigzag(p), nil, bad)
		assert.True(t, errors.Is(err, ErrInvalidConfig))

		bad = cfg
		bad.SlowdownDistance = -1
		_, err = p.ScaleVelocity(zigzag(p), nil, bad)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}
