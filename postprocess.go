package armkin

import (
	"math"
	"time"
)

// Smooth applies a symmetric moving average of the given window to the joint
// angles of every interior waypoint and recomputes end-effector positions.
// The average is centered, so an even window is rounded up to the next odd
// size. The first and last waypoints are left untouched so the endpoints of
// the motion do not move. Timing and collision points are copied from traj
// and describe the unsmoothed path; re-check with CheckTrajectory.
func (p *MotionPlanner) Smooth(traj *Trajectory, window int) *Trajectory {
	out := copyTrajectory(traj)
	n := len(traj.Waypoints)
	if window <= 1 || n < 3 {
		return out
	}
	half := window / 2
	for i := 1; i < n-1; i++ {
		lo, hi := max(0, i-half), min(n-1, i+half)
		var sum JointVector
		for k := lo; k <= hi; k++ {
			for c := range sum {
				sum[c] += traj.Waypoints[k].Joints[c]
			}
		}
		count := float64(hi - lo + 1)
		var avg JointVector
		for c := range avg {
			avg[c] = sum[c] / count
		}
		avg = p.model.ClampToLimits(avg, 0)
		out.Waypoints[i].Joints = avg
		out.Waypoints[i].EndEffectorPosition = p.model.ForwardKinematics(avg)
	}
	return out
}

// ScaleVelocity slows the trajectory near obstacles. Each waypoint's
// VelocityScale becomes distance/SlowdownDistance clamped to
// [MinVelocityFactor, 1], and the time spent reaching it is stretched by the
// inverse of that scale.
func (p *MotionPlanner) ScaleVelocity(traj *Trajectory, obstacles []Obstacle, cfg PlanningConfig) (*Trajectory, error) {
	if cfg.MinVelocityFactor <= 0 || cfg.MinVelocityFactor > 1 {
		return nil, invalidf("min_velocity_factor must be in (0,1], got %g", cfg.MinVelocityFactor)
	}
	if cfg.SlowdownDistance <= 0 {
		return nil, invalidf("slowdown_distance must be > 0, got %g", cfg.SlowdownDistance)
	}
	out := copyTrajectory(traj)
	var elapsed time.Duration
	for i := range out.Waypoints {
		wp := &out.Waypoints[i]
		d := minObstacleDistance(wp.EndEffectorPosition, obstacles)
		scale := math.Min(1, math.Max(cfg.MinVelocityFactor, d/cfg.SlowdownDistance))
		wp.VelocityScale = scale
		if i > 0 {
			dt := traj.Waypoints[i].TimestampOffset - traj.Waypoints[i-1].TimestampOffset
			elapsed += time.Duration(float64(dt) / scale)
		}
		wp.TimestampOffset = elapsed
	}
	return out, nil
}

func copyTrajectory(traj *Trajectory) *Trajectory {
	out := *traj
	out.Waypoints = append([]Waypoint(nil), traj.Waypoints...)
	out.CollisionPoints = append([]CollisionPoint(nil), traj.CollisionPoints...)
	return &out
}
