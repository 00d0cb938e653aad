package armkin

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
)

// Strategy records which planning stage produced a trajectory.
type Strategy string

// Planning stages in the order they are tried.
const (
	StrategyDirect   Strategy = "direct"
	StrategyApproach Strategy = "approach"
	StrategyHeight   Strategy = "height"
	StrategyRandom   Strategy = "random"
)

// PlanningConfig holds trajectory generation and collision-check parameters.
type PlanningConfig struct {
	// NumWaypoints is the sample count per straight joint-space segment.
	NumWaypoints int `json:"num_waypoints" mapstructure:"num_waypoints"`
	// MaxAngularVelocity bounds the fastest joint, in degrees per second.
	MaxAngularVelocity float64 `json:"max_angular_velocity" mapstructure:"max_angular_velocity"`
	// SafetyMargin inflates obstacles and the table warning band (meters).
	SafetyMargin       float64 `json:"safety_margin"        mapstructure:"safety_margin"`
	TableHeight        float64 `json:"table_height"         mapstructure:"table_height"`
	WorkspaceRadius    float64 `json:"workspace_radius"     mapstructure:"workspace_radius"`
	WorkspaceMaxHeight float64 `json:"workspace_max_height" mapstructure:"workspace_max_height"`
	// ApproachLift is how far the approach waypoint raises the shoulder (degrees).
	ApproachLift float64 `json:"approach_lift" mapstructure:"approach_lift"`
	// ClearanceHeights are tried in order when the approach waypoint collides (meters above the midpoint).
	ClearanceHeights  []float64 `json:"clearance_heights"   mapstructure:"clearance_heights"`
	MaxRandomAttempts int       `json:"max_random_attempts" mapstructure:"max_random_attempts"`
	// RandomJitter bounds the random midpoint perturbation per joint (degrees).
	RandomJitter float64 `json:"random_jitter" mapstructure:"random_jitter"`
	// MinVelocityFactor floors obstacle-proximity velocity scaling, in (0,1].
	MinVelocityFactor float64 `json:"min_velocity_factor" mapstructure:"min_velocity_factor"`
	// SlowdownDistance is the obstacle distance (meters) below which velocity is scaled down.
	SlowdownDistance float64 `json:"slowdown_distance" mapstructure:"slowdown_distance"`
	// IK is used to solve the raised waypoints of the clearance-height search.
	IK IKConfig `json:"ik" mapstructure:"ik"`
}

// DefaultPlanningConfig returns the documented planner defaults.
func DefaultPlanningConfig() PlanningConfig {
	return PlanningConfig{
		NumWaypoints:       20,
		MaxAngularVelocity: 60,
		SafetyMargin:       0.02,
		TableHeight:        0,
		WorkspaceRadius:    0.5,
		WorkspaceMaxHeight: 0.6,
		ApproachLift:       25,
		ClearanceHeights:   []float64{0.05, 0.10, 0.15},
		MaxRandomAttempts:  10,
		RandomJitter:       30,
		MinVelocityFactor:  0.2,
		SlowdownDistance:   0.1,
		IK:                 DefaultIKConfig(),
	}
}

// Validate reports every invalid field.
func (cfg PlanningConfig) Validate() error {
	var err error
	if cfg.NumWaypoints < 2 {
		err = multierr.Append(err, invalidf("num_waypoints must be >= 2, got %d", cfg.NumWaypoints))
	}
	if cfg.MaxAngularVelocity <= 0 {
		err = multierr.Append(err, invalidf("max_angular_velocity must be > 0, got %g", cfg.MaxAngularVelocity))
	}
	if cfg.SafetyMargin < 0 {
		err = multierr.Append(err, invalidf("safety_margin must be >= 0, got %g", cfg.SafetyMargin))
	}
	if cfg.WorkspaceRadius <= 0 || cfg.WorkspaceMaxHeight <= cfg.TableHeight {
		err = multierr.Append(err, invalidf("workspace must have positive radius and lie above the table"))
	}
	if cfg.MaxRandomAttempts < 0 {
		err = multierr.Append(err, invalidf("max_random_attempts must be >= 0, got %d", cfg.MaxRandomAttempts))
	}
	if cfg.MinVelocityFactor <= 0 || cfg.MinVelocityFactor > 1 {
		err = multierr.Append(err, invalidf("min_velocity_factor must be in (0,1], got %g", cfg.MinVelocityFactor))
	}
	if cfg.SlowdownDistance <= 0 {
		err = multierr.Append(err, invalidf("slowdown_distance must be > 0, got %g", cfg.SlowdownDistance))
	}
	return multierr.Append(err, cfg.IK.Validate())
}

func (cfg PlanningConfig) withDefaults() PlanningConfig {
	def := DefaultPlanningConfig()
	if cfg.NumWaypoints == 0 {
		cfg.NumWaypoints = def.NumWaypoints
	}
	if cfg.MaxAngularVelocity == 0 {
		cfg.MaxAngularVelocity = def.MaxAngularVelocity
	}
	if cfg.SafetyMargin == 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	if cfg.WorkspaceRadius == 0 {
		cfg.WorkspaceRadius = def.WorkspaceRadius
	}
	if cfg.WorkspaceMaxHeight == 0 {
		cfg.WorkspaceMaxHeight = def.WorkspaceMaxHeight
	}
	if cfg.ApproachLift == 0 {
		cfg.ApproachLift = def.ApproachLift
	}
	if len(cfg.ClearanceHeights) == 0 {
		cfg.ClearanceHeights = def.ClearanceHeights
	}
	if cfg.MaxRandomAttempts == 0 {
		cfg.MaxRandomAttempts = def.MaxRandomAttempts
	}
	if cfg.RandomJitter == 0 {
		cfg.RandomJitter = def.RandomJitter
	}
	if cfg.MinVelocityFactor == 0 {
		cfg.MinVelocityFactor = def.MinVelocityFactor
	}
	if cfg.SlowdownDistance == 0 {
		cfg.SlowdownDistance = def.SlowdownDistance
	}
	cfg.IK = cfg.IK.withDefaults()
	return cfg
}

// Waypoint is one timed sample of a trajectory.
type Waypoint struct {
	Joints              JointVector   `json:"joints"`
	EndEffectorPosition r3.Vector     `json:"end_effector_position"`
	VelocityScale       float64       `json:"velocity_scale"` // (0,1]
	TimestampOffset     time.Duration `json:"timestamp_offset"`
}

// Trajectory is a time-ordered list of waypoints plus everything the checks found.
type Trajectory struct {
	Waypoints       []Waypoint       `json:"waypoints"`
	CollisionPoints []CollisionPoint `json:"collision_points,omitempty"`
	Strategy        Strategy         `json:"strategy"`
	// Attempts counts candidate paths evaluated, including the accepted one.
	Attempts int `json:"attempts"`
}

// Duration is the timestamp of the last waypoint.
func (t *Trajectory) Duration() time.Duration {
	if len(t.Waypoints) == 0 {
		return 0
	}
	return t.Waypoints[len(t.Waypoints)-1].TimestampOffset
}

// Clean reports whether no collision-severity point was recorded.
func (t *Trajectory) Clean() bool {
	return !hasCollision(t.CollisionPoints)
}

// MotionPlanner builds collision-checked joint-space trajectories.
type MotionPlanner struct {
	model  *KinematicModel
	solver *Solver
	logger logging.Logger
}

// NewMotionPlanner returns a planner that uses solver for raised waypoints.
func NewMotionPlanner(model *KinematicModel, solver *Solver, logger logging.Logger) *MotionPlanner {
	if logger == nil {
		logger = logging.NewLogger("armkin")
	}
	return &MotionPlanner{model: model, solver: solver, logger: logger}
}

// PlanTrajectory tries, in order: the direct path, a raised approach
// waypoint, IK-solved waypoints at increasing clearance heights, and random
// midpoints. The first path with no collision-severity point is returned.
// When every strategy fails the error wraps ErrNoPathFound and the
// trajectory is nil; an unsafe path is never returned.
func (p *MotionPlanner) PlanTrajectory(
	ctx context.Context,
	start, end JointVector,
	obstacles []Obstacle,
	cfg PlanningConfig,
	rng RandSource,
) (*Trajectory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, o := range obstacles {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	rng = orGlobal(rng)
	start = p.model.ClampToLimits(start, 0)
	end = p.model.ClampToLimits(end, 0)
	attempts := 0

	try := func(strategy Strategy, path ...JointVector) *Trajectory {
		attempts++
		traj := p.buildTrajectory(path, obstacles, cfg)
		traj.Strategy = strategy
		traj.Attempts = attempts
		if !traj.Clean() {
			return nil
		}
		p.logger.Debugf("planner: %s path accepted after %d attempts (%d waypoints, %v)",
			strategy, attempts, len(traj.Waypoints), traj.Duration())
		return traj
	}

	if traj := try(StrategyDirect, start, end); traj != nil {
		return traj, nil
	}

	mid := start.Lerp(end, 0.5)
	approach := mid.
		With(Shoulder, mid[Shoulder]-cfg.ApproachLift).
		With(Elbow, mid[Elbow]-cfg.ApproachLift/2).
		With(Wrist, mid[Wrist]+cfg.ApproachLift/2)
	approach = p.model.ClampToLimits(approach, 0)
	if traj := try(StrategyApproach, start, approach, end); traj != nil {
		return traj, nil
	}

	midTip := p.model.ForwardKinematics(mid)
	for _, h := range cfg.ClearanceHeights {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raised := TargetPose{Position: midTip.Add(r3.Vector{Y: h})}
		res := p.solver.solve(raised, mid, cfg.IK)
		if !res.Success {
			p.logger.Debugf("planner: clearance %.3f m unreachable (error %.4f m)", h, res.FinalError)
			continue
		}
		if traj := try(StrategyHeight, start, res.Joints, end); traj != nil {
			return traj, nil
		}
	}

	for i := 0; i < cfg.MaxRandomAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		via := mid
		for _, j := range []Joint{Base, Shoulder, Elbow, Wrist} {
			via[j] += (2*rng.Float64() - 1) * cfg.RandomJitter
		}
		via = p.model.ClampToLimits(via, 0)
		if traj := try(StrategyRandom, start, via, end); traj != nil {
			return traj, nil
		}
	}

	p.logger.Warnf("planner: no collision-free path after %d attempts", attempts)
	return nil, errors.Wrapf(ErrNoPathFound, "%d attempts", attempts)
}

// CheckTrajectory re-runs every collision check over an existing trajectory,
// for example after smoothing.
func (p *MotionPlanner) CheckTrajectory(traj *Trajectory, obstacles []Obstacle, cfg PlanningConfig) []CollisionPoint {
	var points []CollisionPoint
	for i, wp := range traj.Waypoints {
		points = p.checkPose(i, wp.Joints, obstacles, cfg, points)
	}
	return points
}

// buildTrajectory samples each consecutive pair of configurations with
// NumWaypoints points, times each segment by its slowest joint and runs the
// collision checks on every sample.
func (p *MotionPlanner) buildTrajectory(path []JointVector, obstacles []Obstacle, cfg PlanningConfig) *Trajectory {
	traj := &Trajectory{}
	var elapsed time.Duration
	for seg := 0; seg+1 < len(path); seg++ {
		from, to := path[seg], path[seg+1]
		segDuration := secondsToDuration(from.MaxDelta(to) / cfg.MaxAngularVelocity)
		first := 0
		if seg > 0 {
			// shared with the previous segment's last sample
			first = 1
		}
		for i := first; i < cfg.NumWaypoints; i++ {
			t := float64(i) / float64(cfg.NumWaypoints-1)
			q := from.Lerp(to, t)
			idx := len(traj.Waypoints)
			traj.Waypoints = append(traj.Waypoints, Waypoint{
				Joints:              q,
				EndEffectorPosition: p.model.ForwardKinematics(q),
				VelocityScale:       1,
				TimestampOffset:     elapsed + time.Duration(t*float64(segDuration)),
			})
			traj.CollisionPoints = p.checkPose(idx, q, obstacles, cfg, traj.CollisionPoints)
		}
		elapsed += segDuration
	}
	return traj
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
