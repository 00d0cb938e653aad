package armkin

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// Engine bundles a model with its Jacobian estimator, solver and planner so
// callers configure everything once.
type Engine struct {
	model    *KinematicModel
	jacobian *JacobianEstimator
	solver   *Solver
	planner  *MotionPlanner
	logger   logging.Logger
}

// NewEngine wires the components for model.
func NewEngine(model *KinematicModel, jcfg JacobianConfig, logger logging.Logger) (*Engine, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if logger == nil {
		logger = logging.NewLogger("armkin")
	}
	jacobian, err := NewJacobianEstimator(model, jcfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create jacobian estimator")
	}
	solver := NewSolver(model, jacobian, logger)
	return &Engine{
		model:    model,
		jacobian: jacobian,
		solver:   solver,
		planner:  NewMotionPlanner(model, solver, logger),
		logger:   logger,
	}, nil
}

// NewEngineFromConfig validates cfg, loads its model and builds an engine.
func NewEngineFromConfig(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine config")
	}
	model, fromFile := cfg.LoadModel(cfg.Logger)
	eng, err := NewEngine(model, cfg.Jacobian, cfg.Logger)
	if err != nil {
		return nil, err
	}
	eng.logger.Debugf("engine ready: model %q (from file: %v), max reach %.3f m", model.Name, fromFile, model.MaxReach())
	return eng, nil
}

// Model returns the kinematic model the engine was built with.
func (e *Engine) Model() *KinematicModel { return e.model }

// Jacobian returns the shared estimator.
func (e *Engine) Jacobian() *JacobianEstimator { return e.jacobian }

// ForwardKinematics returns the end effector position for joints.
func (e *Engine) ForwardKinematics(joints JointVector) r3.Vector {
	return e.model.ForwardKinematics(joints)
}

// SolveIK runs a single solve from seed.
func (e *Engine) SolveIK(target TargetPose, seed JointVector, cfg IKConfig) (IKResult, error) {
	return e.solver.Solve(target, seed, cfg)
}

// SolveIKMultiStart retries from random seeds until one converges.
func (e *Engine) SolveIKMultiStart(target TargetPose, current JointVector, numStarts int, cfg IKConfig, rng RandSource) (IKResult, error) {
	return e.solver.SolveMultiStart(target, current, numStarts, cfg, rng)
}

// SolveIKMultipleSolutions returns distinct ranked solutions, best first.
func (e *Engine) SolveIKMultipleSolutions(
	ctx context.Context,
	target TargetPose,
	current JointVector,
	multi MultiSolutionConfig,
	cfg IKConfig,
) ([]RankedSolution, error) {
	return e.solver.SolveMultipleSolutions(ctx, target, current, multi, cfg)
}

// SolveBest returns the top-ranked solution.
func (e *Engine) SolveBest(
	ctx context.Context,
	target TargetPose,
	current JointVector,
	multi MultiSolutionConfig,
	cfg IKConfig,
) (IKResult, error) {
	return e.solver.SolveBest(ctx, target, current, multi, cfg)
}

// PlanTrajectory plans a collision-free path from start to end.
func (e *Engine) PlanTrajectory(
	ctx context.Context,
	start, end JointVector,
	obstacles []Obstacle,
	cfg PlanningConfig,
	rng RandSource,
) (*Trajectory, error) {
	return e.planner.PlanTrajectory(ctx, start, end, obstacles, cfg, rng)
}

// Smooth applies a moving average to the interior waypoints. The returned
// CollisionPoints are those of traj, not of the smoothed path; use
// SmoothChecked when Clean must hold for the result.
func (e *Engine) Smooth(traj *Trajectory, window int) *Trajectory {
	return e.planner.Smooth(traj, window)
}

// SmoothChecked smooths traj and replaces its collision points with a fresh
// check of the smoothed waypoints.
func (e *Engine) SmoothChecked(traj *Trajectory, window int, obstacles []Obstacle, cfg PlanningConfig) *Trajectory {
	out := e.planner.Smooth(traj, window)
	out.CollisionPoints = e.planner.CheckTrajectory(out, obstacles, cfg)
	if !out.Clean() {
		e.logger.Warnf("smoothing with window %d introduced collisions", window)
	}
	return out
}

// ScaleVelocity slows the trajectory down near obstacles.
func (e *Engine) ScaleVelocity(traj *Trajectory, obstacles []Obstacle, cfg PlanningConfig) (*Trajectory, error) {
	return e.planner.ScaleVelocity(traj, obstacles, cfg)
}

// CheckTrajectory re-runs the collision checks over traj.
func (e *Engine) CheckTrajectory(traj *Trajectory, obstacles []Obstacle, cfg PlanningConfig) []CollisionPoint {
	return e.planner.CheckTrajectory(traj, obstacles, cfg)
}

// Diagnostics describes one configuration of the arm.
type Diagnostics struct {
	Joints              JointVector `json:"joints"`
	EndEffectorPosition r3.Vector   `json:"end_effector_position"`
	Manipulability      float64     `json:"manipulability"`
	NearSingularity     bool        `json:"near_singularity"`
	WithinLimits        bool        `json:"within_limits"`
	// JointMargins is the distance in degrees to the nearest limit, negative when outside.
	JointMargins map[Joint]float64 `json:"joint_margins"`
}

// Diagnostics reports position, singularity and limit headroom for joints.
func (e *Engine) Diagnostics(joints JointVector) Diagnostics {
	manip, near := e.jacobian.NearSingularity(joints)
	d := Diagnostics{
		Joints:              joints,
		EndEffectorPosition: e.model.ForwardKinematics(joints),
		Manipulability:      manip,
		NearSingularity:     near,
		WithinLimits:        e.model.WithinLimits(joints, 0),
		JointMargins:        make(map[Joint]float64, NumJoints),
	}
	for i, l := range e.model.Limits {
		d.JointMargins[Joint(i)] = min(joints[i]-l.Min, l.Max-joints[i])
	}
	if near {
		e.logger.Debugf("pose %v is near a singularity (manipulability %.4f)", joints, manip)
	}
	return d
}
