package armkin

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/mat"
)

// Method selects the IK algorithm.
type Method string

const (
	// MethodDLS is Jacobian damped least squares.
	MethodDLS Method = "dls"
	// MethodCCD is cyclic coordinate descent.
	MethodCCD Method = "ccd"
)

// acceptanceFactor widens the tolerance for the success band of a solve that
// ran out of iterations.
const acceptanceFactor = 10

// TargetPose is the goal for the end effector.
type TargetPose struct {
	Position r3.Vector
	// Orientation is an optional hint for the gripper direction. Only its
	// orientation vector (OX, OY, OZ) is used, interpreted in the model frame.
	Orientation spatialmath.Orientation
}

// NewTargetPose returns a position-only target in meters.
func NewTargetPose(x, y, z float64) TargetPose {
	return TargetPose{Position: r3.Vector{X: x, Y: y, Z: z}}
}

// IKConfig holds per-call solver parameters.
type IKConfig struct {
	Method            Method  `json:"method"             mapstructure:"method"`
	MaxIterations     int     `json:"max_iterations"     mapstructure:"max_iterations"`
	PositionTolerance float64 `json:"position_tolerance" mapstructure:"position_tolerance"` // meters
	DampingFactor     float64 `json:"damping_factor"     mapstructure:"damping_factor"`     // DLS lambda
	StepSize          float64 `json:"step_size"          mapstructure:"step_size"`          // update gain in (0,1]
	JointLimitMargin  float64 `json:"joint_limit_margin" mapstructure:"joint_limit_margin"` // degrees
}

// DefaultIKConfig returns the documented solver defaults.
func DefaultIKConfig() IKConfig {
	return IKConfig{
		Method:            MethodDLS,
		MaxIterations:     100,
		PositionTolerance: 0.001,
		DampingFactor:     0.1,
		StepSize:          0.5,
		JointLimitMargin:  2,
	}
}

// Validate reports every invalid field. An empty method means DLS.
func (cfg IKConfig) Validate() error {
	var err error
	switch cfg.Method {
	case "", MethodDLS, MethodCCD:
	default:
		err = multierr.Append(err, invalidf("unknown ik method %q", cfg.Method))
	}
	if cfg.MaxIterations <= 0 {
		err = multierr.Append(err, invalidf("max_iterations must be > 0, got %d", cfg.MaxIterations))
	}
	if cfg.PositionTolerance <= 0 {
		err = multierr.Append(err, invalidf("position_tolerance must be > 0, got %g", cfg.PositionTolerance))
	}
	if cfg.StepSize <= 0 || cfg.StepSize > 1 {
		err = multierr.Append(err, invalidf("step_size must be in (0,1], got %g", cfg.StepSize))
	}
	if cfg.DampingFactor < 0 {
		err = multierr.Append(err, invalidf("damping_factor must be >= 0, got %g", cfg.DampingFactor))
	}
	if cfg.JointLimitMargin < 0 {
		err = multierr.Append(err, invalidf("joint_limit_margin must be >= 0, got %g", cfg.JointLimitMargin))
	}
	return err
}

// withDefaults fills zero-valued fields; used for configs read from files
// where an absent key means "use the default".
func (cfg IKConfig) withDefaults() IKConfig {
	def := DefaultIKConfig()
	if cfg.Method == "" {
		cfg.Method = def.Method
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.PositionTolerance == 0 {
		cfg.PositionTolerance = def.PositionTolerance
	}
	if cfg.DampingFactor == 0 {
		cfg.DampingFactor = def.DampingFactor
	}
	if cfg.StepSize == 0 {
		cfg.StepSize = def.StepSize
	}
	return cfg
}

// IKResult is the outcome of a solve. It is always fully populated.
type IKResult struct {
	Joints     JointVector `json:"joints"`
	Iterations int         `json:"iterations"`
	FinalError float64     `json:"final_error"` // meters
	Converged  bool        `json:"converged"`
	// Success is true when the result is usable: converged, or within
	// ten times the tolerance after running out of iterations.
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Solver runs the iterative IK algorithms against one model. It keeps no
// state between calls.
type Solver struct {
	model    *KinematicModel
	jacobian *JacobianEstimator
	logger   logging.Logger
}

// NewSolver binds a solver to a model and Jacobian estimator.
func NewSolver(model *KinematicModel, jacobian *JacobianEstimator, logger logging.Logger) *Solver {
	if logger == nil {
		logger = logging.NewLogger("armkin")
	}
	return &Solver{model: model, jacobian: jacobian, logger: logger}
}

// Solve drives seed toward target with the configured method. The only error
// is an invalid configuration; failing to converge is reported in the result.
func (s *Solver) Solve(target TargetPose, seed JointVector, cfg IKConfig) (IKResult, error) {
	if err := cfg.Validate(); err != nil {
		return IKResult{}, err
	}
	return s.solve(target, seed, cfg), nil
}

// solve assumes cfg is valid.
func (s *Solver) solve(target TargetPose, seed JointVector, cfg IKConfig) IKResult {
	if cfg.Method == MethodCCD {
		return s.solveCCD(target.Position, seed, cfg)
	}
	return s.solveDLS(target.Position, seed, cfg)
}

func (s *Solver) solveDLS(target r3.Vector, seed JointVector, cfg IKConfig) IKResult {
	q := s.model.ClampToLimits(seed, cfg.JointLimitMargin)
	lambdaSq := cfg.DampingFactor * cfg.DampingFactor
	skipped := 0
	best := newBestIterate()

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		e := target.Sub(s.model.ForwardKinematics(q))
		if e.Norm() < cfg.PositionTolerance {
			return s.finish(MethodDLS, q, iter, e.Norm(), cfg)
		}
		best.observe(q, e.Norm())

		// work in meters per radian so the damping term is comparable to J*J^T
		jac := s.jacobian.Compute(q)
		jac.Scale(radToDeg, jac)

		var damped mat.Dense
		damped.Mul(jac, jac.T())
		for i := 0; i < 3; i++ {
			damped.Set(i, i, damped.At(i, i)+lambdaSq)
		}
		inv, det, ok := invert3(&damped)
		if !ok {
			skipped++
			s.logger.Debugf("dls iteration %d: singular system (det=%g), skipping update", iter, det)
			continue
		}

		var w, dq mat.VecDense
		w.MulVec(inv, mat.NewVecDense(3, []float64{e.X, e.Y, e.Z}))
		dq.MulVec(jac.T(), &w)

		next := q
		for col, j := range KinematicJoints {
			next[j] += cfg.StepSize * dq.AtVec(col) * radToDeg
		}
		q = s.model.ClampToLimits(next, cfg.JointLimitMargin)
	}

	if skipped > 0 {
		s.logger.Debugf("dls skipped %d of %d iterations as singular", skipped, cfg.MaxIterations)
	}
	best.observe(q, target.Sub(s.model.ForwardKinematics(q)).Norm())
	return s.finish(MethodDLS, best.joints, cfg.MaxIterations, best.err, cfg)
}

// bestIterate holds the lowest-error configuration a solver has visited.
type bestIterate struct {
	joints JointVector
	err    float64
}

func newBestIterate() *bestIterate {
	return &bestIterate{err: math.Inf(1)}
}

func (b *bestIterate) observe(q JointVector, err float64) {
	if err < b.err {
		b.joints, b.err = q, err
	}
}

func (s *Solver) finish(method Method, q JointVector, iterations int, finalErr float64, cfg IKConfig) IKResult {
	res := IKResult{
		Joints:     q,
		Iterations: iterations,
		FinalError: finalErr,
		Converged:  finalErr < cfg.PositionTolerance,
	}
	res.Success = res.Converged || finalErr < acceptanceFactor*cfg.PositionTolerance
	switch {
	case res.Converged:
		res.Message = fmt.Sprintf("%s converged in %d iterations (error %.4f m)", method, iterations, finalErr)
	case res.Success:
		res.Message = fmt.Sprintf("%s did not converge after %d iterations; error %.4f m is within the acceptance band",
			method, iterations, finalErr)
	default:
		res.Message = fmt.Sprintf("%s did not converge after %d iterations (error %.4f m); target may be unreachable",
			method, iterations, finalErr)
	}
	s.logger.Debugf("ik: %s", res.Message)
	return res
}
