package armkin

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// singularDeterminant is the |det| below which a 3x3 system is treated as singular.
const singularDeterminant = 1e-10

// JacobianConfig controls the finite-difference estimate.
type JacobianConfig struct {
	// Delta is the joint perturbation in degrees.
	Delta float64 `json:"delta" mapstructure:"delta"`
	// Symmetric selects central differences (2N FK evaluations) instead of forward differences (N+1).
	Symmetric bool `json:"symmetric,omitempty" mapstructure:"symmetric"`
	// SingularityThreshold is the manipulability below which a pose is reported as near-singular.
	SingularityThreshold float64 `json:"singularity_threshold" mapstructure:"singularity_threshold"`
}

// DefaultJacobianConfig returns a 0.1 degree forward-difference estimator.
func DefaultJacobianConfig() JacobianConfig {
	return JacobianConfig{
		Delta:                0.1,
		SingularityThreshold: 0.01,
	}
}

// Validate checks the estimator parameters.
func (cfg JacobianConfig) Validate() error {
	if cfg.Delta <= 0 {
		return invalidf("jacobian delta must be > 0, got %g", cfg.Delta)
	}
	if cfg.SingularityThreshold < 0 {
		return invalidf("singularity threshold must be >= 0, got %g", cfg.SingularityThreshold)
	}
	return nil
}

func (cfg JacobianConfig) withDefaults() JacobianConfig {
	def := DefaultJacobianConfig()
	if cfg.Delta == 0 {
		cfg.Delta = def.Delta
	}
	if cfg.SingularityThreshold == 0 {
		cfg.SingularityThreshold = def.SingularityThreshold
	}
	return cfg
}

// JacobianEstimator numerically differentiates a model's FK. It holds no
// per-call state and may be shared between goroutines.
type JacobianEstimator struct {
	model *KinematicModel
	cfg   JacobianConfig
}

// NewJacobianEstimator validates cfg and binds it to model.
func NewJacobianEstimator(model *KinematicModel, cfg JacobianConfig) (*JacobianEstimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &JacobianEstimator{model: model, cfg: cfg}, nil
}

// Compute returns the 3xN matrix d(position)/d(angle) in meters per degree,
// one column per kinematic joint in chain order.
func (je *JacobianEstimator) Compute(joints JointVector) *mat.Dense {
	jac := mat.NewDense(3, NumKinematicJoints, nil)
	delta := je.cfg.Delta
	if je.cfg.Symmetric {
		for col, j := range KinematicJoints {
			plus := je.model.ForwardKinematics(joints.With(j, joints[j]+delta))
			minus := je.model.ForwardKinematics(joints.With(j, joints[j]-delta))
			d := plus.Sub(minus).Mul(1 / (2 * delta))
			jac.Set(0, col, d.X)
			jac.Set(1, col, d.Y)
			jac.Set(2, col, d.Z)
		}
		return jac
	}

	base := je.model.ForwardKinematics(joints)
	for col, j := range KinematicJoints {
		perturbed := je.model.ForwardKinematics(joints.With(j, joints[j]+delta))
		d := perturbed.Sub(base).Mul(1 / delta)
		jac.Set(0, col, d.X)
		jac.Set(1, col, d.Y)
		jac.Set(2, col, d.Z)
	}
	return jac
}

// Manipulability returns sqrt(det(J*J^T)) for the Jacobian expressed in
// reach-normalized units per radian, which makes the value dimensionless.
// It tends to zero at kinematic singularities.
func (je *JacobianEstimator) Manipulability(joints JointVector) float64 {
	jac := je.Compute(joints)
	jac.Scale(radToDeg/je.model.MaxReach(), jac)
	var jjt mat.Dense
	jjt.Mul(jac, jac.T())
	det := determinant3(&jjt)
	if det <= 0 {
		return 0
	}
	return math.Sqrt(det)
}

// NearSingularity reports the manipulability and whether it falls below the threshold.
func (je *JacobianEstimator) NearSingularity(joints JointVector) (float64, bool) {
	m := je.Manipulability(joints)
	return m, m < je.cfg.SingularityThreshold
}

func determinant3(a mat.Matrix) float64 {
	return a.At(0, 0)*(a.At(1, 1)*a.At(2, 2)-a.At(1, 2)*a.At(2, 1)) -
		a.At(0, 1)*(a.At(1, 0)*a.At(2, 2)-a.At(1, 2)*a.At(2, 0)) +
		a.At(0, 2)*(a.At(1, 0)*a.At(2, 1)-a.At(1, 1)*a.At(2, 0))
}

// invert3 inverts a 3x3 matrix by cofactor expansion. ok is false when the
// determinant is too small to invert safely.
func invert3(a mat.Matrix) (inv *mat.Dense, det float64, ok bool) {
	det = determinant3(a)
	if math.Abs(det) < singularDeterminant {
		return nil, det, false
	}
	inv = mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			// adjugate is the transposed cofactor matrix
			r0, r1 := (j+1)%3, (j+2)%3
			c0, c1 := (i+1)%3, (i+2)%3
			cof := a.At(r0, c0)*a.At(r1, c1) - a.At(r0, c1)*a.At(r1, c0)
			inv.Set(i, j, cof/det)
		}
	}
	return inv, det, true
}
