package armkin

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestJacobian(t *testing.T, cfg JacobianConfig) *JacobianEstimator {
	t.Helper()
	je, err := NewJacobianEstimator(DefaultModel(), cfg)
	require.NoError(t, err)
	return je
}

func TestJacobianShapeAndBaseColumn(t *testing.T) {
	for _, symmetric := range []bool{false, true} {
		cfg := DefaultJacobianConfig()
		cfg.Symmetric = symmetric
		je := newTestJacobian(t, cfg)

		jac := je.Compute(JointVector{})
		r, c := jac.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, NumKinematicJoints, c)

		// rotating the base sweeps the tip sideways at 0.235 m radius
		perDegree := 0.235 * math.Pi / 180
		assert.InDelta(t, perDegree, jac.At(0, 0), 1e-6)
		assert.InDelta(t, 0, jac.At(1, 0), 1e-9)
		assert.InDelta(t, 0, jac.At(2, 0), 1e-5)

		// wrist roll spins about the tool axis
		for row := 0; row < 3; row++ {
			assert.InDelta(t, 0, jac.At(row, int(WristRoll)), 1e-9)
		}
	}
}

func TestJacobianForwardMatchesCentral(t *testing.T) {
	forward := newTestJacobian(t, DefaultJacobianConfig())
	central := newTestJacobian(t, JacobianConfig{Delta: 0.1, Symmetric: true})

	q := JointVector{20, -35, 40, 25, 0, 0}
	a, b := forward.Compute(q), central.Compute(q)
	assert.True(t, mat.EqualApprox(a, b, 2e-5), "forward:\n%v\ncentral:\n%v", mat.Formatted(a), mat.Formatted(b))
}

func TestManipulability(t *testing.T) {
	je := newTestJacobian(t, DefaultJacobianConfig())

	m, near := je.NearSingularity(JointVector{})
	assert.InDelta(t, 0.078, m, 0.005)
	assert.False(t, near)

	// fully stretched upward: no joint can move the tip sideways
	m, near = je.NearSingularity(JointVector{}.With(Elbow, -90))
	assert.InDelta(t, 0, m, 1e-3)
	assert.True(t, near)
}

func TestJacobianConfigValidate(t *testing.T) {
	_, err := NewJacobianEstimator(DefaultModel(), JacobianConfig{Delta: 0})
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = NewJacobianEstimator(DefaultModel(), JacobianConfig{Delta: 0.1, SingularityThreshold: -1})
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	assert.Equal(t, DefaultJacobianConfig(), JacobianConfig{}.withDefaults())
}

func TestInvert3(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		4, 7, 2,
		3, 6, 1,
		2, 5, 3,
	})
	inv, det, ok := invert3(a)
	require.True(t, ok)
	assert.InDelta(t, 9, det, 1e-12)

	var prod mat.Dense
	prod.Mul(a, inv)
	assert.True(t, mat.EqualApprox(&prod, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12))

	singular := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		2, 4, 6,
		1, 1, 1,
	})
	_, _, ok = invert3(singular)
	assert.False(t, ok)
}
