package armkin

import (
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/referenceframe"
)

func assertVecNear(t *testing.T, want, got r3.Vector, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestForwardKinematicsKnownPoses(t *testing.T) {
	m := DefaultModel()

	t.Run("zero pose reaches forward", func(t *testing.T) {
		assertVecNear(t, r3.Vector{Y: 0.211, Z: 0.235}, m.ForwardKinematics(JointVector{}), 1e-9)
	})

	t.Run("base rotates about the vertical axis", func(t *testing.T) {
		assertVecNear(t, r3.Vector{X: 0.235, Y: 0.211}, m.ForwardKinematics(JointVector{}.With(Base, 90)), 1e-9)
	})

	t.Run("straight up reaches max height", func(t *testing.T) {
		tip := m.ForwardKinematics(JointVector{}.With(Elbow, -90))
		assertVecNear(t, r3.Vector{Y: m.MaxReach()}, tip, 1e-9)
	})

	t.Run("shoulder forward folds the arm down", func(t *testing.T) {
		assertVecNear(t, r3.Vector{Y: -0.140, Z: 0.116}, m.ForwardKinematics(JointVector{}.With(Shoulder, 90)), 1e-9)
	})

	t.Run("wrist roll and gripper do not move the tip", func(t *testing.T) {
		q := JointVector{10, -20, 30, 40, 0, 0}
		assertVecNear(t, m.ForwardKinematics(q), m.ForwardKinematics(q.With(WristRoll, 90).With(Gripper, 80)), 1e-12)
	})
}

func TestForwardKinematicsWithinReach(t *testing.T) {
	m := DefaultModel()
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		var q JointVector
		for j, l := range m.Limits {
			q[j] = l.Min + rng.Float64()*(l.Max-l.Min)
		}
		assert.LessOrEqual(t, m.ForwardKinematics(q).Norm(), m.MaxReach()+1e-9)
	}
}

func TestChainMatchesForwardKinematics(t *testing.T) {
	m := DefaultModel()
	q := JointVector{25, -30, 45, 20, 10, 0}
	c := m.Chain(q)

	assertVecNear(t, m.ForwardKinematics(q), c.EndEffector, 1e-12)
	assertVecNear(t, r3.Vector{}, c.Pivots[Base], 1e-12)
	assertVecNear(t, r3.Vector{Y: m.Lengths.BaseHeight}, c.Pivots[Shoulder], 1e-12)
	assert.InDelta(t, m.Lengths.UpperArm, c.Pivots[Elbow].Sub(c.Pivots[Shoulder]).Norm(), 1e-12)
	assert.InDelta(t, m.Lengths.Forearm, c.Pivots[Wrist].Sub(c.Pivots[Elbow]).Norm(), 1e-12)
	assert.InDelta(t, 1, c.ToolAxis.Norm(), 1e-12)
	assertVecNear(t, c.Pivots[WristRoll].Add(c.ToolAxis.Mul(m.Lengths.WristToTip)), c.EndEffector, 1e-12)
}

func TestClampToLimits(t *testing.T) {
	m := DefaultModel()
	q := JointVector{200, -200, 0, 94, 0, 150}

	clamped := m.ClampToLimits(q, 2)
	assert.Equal(t, 108.0, clamped[Base])
	assert.Equal(t, -98.0, clamped[Shoulder])
	assert.Equal(t, 93.0, clamped[Wrist])
	assert.Equal(t, 100.0, clamped[Gripper], "gripper ignores the margin")
	assert.True(t, m.WithinLimits(clamped, 2))
	assert.False(t, m.WithinLimits(q, 0))

	t.Run("margin wider than the range pins to the middle", func(t *testing.T) {
		limits := DefaultJointLimits
		limits[Wrist] = referenceframe.Limit{Min: 10, Max: 12}
		narrow, err := NewKinematicModel("narrow", limits, DefaultLinkLengths)
		require.NoError(t, err)
		assert.Equal(t, 11.0, narrow.ClampToLimits(JointVector{}, 5)[Wrist])
	})
}

func TestNewKinematicModelValidation(t *testing.T) {
	limits := DefaultJointLimits
	limits[Elbow] = referenceframe.Limit{Min: 10, Max: 10}
	_, err := NewKinematicModel("bad", limits, DefaultLinkLengths)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	lengths := DefaultLinkLengths
	lengths.Forearm = 0
	_, err = NewKinematicModel("bad", DefaultJointLimits, lengths)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestModelEqual(t *testing.T) {
	a, b := DefaultModel(), DefaultModel()
	assert.True(t, a.Equal(b))

	lengths := DefaultLinkLengths
	lengths.UpperArm += 0.01
	c, err := NewKinematicModel("longer", DefaultJointLimits, lengths)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.InDelta(t, a.MaxReach()+0.01, c.MaxReach(), 1e-12)
}
