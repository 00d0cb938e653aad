package armkin

import (
	"math"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/referenceframe"
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// LinkLengths are the fixed link dimensions of the chain, in meters.
type LinkLengths struct {
	BaseHeight float64 `json:"base_height"`  // base plate to shoulder pivot
	UpperArm   float64 `json:"upper_arm"`    // shoulder pivot to elbow pivot
	Forearm    float64 `json:"forearm"`      // elbow pivot to wrist pivot
	WristToTip float64 `json:"wrist_to_tip"` // wrist pivot to gripper tip
}

// DefaultLinkLengths approximates an SO-101 arm.
var DefaultLinkLengths = LinkLengths{
	BaseHeight: 0.0950,
	UpperArm:   0.1160,
	Forearm:    0.1350,
	WristToTip: 0.1000,
}

// DefaultJointLimits are in degrees; the gripper channel is percent open.
var DefaultJointLimits = [NumJoints]referenceframe.Limit{
	Base:      {Min: -110, Max: 110},
	Shoulder:  {Min: -100, Max: 100},
	Elbow:     {Min: -90, Max: 90},
	Wrist:     {Min: -95, Max: 95},
	WristRoll: {Min: -160, Max: 160},
	Gripper:   {Min: 0, Max: 100},
}

// link is one rotation followed by one translation, both expressed in the
// frame produced by the previous link.
type link struct {
	axis        r3.Vector
	zeroOffset  float64 // degrees added to the joint angle
	translation r3.Vector
}

// KinematicModel is the static description of the joint chain.
//
// Frame convention: Y is up, the arm faces +Z when the base is at 0. The base
// rotates about Y; shoulder, elbow and wrist pitch about their local X axis
// (positive tilts forward/down); wrist roll spins about the gripper axis.
// At all-zero angles the upper arm is vertical and the forearm and gripper
// point straight forward.
type KinematicModel struct {
	Name    string
	Limits  [NumJoints]referenceframe.Limit
	Lengths LinkLengths

	links    [NumKinematicJoints]link
	maxReach float64
}

// NewKinematicModel builds a chain from limits and link lengths.
func NewKinematicModel(name string, limits [NumJoints]referenceframe.Limit, lengths LinkLengths) (*KinematicModel, error) {
	if err := validateModel(limits, lengths); err != nil {
		return nil, err
	}
	xAxis := r3.Vector{X: 1}
	yAxis := r3.Vector{Y: 1}
	m := &KinematicModel{
		Name:    name,
		Limits:  limits,
		Lengths: lengths,
		links: [NumKinematicJoints]link{
			Base:      {axis: yAxis, translation: r3.Vector{Y: lengths.BaseHeight}},
			Shoulder:  {axis: xAxis, translation: r3.Vector{Y: lengths.UpperArm}},
			Elbow:     {axis: xAxis, zeroOffset: 90, translation: r3.Vector{Y: lengths.Forearm}},
			Wrist:     {axis: xAxis},
			WristRoll: {axis: yAxis, translation: r3.Vector{Y: lengths.WristToTip}},
		},
	}
	m.maxReach = lengths.BaseHeight + lengths.UpperArm + lengths.Forearm + lengths.WristToTip
	return m, nil
}

// DefaultModel returns the built-in SO-101 style model.
func DefaultModel() *KinematicModel {
	m, err := NewKinematicModel("so-101", DefaultJointLimits, DefaultLinkLengths)
	if err != nil {
		// the defaults are constants; failing here is a programming error
		panic(err)
	}
	return m
}

func validateModel(limits [NumJoints]referenceframe.Limit, lengths LinkLengths) error {
	for j, l := range limits {
		if !(l.Min < l.Max) {
			return invalidf("joint %s: min (%.2f) must be less than max (%.2f)", Joint(j), l.Min, l.Max)
		}
	}
	if lengths.BaseHeight < 0 || lengths.UpperArm <= 0 || lengths.Forearm <= 0 || lengths.WristToTip < 0 {
		return invalidf("link lengths must be positive, got %+v", lengths)
	}
	return nil
}

// MaxReach is the summed length of every link, an upper bound on the distance
// from the base origin to the end effector.
func (m *KinematicModel) MaxReach() float64 {
	return m.maxReach
}

// Chain is the full FK state: every joint pivot and its world rotation axis.
type Chain struct {
	Pivots      [NumKinematicJoints]r3.Vector
	Axes        [NumKinematicJoints]r3.Vector
	EndEffector r3.Vector
	// ToolAxis is the unit direction the gripper points in.
	ToolAxis r3.Vector
}

// ForwardKinematics returns the end effector position in meters.
func (m *KinematicModel) ForwardKinematics(joints JointVector) r3.Vector {
	rot := identity()
	var pos r3.Vector
	for i := range m.links {
		l := &m.links[i]
		rot = rot.mul(axisAngle(l.axis, (joints[i]+l.zeroOffset)*degToRad))
		pos = pos.Add(rot.apply(l.translation))
	}
	return pos
}

// Chain evaluates FK and records the intermediate frames.
func (m *KinematicModel) Chain(joints JointVector) Chain {
	var c Chain
	rot := identity()
	var pos r3.Vector
	for i := range m.links {
		l := &m.links[i]
		c.Pivots[i] = pos
		c.Axes[i] = rot.apply(l.axis)
		rot = rot.mul(axisAngle(l.axis, (joints[i]+l.zeroOffset)*degToRad))
		pos = pos.Add(rot.apply(l.translation))
	}
	c.EndEffector = pos
	c.ToolAxis = rot.apply(r3.Vector{Y: 1})
	return c
}

// ClampToLimits saturates every kinematic channel to [min+margin, max-margin]
// and the gripper to its hard limits. When the margin swallows the whole
// range the channel is pinned to the middle of its limits.
func (m *KinematicModel) ClampToLimits(joints JointVector, marginDegrees float64) JointVector {
	out := joints
	for i := range out {
		lo, hi := m.Limits[i].Min, m.Limits[i].Max
		if Joint(i) != Gripper {
			lo += marginDegrees
			hi -= marginDegrees
		}
		if lo > hi {
			out[i] = (m.Limits[i].Min + m.Limits[i].Max) / 2
			continue
		}
		out[i] = math.Min(math.Max(out[i], lo), hi)
	}
	return out
}

// WithinLimits reports whether every channel lies inside [min+margin, max-margin].
func (m *KinematicModel) WithinLimits(joints JointVector, marginDegrees float64) bool {
	const eps = 1e-9
	for i, v := range joints {
		margin := marginDegrees
		if Joint(i) == Gripper {
			margin = 0
		}
		if v < m.Limits[i].Min+margin-eps || v > m.Limits[i].Max-margin+eps {
			return false
		}
	}
	return true
}

// Equal compares limits and link lengths.
func (m *KinematicModel) Equal(other *KinematicModel) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Limits == other.Limits && m.Lengths == other.Lengths
}

// rotation is a row-major 3x3 rotation matrix.
type rotation [3]r3.Vector

func identity() rotation {
	return rotation{{X: 1}, {Y: 1}, {Z: 1}}
}

// axisAngle builds a rotation about a unit axis (Rodrigues).
func axisAngle(k r3.Vector, theta float64) rotation {
	s, c := math.Sincos(theta)
	t := 1 - c
	return rotation{
		{X: c + k.X*k.X*t, Y: k.X*k.Y*t - k.Z*s, Z: k.X*k.Z*t + k.Y*s},
		{X: k.Y*k.X*t + k.Z*s, Y: c + k.Y*k.Y*t, Z: k.Y*k.Z*t - k.X*s},
		{X: k.Z*k.X*t - k.Y*s, Y: k.Z*k.Y*t + k.X*s, Z: c + k.Z*k.Z*t},
	}
}

func (r rotation) apply(v r3.Vector) r3.Vector {
	return r3.Vector{X: r[0].Dot(v), Y: r[1].Dot(v), Z: r[2].Dot(v)}
}

func (r rotation) mul(o rotation) rotation {
	cols := [3]r3.Vector{
		{X: o[0].X, Y: o[1].X, Z: o[2].X},
		{X: o[0].Y, Y: o[1].Y, Z: o[2].Y},
		{X: o[0].Z, Y: o[1].Z, Z: o[2].Z},
	}
	var out rotation
	for i := 0; i < 3; i++ {
		out[i] = r3.Vector{X: r[i].Dot(cols[0]), Y: r[i].Dot(cols[1]), Z: r[i].Dot(cols[2])}
	}
	return out
}
