package armkin

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Joint identifies one channel of a JointVector.
type Joint int

// Joint channels in chain order. Gripper is carried along but never used for kinematics.
const (
	Base Joint = iota
	Shoulder
	Elbow
	Wrist
	WristRoll
	Gripper
)

const (
	// NumJoints is the number of channels in a JointVector, gripper included.
	NumJoints = 6
	// NumKinematicJoints is the number of channels that move the end effector.
	NumKinematicJoints = 5
)

var jointNames = [NumJoints]string{"base", "shoulder", "elbow", "wrist", "wrist_roll", "gripper"}

// KinematicJoints lists the joints that take part in FK, in chain order.
var KinematicJoints = [NumKinematicJoints]Joint{Base, Shoulder, Elbow, Wrist, WristRoll}

func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// MarshalText lets joints be used as JSON object keys.
func (j Joint) MarshalText() ([]byte, error) {
	if j < 0 || int(j) >= NumJoints {
		return nil, errors.Wrapf(ErrUnknownJoint, "%d", int(j))
	}
	return []byte(jointNames[j]), nil
}

// UnmarshalText parses a joint name.
func (j *Joint) UnmarshalText(text []byte) error {
	parsed, err := ParseJoint(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// ParseJoint accepts snake_case or camelCase joint names, case-insensitively.
func ParseJoint(name string) (Joint, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	for i, n := range jointNames {
		if strings.ReplaceAll(n, "_", "") == key {
			return Joint(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownJoint, "%q", name)
}

// JointVector holds one angle per channel in degrees (gripper in percent open).
// It is a value type; every transform returns a new vector.
type JointVector [NumJoints]float64

// With returns a copy of v with joint j set to value.
func (v JointVector) With(j Joint, value float64) JointVector {
	v[j] = value
	return v
}

// Lerp linearly interpolates every channel between v and to.
func (v JointVector) Lerp(to JointVector, t float64) JointVector {
	var out JointVector
	for i := range v {
		out[i] = v[i] + (to[i]-v[i])*t
	}
	return out
}

// TravelDistance is the sum of absolute angle changes over the kinematic joints.
func (v JointVector) TravelDistance(to JointVector) float64 {
	total := 0.0
	for _, j := range KinematicJoints {
		total += math.Abs(to[j] - v[j])
	}
	return total
}

// MaxDelta is the largest single-joint angle change over the kinematic joints.
func (v JointVector) MaxDelta(to JointVector) float64 {
	maxDelta := 0.0
	for _, j := range KinematicJoints {
		maxDelta = math.Max(maxDelta, math.Abs(to[j]-v[j]))
	}
	return maxDelta
}

// Signature rounds the kinematic joints to the given resolution (degrees) and
// returns a key suitable for de-duplicating near-identical solutions.
func (v JointVector) Signature(resolution float64) string {
	if resolution <= 0 {
		resolution = 1
	}
	var sb strings.Builder
	for i, j := range KinematicJoints {
		if i > 0 {
			sb.WriteByte('|')
		}
		bucket := math.Round(v[j] / resolution)
		if bucket == 0 {
			// avoid "-0" and "0" producing different keys
			bucket = 0
		}
		fmt.Fprintf(&sb, "%.0f", bucket)
	}
	return sb.String()
}

func (v JointVector) String() string {
	parts := make([]string, NumJoints)
	for i := range v {
		parts[i] = fmt.Sprintf("%s=%.2f", jointNames[i], v[i])
	}
	return strings.Join(parts, " ")
}

// MarshalJSON encodes the vector as a name -> degrees object.
func (v JointVector) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, NumJoints)
	for i, n := range jointNames {
		m[n] = v[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes a name -> degrees object. Missing joints stay zero.
func (v *JointVector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "failed to decode joint vector")
	}
	var out JointVector
	for name, value := range m {
		j, err := ParseJoint(name)
		if err != nil {
			return err
		}
		out[j] = value
	}
	*v = out
	return nil
}

// ParseJointVector parses "base=10,shoulder=-20" style input. Unlisted joints are zero.
func ParseJointVector(s string) (JointVector, error) {
	var out JointVector
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	for _, field := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			return out, errors.Errorf("invalid joint assignment %q, expected name=degrees", field)
		}
		j, err := ParseJoint(name)
		if err != nil {
			return out, err
		}
		var deg float64
		if _, err := fmt.Sscanf(strings.TrimSpace(value), "%g", &deg); err != nil {
			return out, errors.Wrapf(err, "invalid angle for %s", j)
		}
		out[j] = deg
	}
	return out, nil
}
