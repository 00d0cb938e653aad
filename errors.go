package armkin

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig is wrapped by every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoPathFound is returned when no collision-free trajectory exists within the attempt budget.
	ErrNoPathFound = errors.New("motion planner failed to find collision-free path")
	// ErrUnknownJoint is returned for joint names or indices outside the chain.
	ErrUnknownJoint = errors.New("unknown joint")
	// ErrUnknownShape is returned for obstacle shapes other than box, sphere and cylinder.
	ErrUnknownShape = errors.New("unknown obstacle shape")
)

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
