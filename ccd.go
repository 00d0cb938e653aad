package armkin

import (
	"math"

	"github.com/golang/geo/r3"
)

// intermediateJointGain attenuates shoulder and elbow corrections in CCD;
// those joints move the whole distal chain and overshoot at full gain.
const intermediateJointGain = 0.5

// minProjectedLength is the shortest pivot-relative vector CCD will take an angle from.
const minProjectedLength = 1e-9

func (s *Solver) solveCCD(target r3.Vector, seed JointVector, cfg IKConfig) IKResult {
	q := s.model.ClampToLimits(seed, cfg.JointLimitMargin)
	best := newBestIterate()

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		errNorm := target.Sub(s.model.ForwardKinematics(q)).Norm()
		if errNorm < cfg.PositionTolerance {
			return s.finish(MethodCCD, q, iter, errNorm, cfg)
		}
		best.observe(q, errNorm)

		// tip toward base
		for i := NumKinematicJoints - 1; i >= 0; i-- {
			j := KinematicJoints[i]
			chain := s.model.Chain(q)
			angle, ok := projectedAngle(chain.Axes[i], chain.EndEffector.Sub(chain.Pivots[i]), target.Sub(chain.Pivots[i]))
			if !ok {
				continue
			}
			gain := cfg.StepSize
			if j == Shoulder || j == Elbow {
				gain *= intermediateJointGain
			}
			q = s.model.ClampToLimits(q.With(j, q[j]+gain*angle*radToDeg), cfg.JointLimitMargin)
		}
	}

	best.observe(q, target.Sub(s.model.ForwardKinematics(q)).Norm())
	return s.finish(MethodCCD, best.joints, cfg.MaxIterations, best.err, cfg)
}

// projectedAngle returns the signed rotation about axis that carries the
// projection of from onto the projection of to, both projected onto the
// plane normal to axis.
func projectedAngle(axis, from, to r3.Vector) (float64, bool) {
	from = from.Sub(axis.Mul(from.Dot(axis)))
	to = to.Sub(axis.Mul(to.Dot(axis)))
	if from.Norm() < minProjectedLength || to.Norm() < minProjectedLength {
		return 0, false
	}
	return math.Atan2(axis.Dot(from.Cross(to)), from.Dot(to)), true
}
