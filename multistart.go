package armkin

import (
	"math/rand/v2"
)

// RandSource supplies uniform samples in [0,1). *rand.Rand satisfies it.
// Pass a seeded source for reproducible multi-start and randomized planning.
type RandSource interface {
	Float64() float64
}

// globalRand draws from math/rand/v2's concurrency-safe top-level source.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

func orGlobal(rng RandSource) RandSource {
	if rng == nil {
		return globalRand{}
	}
	return rng
}

// SolveMultiStart solves from the current pose first and returns immediately
// if that converges. Otherwise it retries from numStarts-1 random seeds and
// returns the first converged attempt, or the lowest-error one.
func (s *Solver) SolveMultiStart(target TargetPose, current JointVector, numStarts int, cfg IKConfig, rng RandSource) (IKResult, error) {
	if err := cfg.Validate(); err != nil {
		return IKResult{}, err
	}
	if numStarts < 1 {
		return IKResult{}, invalidf("num_starts must be >= 1, got %d", numStarts)
	}
	rng = orGlobal(rng)

	best := s.solve(target, current, cfg)
	if best.Converged {
		return best, nil
	}

	for attempt := 1; attempt < numStarts; attempt++ {
		seed := s.randomSeed(current, cfg.JointLimitMargin, rng)
		res := s.solve(target, seed, cfg)
		if res.Converged {
			s.logger.Debugf("multi-start: converged on attempt %d of %d", attempt+1, numStarts)
			return res, nil
		}
		if res.FinalError < best.FinalError {
			best = res
		}
	}
	s.logger.Debugf("multi-start: no attempt converged, best error %.4f m", best.FinalError)
	return best, nil
}

// randomSeed samples the arm joints uniformly within their limits and keeps
// wrist roll and gripper from current.
func (s *Solver) randomSeed(current JointVector, margin float64, rng RandSource) JointVector {
	seed := current
	for _, j := range []Joint{Base, Shoulder, Elbow, Wrist} {
		lo, hi := s.model.Limits[j].Min+margin, s.model.Limits[j].Max-margin
		if lo > hi {
			continue
		}
		seed[j] = lo + rng.Float64()*(hi-lo)
	}
	return seed
}
