package armkin

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
)

// ScoreWeights are calibration constants for ranking candidate solutions.
// Their magnitudes are tuned for the SO-101 geometry; every weight is applied
// in a fixed direction (error, travel and risk penalize; manipulability and
// approach reward), so they must be non-negative.
type ScoreWeights struct {
	ErrorPerCm     float64 `json:"error_per_cm"     mapstructure:"error_per_cm"`
	Travel         float64 `json:"travel"           mapstructure:"travel"` // per 180 degrees
	Manipulability float64 `json:"manipulability"   mapstructure:"manipulability"`
	Approach       float64 `json:"approach"         mapstructure:"approach"`
	CollisionRisk  float64 `json:"collision_risk"   mapstructure:"collision_risk"`
}

// DefaultScoreWeights returns the tuned ranking weights.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		ErrorPerCm:     5,
		Travel:         0.3,
		Manipulability: 0.5,
		Approach:       0.2,
		CollisionRisk:  0.5,
	}
}

// MultiSolutionConfig controls the seeded global search.
type MultiSolutionConfig struct {
	NumSolutions int `json:"num_solutions" mapstructure:"num_solutions"`
	// BaseOffsets are added to the base angle that faces the target (degrees).
	BaseOffsets []float64 `json:"base_offsets" mapstructure:"base_offsets"`
	// ShoulderOffsets are added to the current shoulder angle (degrees).
	ShoulderOffsets   []float64 `json:"shoulder_offsets"   mapstructure:"shoulder_offsets"`
	IterationsPerSeed int       `json:"iterations_per_seed" mapstructure:"iterations_per_seed"`
	// SignatureResolution is the rounding step (degrees) used to drop duplicate solutions.
	SignatureResolution float64 `json:"signature_resolution" mapstructure:"signature_resolution"`
	// MaxCandidateError rejects candidates further than this from the target (meters).
	MaxCandidateError float64      `json:"max_candidate_error" mapstructure:"max_candidate_error"`
	Weights           ScoreWeights `json:"weights"             mapstructure:"weights"`
}

// DefaultMultiSolutionConfig returns the documented search defaults.
func DefaultMultiSolutionConfig() MultiSolutionConfig {
	return MultiSolutionConfig{
		NumSolutions:        5,
		BaseOffsets:         []float64{0, -15, 15, -30, 30},
		ShoulderOffsets:     []float64{0, -30, 30, -60},
		IterationsPerSeed:   50,
		SignatureResolution: 5,
		MaxCandidateError:   0.04,
		Weights:             DefaultScoreWeights(),
	}
}

// Validate reports every invalid field.
func (cfg MultiSolutionConfig) Validate() error {
	var err error
	if cfg.NumSolutions < 1 {
		err = multierr.Append(err, invalidf("num_solutions must be >= 1, got %d", cfg.NumSolutions))
	}
	if len(cfg.BaseOffsets) == 0 || len(cfg.ShoulderOffsets) == 0 {
		err = multierr.Append(err, invalidf("base_offsets and shoulder_offsets must not be empty"))
	}
	if cfg.IterationsPerSeed < 1 {
		err = multierr.Append(err, invalidf("iterations_per_seed must be >= 1, got %d", cfg.IterationsPerSeed))
	}
	if cfg.SignatureResolution <= 0 {
		err = multierr.Append(err, invalidf("signature_resolution must be > 0, got %g", cfg.SignatureResolution))
	}
	if cfg.MaxCandidateError <= 0 {
		err = multierr.Append(err, invalidf("max_candidate_error must be > 0, got %g", cfg.MaxCandidateError))
	}
	w := cfg.Weights
	if w.ErrorPerCm < 0 || w.Travel < 0 || w.Manipulability < 0 || w.Approach < 0 || w.CollisionRisk < 0 {
		err = multierr.Append(err, invalidf("score weights must be >= 0, got %+v", w))
	}
	return err
}

func (cfg MultiSolutionConfig) withDefaults() MultiSolutionConfig {
	def := DefaultMultiSolutionConfig()
	if cfg.NumSolutions == 0 {
		cfg.NumSolutions = def.NumSolutions
	}
	if len(cfg.BaseOffsets) == 0 {
		cfg.BaseOffsets = def.BaseOffsets
	}
	if len(cfg.ShoulderOffsets) == 0 {
		cfg.ShoulderOffsets = def.ShoulderOffsets
	}
	if cfg.IterationsPerSeed == 0 {
		cfg.IterationsPerSeed = def.IterationsPerSeed
	}
	if cfg.SignatureResolution == 0 {
		cfg.SignatureResolution = def.SignatureResolution
	}
	if cfg.MaxCandidateError == 0 {
		cfg.MaxCandidateError = def.MaxCandidateError
	}
	if cfg.Weights == (ScoreWeights{}) {
		cfg.Weights = def.Weights
	}
	return cfg
}

// RankedSolution is an IK result annotated with ranking metrics.
type RankedSolution struct {
	IKResult
	TravelDistance float64 `json:"travel_distance"` // degrees
	Manipulability float64 `json:"manipulability"`
	ApproachScore  float64 `json:"approach_score"` // 0..1
	CollisionRisk  float64 `json:"collision_risk"` // 0..1
	OverallScore   float64 `json:"overall_score"`
}

// SolveMultipleSolutions seeds the solver from a grid of base and shoulder
// offsets, drops duplicate and far-off candidates, and returns the best
// NumSolutions sorted by descending OverallScore. If no candidate is within
// MaxCandidateError the single closest one is returned so callers still get a
// best effort answer.
func (s *Solver) SolveMultipleSolutions(
	ctx context.Context,
	target TargetPose,
	current JointVector,
	multi MultiSolutionConfig,
	cfg IKConfig,
) ([]RankedSolution, error) {
	if err := multierr.Combine(multi.Validate(), cfg.Validate()); err != nil {
		return nil, err
	}

	seedCfg := cfg
	if multi.IterationsPerSeed < seedCfg.MaxIterations {
		seedCfg.MaxIterations = multi.IterationsPerSeed
	}

	facing := math.Atan2(target.Position.X, target.Position.Z) * radToDeg
	seen := make(map[string]struct{})
	var accepted []RankedSolution
	var closest *RankedSolution

	for _, baseOff := range multi.BaseOffsets {
		for _, shoulderOff := range multi.ShoulderOffsets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			seed := current.
				With(Base, facing+baseOff).
				With(Shoulder, current[Shoulder]+shoulderOff)
			res := s.solve(target, seed, seedCfg)

			sig := res.Joints.Signature(multi.SignatureResolution)
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}

			ranked := s.rank(res, target, current, multi.Weights)
			if res.FinalError > multi.MaxCandidateError {
				if closest == nil || ranked.FinalError < closest.FinalError {
					c := ranked
					closest = &c
				}
				continue
			}
			accepted = append(accepted, ranked)
		}
	}

	if len(accepted) == 0 {
		// the first seed is never a duplicate, so closest is set here
		s.logger.Debugf("multi-solution: no candidate within %.3f m, returning closest (%.4f m)",
			multi.MaxCandidateError, closest.FinalError)
		return []RankedSolution{*closest}, nil
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].OverallScore > accepted[j].OverallScore
	})
	if len(accepted) > multi.NumSolutions {
		accepted = accepted[:multi.NumSolutions]
	}
	s.logger.Debugf("multi-solution: %d distinct candidates, best score %.3f", len(accepted), accepted[0].OverallScore)
	return accepted, nil
}

// SolveBest returns the top-ranked solution as a plain IKResult. Success means
// within 4 cm of the target and Converged within 1 cm.
func (s *Solver) SolveBest(
	ctx context.Context,
	target TargetPose,
	current JointVector,
	multi MultiSolutionConfig,
	cfg IKConfig,
) (IKResult, error) {
	solutions, err := s.SolveMultipleSolutions(ctx, target, current, multi, cfg)
	if err != nil {
		return IKResult{}, err
	}
	best := solutions[0]
	res := best.IKResult
	res.Success = res.FinalError < bestSuccessError
	res.Converged = res.FinalError < bestConvergedError
	res.Message = fmt.Sprintf("best of %d ranked solutions: error %.4f m, score %.3f",
		len(solutions), res.FinalError, best.OverallScore)
	return res, nil
}

const (
	bestSuccessError   = 0.04
	bestConvergedError = 0.01
)

func (s *Solver) rank(res IKResult, target TargetPose, current JointVector, w ScoreWeights) RankedSolution {
	r := RankedSolution{
		IKResult:       res,
		TravelDistance: current.TravelDistance(res.Joints),
		Manipulability: s.jacobian.Manipulability(res.Joints),
		ApproachScore:  s.approachScore(res.Joints, target),
		CollisionRisk:  collisionRisk(res.Joints, target.Position),
	}
	r.OverallScore = 1 -
		w.ErrorPerCm*(res.FinalError*100) -
		w.Travel*(r.TravelDistance/180) +
		w.Manipulability*r.Manipulability +
		w.Approach*r.ApproachScore -
		w.CollisionRisk*r.CollisionRisk
	return r
}

// Preferred grasp posture: shoulder leaning back, elbow bent down, gripper
// pitched toward the table.
const (
	idealShoulder  = -45.0
	idealWrist     = 55.0
	minElbowBend   = 20.0
	postureSpread  = 90.0
	elbowBendRange = 40.0
)

// approachScore rewards poses close to the preferred grasp posture. With an
// orientation hint, half of the score comes from tool-axis alignment.
func (s *Solver) approachScore(q JointVector, target TargetPose) float64 {
	shoulder := 1 - math.Min(math.Abs(q[Shoulder]-idealShoulder)/postureSpread, 1)
	wrist := 1 - math.Min(math.Abs(q[Wrist]-idealWrist)/postureSpread, 1)
	elbow := 1.0
	if q[Elbow] < minElbowBend {
		elbow = math.Max(0, 1-(minElbowBend-q[Elbow])/elbowBendRange)
	}
	score := (shoulder + wrist + elbow) / 3

	if target.Orientation == nil {
		return score
	}
	ov := target.Orientation.OrientationVectorDegrees()
	hint := r3.Vector{X: ov.OX, Y: ov.OY, Z: ov.OZ}
	if hint.Norm() == 0 {
		return score
	}
	tool := s.model.Chain(q).ToolAxis
	alignment := (1 + tool.Dot(hint.Normalize())) / 2
	return 0.5*score + 0.5*alignment
}

// Collision risk thresholds: a sharply back-bent wrist, a shoulder leaning far
// forward, or a target close to the table all raise the risk.
const (
	riskyWrist       = -60.0
	riskyShoulder    = 60.0
	riskyTargetLevel = 0.03 // meters
)

func collisionRisk(q JointVector, target r3.Vector) float64 {
	risk := 0.0
	if q[Wrist] < riskyWrist {
		risk += 0.4
	}
	if q[Shoulder] > riskyShoulder {
		risk += 0.3
	}
	if target.Y < riskyTargetLevel {
		risk += 0.3
	}
	return math.Min(risk, 1)
}
