package armkin

import (
	"math"

	"github.com/golang/geo/r3"
)

// CollisionType names the check that produced a CollisionPoint.
type CollisionType string

// Collision checks run at every waypoint.
const (
	CollisionTable     CollisionType = "table"
	CollisionWorkspace CollisionType = "workspace"
	CollisionSelf      CollisionType = "self"
	CollisionObstacle  CollisionType = "obstacle"
)

// Severity grades a CollisionPoint. Only SeverityCollision makes a trajectory unsafe.
type Severity string

// Severities, mildest first.
const (
	SeverityWarning   Severity = "warning"
	SeverityCollision Severity = "collision"
)

// CollisionPoint records one problem found at a waypoint.
type CollisionPoint struct {
	WaypointIndex int           `json:"waypoint_index"`
	Position      r3.Vector     `json:"position"`
	Type          CollisionType `json:"type"`
	Severity      Severity      `json:"severity"`
	ObstacleID    string        `json:"obstacle_id,omitempty"`
}

// Folded-arm heuristic: elbow and wrist both bent hard toward the upper arm.
const (
	foldedElbowCollision = 75.0
	foldedWristCollision = 75.0
	foldedElbowWarning   = 60.0
	foldedWristWarning   = 60.0
	// baseColumnRadius is the keep-out radius (meters) around the base below shoulder height.
	baseColumnRadius = 0.04
)

// checkPose runs every collision check for one configuration and appends
// findings to points.
func (p *MotionPlanner) checkPose(index int, q JointVector, obstacles []Obstacle, cfg PlanningConfig, points []CollisionPoint) []CollisionPoint {
	chain := p.model.Chain(q)
	tip := chain.EndEffector
	add := func(pos r3.Vector, typ CollisionType, sev Severity, id string) {
		points = append(points, CollisionPoint{WaypointIndex: index, Position: pos, Type: typ, Severity: sev, ObstacleID: id})
	}

	// table plane: no part of the arm below it, tip warned inside the margin
	lowest := tip
	for _, pivot := range chain.Pivots[Elbow:] {
		if pivot.Y < lowest.Y {
			lowest = pivot
		}
	}
	switch {
	case lowest.Y < cfg.TableHeight:
		add(lowest, CollisionTable, SeverityCollision, "")
	case tip.Y < cfg.TableHeight+cfg.SafetyMargin:
		add(tip, CollisionTable, SeverityWarning, "")
	}

	// workspace boundary
	radial := math.Hypot(tip.X, tip.Z)
	switch {
	case radial > cfg.WorkspaceRadius || tip.Y > cfg.WorkspaceMaxHeight:
		add(tip, CollisionWorkspace, SeverityCollision, "")
	case radial > cfg.WorkspaceRadius-cfg.SafetyMargin:
		add(tip, CollisionWorkspace, SeverityWarning, "")
	}

	// self collision
	switch {
	case q[Elbow] > foldedElbowCollision && q[Wrist] > foldedWristCollision:
		add(tip, CollisionSelf, SeverityCollision, "")
	case radial < baseColumnRadius && tip.Y < p.model.Lengths.BaseHeight:
		add(tip, CollisionSelf, SeverityCollision, "")
	case q[Elbow] > foldedElbowWarning && q[Wrist] > foldedWristWarning:
		add(tip, CollisionSelf, SeverityWarning, "")
	}

	// obstacles, inflated by the safety margin; the gripper body spans wrist to tip
	wrist := chain.Pivots[Wrist]
	for _, o := range obstacles {
		for _, pt := range [...]r3.Vector{tip, wrist.Add(tip).Mul(0.5), wrist} {
			if o.Distance(pt) < cfg.SafetyMargin {
				add(pt, CollisionObstacle, SeverityCollision, o.ID)
				break
			}
		}
	}
	return points
}

// hasCollision reports whether any point is collision severity.
func hasCollision(points []CollisionPoint) bool {
	for _, pt := range points {
		if pt.Severity == SeverityCollision {
			return true
		}
	}
	return false
}

// minObstacleDistance is the smallest surface distance from pos to any obstacle,
// +Inf when there are none.
func minObstacleDistance(pos r3.Vector, obstacles []Obstacle) float64 {
	d := math.Inf(1)
	for _, o := range obstacles {
		d = math.Min(d, o.Distance(pos))
	}
	return d
}
