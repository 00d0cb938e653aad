package armkin

import (
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"
	"gopkg.in/yaml.v3"
)

// Shape is an obstacle primitive.
type Shape string

// Supported obstacle primitives.
const (
	ShapeBox      Shape = "box"
	ShapeSphere   Shape = "sphere"
	ShapeCylinder Shape = "cylinder"
)

// Obstacle is a static primitive in the model frame. Size is the full
// bounding extent in meters: a box uses all three axes, a sphere uses X as its
// diameter, and a cylinder stands upright (along Y) with diameter X and
// height Y. Position is the center.
type Obstacle struct {
	ID       string    `json:"id"       yaml:"id"`
	Shape    Shape     `json:"shape"    yaml:"shape"`
	Position r3.Vector `json:"position" yaml:"position"`
	Size     r3.Vector `json:"size"     yaml:"size"`
}

// Validate checks shape and dimensions.
func (o Obstacle) Validate() error {
	switch o.Shape {
	case ShapeBox:
		if o.Size.X <= 0 || o.Size.Y <= 0 || o.Size.Z <= 0 {
			return invalidf("obstacle %q: box size must be positive on every axis, got %v", o.ID, o.Size)
		}
	case ShapeSphere:
		if o.Size.X <= 0 {
			return invalidf("obstacle %q: sphere diameter must be positive, got %g", o.ID, o.Size.X)
		}
	case ShapeCylinder:
		if o.Size.X <= 0 || o.Size.Y <= 0 {
			return invalidf("obstacle %q: cylinder diameter and height must be positive, got %v", o.ID, o.Size)
		}
	default:
		return errors.Wrapf(ErrUnknownShape, "obstacle %q: %q", o.ID, o.Shape)
	}
	return nil
}

// mmPerMeter converts to the millimeters rdk geometries are measured in.
const mmPerMeter = 1000.0

// Geometry returns the rdk geometry for box and sphere obstacles, in
// millimeters. Cylinders have no rdk counterpart and report ok=false.
func (o Obstacle) Geometry() (geom spatialmath.Geometry, ok bool, err error) {
	pose := spatialmath.NewPoseFromPoint(o.Position.Mul(mmPerMeter))
	switch o.Shape {
	case ShapeBox:
		geom, err = spatialmath.NewBox(pose, o.Size.Mul(mmPerMeter), o.ID)
	case ShapeSphere:
		geom, err = spatialmath.NewSphere(pose, o.Size.X/2*mmPerMeter, o.ID)
	default:
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "obstacle %q", o.ID)
	}
	return geom, true, nil
}

// Distance returns the signed distance from p to the obstacle surface,
// negative inside. An obstacle whose geometry cannot be built is treated as
// containing every point.
func (o Obstacle) Distance(p r3.Vector) float64 {
	if o.Shape == ShapeCylinder {
		return o.cylinderDistance(p)
	}
	geom, ok, err := o.Geometry()
	if err != nil || !ok {
		return math.Inf(-1)
	}
	d, err := geom.DistanceFrom(spatialmath.NewPoint(p.Mul(mmPerMeter), ""))
	if err != nil {
		return math.Inf(-1)
	}
	return d / mmPerMeter
}

// cylinderDistance is the signed distance to an upright flat-ended cylinder.
func (o Obstacle) cylinderDistance(p r3.Vector) float64 {
	rel := p.Sub(o.Position)
	radial := math.Hypot(rel.X, rel.Z) - o.Size.X/2
	vertical := math.Abs(rel.Y) - o.Size.Y/2
	outside := math.Hypot(math.Max(radial, 0), math.Max(vertical, 0))
	inside := math.Min(math.Max(radial, vertical), 0)
	return outside + inside
}

// obstacleFile is the on-disk layout read by LoadObstaclesFile.
type obstacleFile struct {
	Obstacles []Obstacle `yaml:"obstacles"`
}

// LoadObstaclesFile reads a YAML file of the form
//
//	obstacles:
//	  - id: cup
//	    shape: cylinder
//	    position: {x: 0, y: 0.04, z: 0.2}
//	    size: {x: 0.08, y: 0.08, z: 0.08}
func LoadObstaclesFile(path string) ([]Obstacle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read obstacles file")
	}
	var f obstacleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse obstacles YAML")
	}
	for _, o := range f.Obstacles {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Obstacles, nil
}
