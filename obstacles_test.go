package armkin

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObstacleDistance(t *testing.T) {
	box := Obstacle{ID: "box", Shape: ShapeBox, Size: r3.Vector{X: 0.2, Y: 0.2, Z: 0.2}}
	sphere := Obstacle{ID: "ball", Shape: ShapeSphere, Position: r3.Vector{Y: 1}, Size: r3.Vector{X: 0.1}}
	cyl := Obstacle{ID: "can", Shape: ShapeCylinder, Size: r3.Vector{X: 0.1, Y: 0.2}}

	cases := []struct {
		name string
		o    Obstacle
		p    r3.Vector
		want float64
	}{
		{"box face", box, r3.Vector{X: 0.2}, 0.1},
		{"box edge", box, r3.Vector{X: 0.2, Y: 0.2}, 0.1414213562373095},
		{"box center", box, r3.Vector{}, -0.1},
		{"box inside near face", box, r3.Vector{Z: 0.08}, -0.02},
		{"sphere outside", sphere, r3.Vector{X: 0.1, Y: 1}, 0.05},
		{"sphere center", sphere, r3.Vector{Y: 1}, -0.05},
		{"cylinder side", cyl, r3.Vector{X: 0.1}, 0.05},
		{"cylinder above", cyl, r3.Vector{Y: 0.2}, 0.1},
		{"cylinder axis", cyl, r3.Vector{}, -0.05},
		{"offset box inside", Obstacle{Shape: ShapeBox, Position: r3.Vector{X: 0.1, Y: 0.05, Z: 0.2}, Size: r3.Vector{X: 0.04, Y: 0.04, Z: 0.04}},
			r3.Vector{X: 0.1, Y: 0.05, Z: 0.21}, -0.01},
		{"offset sphere surface", sphere, r3.Vector{Y: 1.05}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.o.Distance(tc.p), 1e-9)
		})
	}
}

func TestObstacleGeometry(t *testing.T) {
	box := Obstacle{ID: "block", Shape: ShapeBox, Position: r3.Vector{X: 0.1}, Size: r3.Vector{X: 0.02, Y: 0.04, Z: 0.06}}
	geom, ok, err := box.Geometry()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "block", geom.Label())
	assertVecNear(t, r3.Vector{X: 100}, geom.Pose().Point(), 1e-9)

	ball := Obstacle{ID: "ball", Shape: ShapeSphere, Position: r3.Vector{X: 0.1}, Size: r3.Vector{X: 0.02}}
	ballGeom, ok, err := ball.Geometry()
	require.NoError(t, err)
	require.True(t, ok)
	// the ball sits inside the block, so rdk reports them in collision
	collides, err := geom.CollidesWith(ballGeom, 0)
	require.NoError(t, err)
	assert.True(t, collides)

	_, ok, err = Obstacle{ID: "can", Shape: ShapeCylinder, Size: r3.Vector{X: 0.1, Y: 0.1}}.Geometry()
	require.NoError(t, err)
	assert.False(t, ok)

	bad := Obstacle{ID: "flat", Shape: ShapeBox, Size: r3.Vector{X: -1, Y: 1, Z: 1}}
	_, _, err = bad.Geometry()
	assert.Error(t, err)
	assert.True(t, math.IsInf(bad.Distance(r3.Vector{X: 5}), -1))
}

func TestObstacleValidate(t *testing.T) {
	assert.NoError(t, Obstacle{Shape: ShapeSphere, Size: r3.Vector{X: 0.05}}.Validate())
	assert.True(t, errors.Is(Obstacle{Shape: ShapeBox, Size: r3.Vector{X: 1, Y: 1}}.Validate(), ErrInvalidConfig))
	assert.True(t, errors.Is(Obstacle{Shape: ShapeCylinder, Size: r3.Vector{X: 1}}.Validate(), ErrInvalidConfig))
	assert.True(t, errors.Is(Obstacle{Shape: "cone", Size: r3.Vector{X: 1, Y: 1, Z: 1}}.Validate(), ErrUnknownShape))
}

func TestLoadObstaclesFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads every obstacle", func(t *testing.T) {
		path := filepath.Join(dir, "scene.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`obstacles:
  - id: cup
    shape: cylinder
    position: {x: 0, y: 0.04, z: 0.2}
    size: {x: 0.08, y: 0.08}
  - id: block
    shape: box
    position: {x: -0.1, y: 0.02, z: 0.15}
    size: {x: 0.04, y: 0.04, z: 0.04}
`), 0o644))

		got, err := LoadObstaclesFile(path)
		require.NoError(t, err)
		want := []Obstacle{
			{ID: "cup", Shape: ShapeCylinder, Position: r3.Vector{Y: 0.04, Z: 0.2}, Size: r3.Vector{X: 0.08, Y: 0.08}},
			{ID: "block", Shape: ShapeBox, Position: r3.Vector{X: -0.1, Y: 0.02, Z: 0.15}, Size: r3.Vector{X: 0.04, Y: 0.04, Z: 0.04}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("obstacles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects invalid shapes", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("obstacles:\n  - id: x\n    shape: cone\n    size: {x: 1, y: 1, z: 1}\n"), 0o644))
		_, err := LoadObstaclesFile(path)
		assert.True(t, errors.Is(err, ErrUnknownShape))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadObstaclesFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
