package stage

import (
	"testing"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	all := All()
	require.Len(t, all, Count)

	seen := map[geometry.Camera]bool{}
	for i, s := range all {
		assert.Equal(t, i, s.Index)
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.Gimmick, s.Name)
		assert.False(t, seen[s.Camera], "camera targets are distinct")
		seen[s.Camera] = true
	}
}

func TestGet(t *testing.T) {
	s, err := Get(3)
	require.NoError(t, err)
	assert.Equal(t, "Idea Spread", s.Name)
	assert.Equal(t, geometry.Camera{X: -9000, Y: 0}, s.Camera)

	_, err = Get(-1)
	assert.Error(t, err)
	_, err = Get(Count)
	assert.Error(t, err)
}

func TestTemplate(t *testing.T) {
	s, err := Get(1)
	require.NoError(t, err)

	layers := s.Template()
	require.Len(t, layers, 1)
	g := layers[0].Geom()
	assert.Equal(t, 3080.0, g.X)
	assert.Equal(t, 80.0, g.Y)
	assert.Equal(t, board.LayerVision, layers[0].Type())

	// The table itself is untouched.
	assert.Equal(t, 80.0, s.Gimmick[0].Geom().X)

	// A gimmick lands inside the visible region when the camera is on the stage.
	screen := s.Camera.CanvasToScreen(geometry.Point{X: g.X, Y: g.Y})
	assert.Equal(t, geometry.Point{X: 80, Y: 80}, screen)
}

func TestTemplate_SolvingProblemLocks(t *testing.T) {
	s, err := Get(6)
	require.NoError(t, err)
	for _, l := range s.Template() {
		sp := l.(board.SolvingProblem)
		assert.Equal(t, sp.BoxType != board.BoxDefine, sp.IsLocked)
	}
}

func TestSeed(t *testing.T) {
	seed := Seed("host-1")
	assert.Equal(t, "host-1", seed.Host)
	assert.Equal(t, Names(), seed.Process)
	assert.Equal(t, "Ice Breaking", seed.Process[0])
}
