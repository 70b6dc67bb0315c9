package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/storage"
)

func frames() []storage.Frame {
	var fs []storage.Frame
	for step := 0; step < 5; step++ {
		y := 1 - 0.1*float64(step)
		fs = append(fs, storage.Frame{
			Step: step,
			Time: 0.001 * float64(step+1),
			Particles: []storage.State{
				{ID: 0, Center: r3.Vec{X: 0.4, Y: y, Z: 0.5}},
				{ID: 1, Center: r3.Vec{X: 0.6, Y: y, Z: 0.5}},
			},
		})
	}
	return fs
}

func TestPath(t *testing.T) {
	p := Path{Points: []r3.Vec{{X: 1, Y: 2, Z: 3}}, H: 2, V: 0}
	x, y := p.XY(0)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 1.0, y)
	assert.Equal(t, 1, p.Len())
}

func TestTrajectories_SVG(t *testing.T) {
	p, err := Trajectories(frames(), 0, 1, 10)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(p, &buf, "svg"))
	assert.True(t, strings.Contains(buf.String(), "<svg"))
}

func TestHeights_PNG(t *testing.T) {
	p, err := Heights(frames(), 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "heights.png")
	require.NoError(t, Save(p, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Equal(t, "png", FormatOf(path))
}

func TestInvalidInput(t *testing.T) {
	_, err := Trajectories(frames(), 0, 3, 10)
	assert.Error(t, err)
	_, err = Heights(nil, 1)
	assert.Error(t, err)
}
