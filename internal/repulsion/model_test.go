package repulsion

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/particle"
)

var params = Params{ForceRange: 0.01, ParticleStiffness: 1e-5, WallStiffness: 0.5e-5}

func ball(id int, c r3.Vec, r float64) particle.Particle {
	return particle.Particle{ID: id, Center: c, Radius: r}
}

func laws() []*Law { return []*Law{Glowinski(), Linear()} }

func TestPair_ZeroBeyondRange(t *testing.T) {
	for _, l := range laws() {
		t.Run(l.Name(), func(t *testing.T) {
			a := ball(0, r3.Vec{}, 0.05)
			for _, gap := range []float64{params.ForceRange + 1e-9, 0.05, 1.0} {
				b := ball(1, r3.Vec{X: 0.1 + gap}, 0.05)
				f, err := l.Pair(a, b, params)
				require.NoError(t, err)
				assert.Equal(t, r3.Vec{}, f, "gap %g", gap)
			}
		})
	}
}

func TestCompute_AllZeroWhenSeparated(t *testing.T) {
	box := geom.NewBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	walls, err := box.Walls()
	require.NoError(t, err)

	ps := []particle.Particle{
		ball(0, r3.Vec{X: 0.25, Y: 0.25, Z: 0.5}, 0.05),
		ball(1, r3.Vec{X: 0.75, Y: 0.25, Z: 0.5}, 0.05),
		ball(2, r3.Vec{X: 0.5, Y: 0.75, Z: 0.5}, 0.05),
	}

	for _, l := range laws() {
		forces, err := l.Compute(ps, walls, params)
		require.NoError(t, err)
		for i, f := range forces {
			assert.Equal(t, r3.Vec{}, f, "%s: particle %d", l.Name(), i)
		}
	}
}

func TestPair_NewtonThirdLaw(t *testing.T) {
	a := ball(0, r3.Vec{X: 0.013, Y: -0.2, Z: 0.7}, 0.05)
	b := ball(1, r3.Vec{X: 0.071, Y: -0.17, Z: 0.69}, 0.04)

	for _, l := range laws() {
		fab, err := l.Pair(a, b, params)
		require.NoError(t, err)
		fba, err := l.Pair(b, a, params)
		require.NoError(t, err)

		assert.NotEqual(t, r3.Vec{}, fab)
		assert.Equal(t, r3.Scale(-1, fab), fba, l.Name())

		forces, err := l.Compute([]particle.Particle{a, b}, nil, params)
		require.NoError(t, err)
		assert.Equal(t, r3.Scale(-1, forces[0]), forces[1], l.Name())
	}
}

func TestPair_MonotonicInGap(t *testing.T) {
	for _, l := range laws() {
		t.Run(l.Name(), func(t *testing.T) {
			a := ball(0, r3.Vec{}, 0.05)
			prev := math.Inf(1)
			for gap := -0.05; gap < 2*params.ForceRange; gap += 0.0005 {
				b := ball(1, r3.Vec{Y: 0.1 + gap}, 0.05)
				f, err := l.Pair(a, b, params)
				require.NoError(t, err)
				mag := r3.Norm(f)
				assert.LessOrEqual(t, mag, prev, "gap %g", gap)
				prev = mag
			}
		})
	}
}

func TestPair_ContinuousAtRange(t *testing.T) {
	for _, l := range laws() {
		a := ball(0, r3.Vec{}, 0.05)
		b := ball(1, r3.Vec{Z: 0.1 + params.ForceRange - 1e-12}, 0.05)
		f, err := l.Pair(a, b, params)
		require.NoError(t, err)
		assert.Less(t, r3.Norm(f), 1e-6, l.Name())
	}
}

func TestPair_OverlappingBallsPushApart(t *testing.T) {
	a := ball(0, r3.Vec{X: 0.5, Y: 0.5}, 0.05)
	b := ball(1, r3.Vec{X: 0.58, Y: 0.5}, 0.05)

	for _, l := range laws() {
		forces, err := l.Compute([]particle.Particle{a, b}, nil, params)
		require.NoError(t, err)

		assert.Less(t, forces[0].X, 0.0, "%s: particle 0 must be pushed toward -x", l.Name())
		assert.Greater(t, forces[1].X, 0.0, "%s: particle 1 must be pushed toward +x", l.Name())
		assert.Zero(t, forces[0].Y)
		assert.Zero(t, forces[0].Z)
	}

	// (range - gap)^2 / eps with gap = -0.02
	f, err := Glowinski().Pair(a, b, params)
	require.NoError(t, err)
	assert.InDelta(t, 0.03*0.03/1e-5, r3.Norm(f), 1e-9)
}

func TestWall_PushesAway(t *testing.T) {
	box := geom.NewBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	walls, err := box.Walls()
	require.NoError(t, err)

	p := ball(0, r3.Vec{X: 0.5, Y: 0.04, Z: 0.5}, 0.05)

	for _, l := range laws() {
		forces, err := l.Compute([]particle.Particle{p}, walls, params)
		require.NoError(t, err)

		f := forces[0]
		assert.Greater(t, f.Y, 0.0, "%s: force must point away from y-", l.Name())
		assert.Zero(t, f.X, l.Name())
		assert.Zero(t, f.Z, l.Name())
	}

	// mirror gap = 2*(0.04 - 0.05) = -0.02
	wall, err := box.Wall("y-")
	require.NoError(t, err)
	f := Glowinski().Wall(p, wall, params)
	assert.InDelta(t, 0.03*0.03/0.5e-5, f.Y, 1e-9)
}

func TestWall_UpperWall(t *testing.T) {
	box := geom.NewBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	w, err := box.Wall("x+")
	require.NoError(t, err)

	f := Linear().Wall(ball(0, r3.Vec{X: 0.96, Y: 0.5, Z: 0.5}, 0.05), w, params)
	assert.Less(t, f.X, 0.0)
	assert.InDelta(t, params.WallStiffness*(params.ForceRange+0.01), -f.X, 1e-15)
}

func TestWall_CornerFeelsBothWalls(t *testing.T) {
	box := geom.NewBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	walls, err := box.Walls("x-", "x+", "y-")
	require.NoError(t, err)

	p := ball(0, r3.Vec{X: 0.05, Y: 0.05, Z: 0.5}, 0.05)
	forces, err := Glowinski().Compute([]particle.Particle{p}, walls, params)
	require.NoError(t, err)

	want := params.ForceRange * params.ForceRange / params.WallStiffness
	assert.InDelta(t, want, forces[0].X, 1e-9)
	assert.InDelta(t, want, forces[0].Y, 1e-9)
	assert.Zero(t, forces[0].Z)
}

func TestWall_ZeroBeyondRange(t *testing.T) {
	box := geom.NewBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	w, err := box.Wall("z-")
	require.NoError(t, err)

	for _, l := range laws() {
		p := ball(0, r3.Vec{X: 0.5, Y: 0.5, Z: 0.05 + 2*params.ForceRange}, 0.05)
		assert.Equal(t, r3.Vec{}, l.Wall(p, w, params), l.Name())
	}
}

func TestPair_Degenerate(t *testing.T) {
	a := ball(0, r3.Vec{X: 0.3}, 0.05)
	b := ball(1, r3.Vec{X: 0.3}, 0.05)

	_, err := Glowinski().Compute([]particle.Particle{a, b}, nil, params)
	assert.True(t, errors.Is(err, dynamo.ErrDegenerateGeometry))
}

func TestCompute_Deterministic(t *testing.T) {
	ps := []particle.Particle{
		ball(0, r3.Vec{X: 0.00}, 0.05),
		ball(1, r3.Vec{X: 0.09}, 0.05),
		ball(2, r3.Vec{X: 0.045, Y: 0.08}, 0.05),
	}

	first, err := Glowinski().Compute(ps, nil, params)
	require.NoError(t, err)
	for k := 0; k < 10; k++ {
		again, err := Glowinski().Compute(ps, nil, params)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	var sum r3.Vec
	for _, f := range first {
		sum = r3.Add(sum, f)
	}
	assert.InDelta(t, 0, r3.Norm(sum), 1e-9, "internal forces must cancel")
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, params.Validate())

	bad := []Params{
		{ForceRange: 0, ParticleStiffness: 1, WallStiffness: 1},
		{ForceRange: 1, ParticleStiffness: 0, WallStiffness: 1},
		{ForceRange: 1, ParticleStiffness: 1, WallStiffness: -1},
		{ForceRange: math.NaN(), ParticleStiffness: 1, WallStiffness: 1},
	}
	for _, p := range bad {
		assert.True(t, errors.Is(p.Validate(), dynamo.ErrConfiguration), "%+v", p)
	}
}

func TestNew(t *testing.T) {
	m, err := New("glowinski")
	require.NoError(t, err)
	assert.Equal(t, "glowinski", m.Name())

	m, err = New("none")
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = New("hertz")
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))

	assert.Equal(t, []string{"glowinski", "linear", "none"}, List())
}
