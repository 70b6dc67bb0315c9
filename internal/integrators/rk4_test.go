package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/ibmcouple/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

// constantAccel is a 1D body under the acceleration carried in u[0].
type constantAccel struct{}

func (c *constantAccel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], u[0]}
}

func (c *constantAccel) StateDim() int   { return 2 }
func (c *constantAccel) ControlDim() int { return 1 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestRK4_ReusesScratchAcrossSizes(t *testing.T) {
	integ := NewRK4()
	integ.Step(&harmonicOscillator{}, dynamo.State{1, 0}, nil, 0, 0.1)

	x := integ.Step(&constantAccel{}, dynamo.State{0, 0}, dynamo.Control{2}, 0, 0.5)
	if math.Abs(x[1]-1.0) > 1e-12 || math.Abs(x[0]-0.25) > 1e-12 {
		t.Errorf("got %v, want [0.25 1]", x)
	}
}

func TestConstantAcceleration(t *testing.T) {
	const (
		g  = -9.81
		dt = 1e-3
		n  = 250
	)
	wantV := g * n * dt
	wantX := 0.5 * g * (n * dt) * (n * dt)

	tests := []struct {
		name      string
		posExact  bool
		posBounds float64
	}{
		{"verlet", true, 0},
		{"leapfrog", true, 0},
		{"rk4", true, 0},
		{"symplectic", false, math.Abs(g) * n * dt * dt},
		{"euler", false, math.Abs(g) * n * dt * dt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ, err := New(tt.name)
			if err != nil {
				t.Fatal(err)
			}

			x := dynamo.State{0, 0}
			for i := 0; i < n; i++ {
				x = integ.Step(&constantAccel{}, x, dynamo.Control{g}, float64(i)*dt, dt)
			}

			if math.Abs(x[1]-wantV) > 1e-9 {
				t.Errorf("velocity = %.12f, want %.12f", x[1], wantV)
			}

			tol := 1e-9
			if !tt.posExact {
				tol = tt.posBounds
			}
			if math.Abs(x[0]-wantX) > tol {
				t.Errorf("position = %.12f, want %.12f (tol %g)", x[0], wantX, tol)
			}
		})
	}
}

func TestZeroAccelerationNoDrift(t *testing.T) {
	for _, name := range List() {
		integ, err := New(name)
		if err != nil {
			t.Fatal(err)
		}

		x := dynamo.State{0.3, -1.2}
		for i := 0; i < 1000; i++ {
			x = integ.Step(&constantAccel{}, x, dynamo.Control{0}, 0, 1e-4)
		}

		if x[1] != -1.2 {
			t.Errorf("%s: velocity drifted to %v", name, x[1])
		}
	}
}

func TestNew_Registry(t *testing.T) {
	integ, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := integ.(*Verlet); !ok {
		t.Errorf("default scheme should be verlet, got %T", integ)
	}

	if _, err := New("rk45"); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown scheme, got %v", err)
	}

	want := []string{"euler", "leapfrog", "rk4", "symplectic", "verlet"}
	got := List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
