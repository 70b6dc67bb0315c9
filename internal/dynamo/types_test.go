package dynamo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_VecRoundTrip(t *testing.T) {
	s := make(State, 6)
	v := r3.Vec{X: 1, Y: -2, Z: 3}
	s.SetVec(3, v)

	if got := s.Vec(3); got != v {
		t.Errorf("Vec(3) = %v, want %v", got, v)
	}
	if s[0] != 0 || s[1] != 0 || s[2] != 0 {
		t.Errorf("SetVec wrote outside its slot: %v", s)
	}
}

func TestControlVec(t *testing.T) {
	u := ControlVec(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 4, Y: 5, Z: 6})
	if len(u) != 6 || u[0] != 1 || u[5] != 6 {
		t.Errorf("ControlVec = %v", u)
	}
}

func TestCheckIndex(t *testing.T) {
	tests := []struct {
		i, n  int
		valid bool
	}{
		{0, 3, true},
		{2, 3, true},
		{3, 3, false},
		{-1, 3, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		err := CheckIndex(tt.i, tt.n)
		if tt.valid && err != nil {
			t.Errorf("CheckIndex(%d, %d) = %v, want nil", tt.i, tt.n, err)
		}
		if !tt.valid && !errors.Is(err, ErrIndex) {
			t.Errorf("CheckIndex(%d, %d) = %v, want ErrIndex", tt.i, tt.n, err)
		}
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("radius %d", 3)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Configf did not wrap ErrConfiguration: %v", err)
	}
	if err.Error() != "dynamo: invalid configuration: radius 3" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestParallelFor_CoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1001} {
		seen := make([]int32, n)
		ParallelFor(n, 8, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, c)
			}
		}
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(r3.Vec{X: 1}) {
		t.Error("finite vector reported non-finite")
	}
	if IsFinite(r3.Vec{Y: math.NaN()}) {
		t.Error("NaN vector reported finite")
	}
	if IsFinite(r3.Vec{Z: math.Inf(-1)}) {
		t.Error("Inf vector reported finite")
	}
}
