package integrators

import "github.com/san-kum/ibmcouple/internal/dynamo"

// Verlet is velocity Verlet. It is exact for constant acceleration.
type Verlet struct {
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	half := n / 2
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
	}

	result := make(dynamo.State, n)
	a0 := dyn.Derive(x, u, t)

	for i := 0; i < half; i++ {
		result[i] = x[i] + x[half+i]*dt + 0.5*a0[half+i]*dt*dt
		v.scratch[i] = result[i]
		v.scratch[half+i] = x[half+i]
	}

	a1 := dyn.Derive(v.scratch, u, t+dt)

	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + 0.5*dt*(a0[half+i]+a1[half+i])
	}
	return result
}

// Leapfrog is the kick-drift-kick form.
type Leapfrog struct {
	scratch dynamo.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	half := n / 2
	if len(l.scratch) != n {
		l.scratch = make(dynamo.State, n)
	}

	result := make(dynamo.State, n)
	a0 := dyn.Derive(x, u, t)

	// kick, drift
	for i := 0; i < half; i++ {
		l.scratch[half+i] = x[half+i] + 0.5*dt*a0[half+i]
		result[i] = x[i] + dt*l.scratch[half+i]
		l.scratch[i] = result[i]
	}

	a1 := dyn.Derive(l.scratch, u, t+dt)

	// kick
	for i := 0; i < half; i++ {
		result[half+i] = l.scratch[half+i] + 0.5*dt*a1[half+i]
	}
	return result
}
