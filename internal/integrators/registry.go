package integrators

import (
	"sort"

	"github.com/san-kum/ibmcouple/internal/dynamo"
)

// DefaultScheme is the scheme used when none is configured.
const DefaultScheme = "verlet"

var schemes = map[string]func() dynamo.Integrator{
	"euler":      func() dynamo.Integrator { return NewEuler() },
	"symplectic": func() dynamo.Integrator { return NewSymplecticEuler() },
	"verlet":     func() dynamo.Integrator { return NewVerlet() },
	"leapfrog":   func() dynamo.Integrator { return NewLeapfrog() },
	"rk4":        func() dynamo.Integrator { return NewRK4() },
}

// New returns a fresh integrator for name.
func New(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = DefaultScheme
	}
	fn, ok := schemes[name]
	if !ok {
		return nil, dynamo.Configf("unknown integrator: %s (available: %v)", name, List())
	}
	return fn(), nil
}

func List() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
