// Package integrators holds explicit one-step schemes for smooth vector
// fields. They seed the implicit discretization with an initial guess.
package integrators

import (
	"fmt"
	"sort"
)

// Field evaluates dx = f(x).
type Field func(x, dx []float64)

type Integrator interface {
	Step(f Field, x []float64, dt float64) []float64
}

var registry = map[string]func() Integrator{
	"euler": func() Integrator { return NewEuler() },
	"rk4":   func() Integrator { return NewRK4() },
	"rk45":  func() Integrator { return NewRK45() },
}

func New(name string) (Integrator, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return ctor(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
