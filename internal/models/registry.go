package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/fesdsim/internal/fesd"
)

var registry = map[string]func() *fesd.Model{
	"oscillator": func() *fesd.Model { return NewOscillator().Model() },
	"decay":      func() *fesd.Model { return NewDecay().Model() },
	"relay":      func() *fesd.Model { return NewRelay().Model() },
	"pendulum":   func() *fesd.Model { return NewPendulum().Model() },
}

var descriptions = map[string]string{
	"oscillator": "two linear spirals switching on the unit circle",
	"decay":      "single-mode exponential decay, implicit Euler reference",
	"relay":      "sign relay with offset parameter, slides on x = 0",
	"pendulum":   "damped pendulum with Coulomb friction at the pivot",
}

func Get(name string) (*fesd.Model, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Describe(name string) string {
	return descriptions[name]
}
