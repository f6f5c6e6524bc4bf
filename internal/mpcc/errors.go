package mpcc

import (
	"errors"
	"fmt"
)

// Domain errors for problem construction and solving.
var (
	// ErrDimensionMismatch indicates blocks whose sizes disagree with the declared variable space.
	ErrDimensionMismatch = errors.New("mpcc: dimension mismatch between problem blocks")

	// ErrNotSimulation indicates a solver bound to a problem with optimal-control terms.
	ErrNotSimulation = errors.New("mpcc: problem is not a pure simulation problem")

	// ErrShapeMismatch indicates a parameter array with the wrong shape.
	ErrShapeMismatch = errors.New("mpcc: parameter shape mismatch")

	// ErrSingularSystem indicates the regularized Newton matrix could not be factorized.
	ErrSingularSystem = errors.New("mpcc: singular Newton system")

	// ErrInvalidConfig indicates solver settings outside their valid range.
	ErrInvalidConfig = errors.New("mpcc: invalid configuration")
)

// DimensionError reports which part of a problem has an inconsistent size.
type DimensionError struct {
	Field string
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("mpcc: %s has dimension %d, want %d", e.Field, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// ConfigurationError is raised before any solving starts.
type ConfigurationError struct {
	Message string
	Wrapped error
}

func (e *ConfigurationError) Error() string {
	if e.Wrapped == nil {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Wrapped)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Wrapped
}

// SingularError carries the diagnostics of a failed Newton linear solve.
type SingularError struct {
	Cond  float64
	Sigma float64
	Level int
	Iter  int
	Cause error
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("mpcc: failed to solve Newton system at level %d iteration %d (sigma=%.2e, cond=%.2e): %v",
		e.Level, e.Iter, e.Sigma, e.Cond, e.Cause)
}

func (e *SingularError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSingularSystem}
	}
	return []error{ErrSingularSystem, e.Cause}
}
