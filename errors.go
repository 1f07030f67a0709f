package watersim

import "fmt"

// DegeneracyError is returned by Step, only when Parameters.Debug is
// set, the first time a phase boundary observes a NaN or Inf in a cell
// field that the simulation's invariants say must stay finite.
type DegeneracyError struct {
	Phase string
	Index int
	X, Y  int
}

func (e *DegeneracyError) Error() string {
	return fmt.Sprintf("watersim: numerical degeneracy in phase %q at cell (%d,%d) [index %d]", e.Phase, e.X, e.Y, e.Index)
}
