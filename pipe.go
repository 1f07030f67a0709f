package watersim

import "math"

// Pipe is the scalar flux between a cell and one of its neighbors: a
// one-directional channel carrying outflow toward the named neighbor.
// The matching inflow is read from the neighbor's opposite pipe.
type Pipe struct {
	FlowVolume float64
}

// update sets the new flux from the combined heights of the owning cell
// and the neighbor it points at. Clamped to zero: the reverse direction
// is represented by the neighbor's own pipe, not by a negative value
// here.
func (p *Pipe) update(params *Parameters, heightSelf, heightNeighbor float64) {
	next := p.FlowVolume + params.DT*params.Gravity*(heightSelf-heightNeighbor)/params.PipeLength
	if next < 0 {
		next = 0
	}
	p.FlowVolume = next
}

// scaleBack multiplies the flux by k, used to enforce that a cell never
// drains more water than it holds (see Cell.updatePipes).
func (p *Pipe) scaleBack(k float64) {
	p.FlowVolume *= k
}

// isFinite reports whether FlowVolume is neither NaN nor ±Inf.
func (p *Pipe) isFinite() bool {
	return !math.IsNaN(p.FlowVolume) && !math.IsInf(p.FlowVolume, 0)
}
