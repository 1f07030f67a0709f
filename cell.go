package watersim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Cell is one grid location: committed terrain/water/sediment height,
// a lateral velocity, staging fields for the transport/slope phases,
// and the four outgoing pipes owned by this cell.
type Cell struct {
	TerrainHeight float64
	WaterHeight   float64
	Sediment      float64
	Velocity      mgl32.Vec2

	tempTerrainHeight float64
	tempWaterHeight   float64
	tempSediment      float64

	Left, Right, Up, Down Pipe
}

// liquidHeight is water + sediment: the liquid column above the terrain.
// Sediment contributes to surface height so that deposition raising a
// cell's floor does not read as a lower liquid surface, which would send
// waves back upstream.
func (c *Cell) liquidHeight() float64 {
	return c.WaterHeight + c.Sediment
}

// combinedHeight is the surface height used for gravity in the flux update.
func (c *Cell) combinedHeight() float64 {
	return c.TerrainHeight + c.liquidHeight()
}

// velocityMagnitude is the Euclidean speed of the lateral flow.
func (c *Cell) velocityMagnitude() float64 {
	return float64(c.Velocity.Len())
}

func (c *Cell) sedimentTransportCapacity(params *Parameters) float64 {
	return params.SedimentCapacity * c.velocityMagnitude()
}

// volumePR is the fraction of this cell's liquid volume that a flowing
// volume V represents: the "pro-rata" factor used to split outflow
// between its water and sediment components.
func (c *Cell) volumePR(params *Parameters, volume float64) float64 {
	currentVolume := c.liquidHeight() * params.PipeLength * params.PipeLength
	if currentVolume <= 0 {
		return 0
	}
	return volume / currentVolume
}

func (c *Cell) waterForVolume(params *Parameters, volume float64) float64 {
	return c.volumePR(params, volume) * c.WaterHeight
}

func (c *Cell) sedimentForVolume(params *Parameters, volume float64) float64 {
	return c.volumePR(params, volume) * c.Sediment
}

// updateRainfall adds RAINFALL·RAIN_RANDOM·DT of water when draw == 0.
// draw is a deterministic value in [0, RAIN_RANDOM) supplied by the grid
// (see rng.go), keeping the long-run mean equal to RAINFALL·DT while
// concentrating rain spatially.
func (c *Cell) updateRainfall(params *Parameters, draw int) {
	if draw == 0 {
		c.WaterHeight += params.Rainfall * float64(params.RainRandom) * params.DT
	}
}

// heightChange is the half-excess slip toward neighbor when the terrain
// slope between the two cells exceeds MAX_STEP·distance.
func (c *Cell) heightChange(params *Parameters, neighbor *Cell, distance float64) float64 {
	diff := c.TerrainHeight - neighbor.TerrainHeight
	step := params.MaxStep * distance
	if diff > step {
		return (step - diff) / 2
	}
	if diff < -step {
		return (-step - diff) / 2
	}
	return 0
}

// updatePipes computes new outflow for every pipe from the combined
// height of this cell and each neighbor, then scales all four pipes back
// by a single factor K so this cell cannot drain more water than it
// holds during the next transport phase. When hasVertical is false (the
// 1D reduction) Up and Down stay at their zero value and never
// contribute.
func (c *Cell) updatePipes(params *Parameters, left, right, up, down *Cell, hasVertical bool) {
	height := c.combinedHeight()
	c.Left.update(params, height, left.combinedHeight())
	c.Right.update(params, height, right.combinedHeight())
	if hasVertical {
		c.Up.update(params, height, up.combinedHeight())
		c.Down.update(params, height, down.combinedHeight())
	}

	total := c.Left.FlowVolume + c.Right.FlowVolume + c.Up.FlowVolume + c.Down.FlowVolume
	currentVolume := c.WaterHeight * params.PipeLength * params.PipeLength
	denom := total * params.DT

	var k float64
	if denom <= 0 {
		k = 0
	} else {
		k = currentVolume / denom
		if math.IsInf(k, 0) || math.IsNaN(k) {
			k = 0
		} else if k > 1 {
			k = 1
		}
	}

	c.Left.scaleBack(k)
	c.Right.scaleBack(k)
	if hasVertical {
		c.Up.scaleBack(k)
		c.Down.scaleBack(k)
	}
}

// updateWaterSurfaceAndSediment writes tempWaterHeight, tempSediment and
// Velocity from the committed state of this cell and its four neighbors.
// Inflow is read from the neighbor's pipe pointing back at this cell;
// sediment moves with water in proportion to each source's own
// pro-rata mass fraction.
func (c *Cell) updateWaterSurfaceAndSediment(params *Parameters, left, right, up, down *Cell, hasVertical bool) {
	inflow := left.Right.FlowVolume + right.Left.FlowVolume
	outflow := c.Left.FlowVolume + c.Right.FlowVolume
	if hasVertical {
		inflow += up.Down.FlowVolume + down.Up.FlowVolume
		outflow += c.Up.FlowVolume + c.Down.FlowVolume
	}

	deltaVolume := (inflow - outflow) * params.DT
	c.tempWaterHeight = c.WaterHeight + deltaVolume/(params.PipeLength*params.PipeLength)

	vx := (left.Right.FlowVolume - c.Left.FlowVolume - right.Left.FlowVolume + c.Right.FlowVolume) / 2
	var vy float64
	if hasVertical {
		vy = (down.Up.FlowVolume - c.Down.FlowVolume - up.Down.FlowVolume + c.Up.FlowVolume) / 2
	}
	c.Velocity = mgl32.Vec2{float32(vx), float32(vy)}

	c.tempSediment = c.Sediment -
		c.sedimentForVolume(params, outflow*params.DT) +
		left.sedimentForVolume(params, left.Right.FlowVolume*params.DT) +
		right.sedimentForVolume(params, right.Left.FlowVolume*params.DT)
	if hasVertical {
		c.tempSediment += up.sedimentForVolume(params, up.Down.FlowVolume*params.DT) +
			down.sedimentForVolume(params, down.Up.FlowVolume*params.DT)
	}
}

// updateSteepness relaxes terrain slope against each neighbor, writing
// tempTerrainHeight as the committed height plus the mean slip over all
// present neighbors (two in the 1D reduction, four otherwise). Cardinal
// neighbors are distance 1 apart.
func (c *Cell) updateSteepness(params *Parameters, left, right, up, down *Cell, hasVertical bool) {
	sum := c.heightChange(params, left, 1) + c.heightChange(params, right, 1)
	n := 2.0
	if hasVertical {
		sum += c.heightChange(params, up, 1) + c.heightChange(params, down, 1)
		n = 4.0
	}
	c.tempTerrainHeight = c.TerrainHeight + sum/n
}

// finishWaterSurfaceAndSediment commits the staging fields written by
// the transport and slope phases. The max(0, ·) clamps guard against
// floating-point drift. grid.go's debug scan checks only for NaN/Inf;
// it does not report negative staged values, which the clamps hide.
func (c *Cell) finishWaterSurfaceAndSediment() {
	c.WaterHeight = math.Max(0, c.tempWaterHeight)
	c.Sediment = math.Max(0, c.tempSediment)
	c.TerrainHeight = c.tempTerrainHeight
}

// updateErosionAndDeposition moves mass between TerrainHeight and
// Sediment; TerrainHeight+Sediment is invariant across this call.
func (c *Cell) updateErosionAndDeposition(params *Parameters) {
	capacity := c.sedimentTransportCapacity(params)
	diff := capacity - c.Sediment

	rate := params.DissolveConstant
	if diff <= 0 {
		rate = params.DepositionConstant
	}
	delta := diff * rate * params.DT

	c.TerrainHeight -= delta
	c.Sediment += delta
}

// updateEvaporation reduces WaterHeight by a fractional amount per unit
// time. Sediment is not evaporated.
func (c *Cell) updateEvaporation(params *Parameters) {
	factor := 1 - params.Evaporation*params.DT
	if factor < 0 {
		factor = 0
	}
	c.WaterHeight *= factor
}

// isFinite reports whether every field that participates in the
// numerical invariants holds a finite value. Used only by the debug
// degeneracy scan.
func (c *Cell) isFinite() bool {
	finite := func(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
	return finite(c.TerrainHeight) && finite(c.WaterHeight) && finite(c.Sediment) &&
		!mgl32Nan(c.Velocity) &&
		c.Left.isFinite() && c.Right.isFinite() && c.Up.isFinite() && c.Down.isFinite()
}

func mgl32Nan(v mgl32.Vec2) bool {
	f := func(x float32) bool { return math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) }
	return f(v.X()) || f(v.Y())
}
