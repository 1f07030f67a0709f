package watersim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end scenarios: whole runs over small grids whose qualitative
// outcome (where the water ends up, whether mass is conserved, whether
// two runs agree bit-for-bit) is checked rather than individual phase
// arithmetic.

func TestScenario_DrainToTheRight(t *testing.T) {
	params := DefaultParameters()
	params.Rainfall = 0
	params.Evaporation = 0
	g, err := NewGrid1D(params, 16, nil)
	require.NoError(t, err)

	g.ApplyInitializer(func(x, y int) (float64, float64, float64) {
		return float64(15-x) * 0.1, 0, 0
	})
	g.SetCell(1, 0, g.GetTerrainHeight(1, 0), 1.0, 0)

	totalBefore := sumWater1D(g)

	for i := 0; i < 200; i++ {
		require.NoError(t, g.Step())
	}

	totalAfter := sumWater1D(g)
	assert.InDelta(t, totalBefore, totalAfter, 1e-4)

	leftCell, _ := g.At(1, 0)
	rightCell, _ := g.At(14, 0)
	assert.Greaterf(t, rightCell.WaterHeight, leftCell.WaterHeight,
		"expected water to have migrated downhill toward the right: left=%v right=%v",
		leftCell.WaterHeight, rightCell.WaterHeight)
}

func sumWater1D(g *Grid) float64 {
	var sum float64
	for x := 1; x <= g.SizeX()-2; x++ {
		c, _ := g.At(x, 0)
		sum += c.WaterHeight
	}
	return sum
}

func TestScenario_FlatPondStaysUnchanged(t *testing.T) {
	params := DefaultParameters()
	params.Rainfall = 0
	params.Evaporation = 0
	g, err := NewGrid2D(params, 16, 16, nil)
	require.NoError(t, err)
	g.ApplyInitializer(Flat2D(1).withWater(0.5))

	for i := 0; i < 50; i++ {
		require.NoError(t, g.Step())
	}

	for y := 1; y <= g.SizeY()-2; y++ {
		for x := 1; x <= g.SizeX()-2; x++ {
			c, _ := g.At(x, y)
			assert.InDelta(t, 0.5, c.WaterHeight, 1e-9)
			assert.InDelta(t, 0.0, c.Sediment, 1e-9)
		}
	}
}

func TestScenario_UniformEvaporation(t *testing.T) {
	params := DefaultParameters()
	params.Rainfall = 0
	params.Evaporation = 0.1
	params.DT = 0.1
	g, err := NewGrid2D(params, 8, 8, nil)
	require.NoError(t, err)
	g.ApplyInitializer(Flat2D(1).withWater(1.0))

	for i := 0; i < 10; i++ {
		require.NoError(t, g.Step())
	}

	want := math.Pow(1-params.Evaporation*params.DT, 10)
	for y := 1; y <= g.SizeY()-2; y++ {
		for x := 1; x <= g.SizeX()-2; x++ {
			c, _ := g.At(x, y)
			assert.InDelta(t, want, c.WaterHeight, 1e-6)
		}
	}
}

func TestScenario_SlopeRelaxation(t *testing.T) {
	params := DefaultParameters()
	params.Rainfall = 0
	g, err := NewGrid2D(params, 10, 10, nil)
	require.NoError(t, err)
	g.ApplyInitializer(Flat2D(0))

	spikeHeight := 10 * params.MaxStep
	g.SetCell(5, 5, spikeHeight, 0, 0)

	maxAdjacentDiff := func() float64 {
		var worst float64
		for y := 1; y <= g.SizeY()-2; y++ {
			for x := 1; x <= g.SizeX()-2; x++ {
				c, _ := g.At(x, y)
				right, ok := g.At(x+1, y)
				if ok {
					if d := math.Abs(c.TerrainHeight - right.TerrainHeight); d > worst {
						worst = d
					}
				}
				down, ok := g.At(x, y+1)
				if ok {
					if d := math.Abs(c.TerrainHeight - down.TerrainHeight); d > worst {
						worst = d
					}
				}
			}
		}
		return worst
	}

	before := maxAdjacentDiff()

	for i := 0; i < 50; i++ {
		require.NoError(t, g.Step())
	}

	after := maxAdjacentDiff()
	assert.Lessf(t, after, before, "expected slope relaxation to reduce the worst adjacent step, before=%v after=%v", before, after)

	spike, _ := g.At(5, 5)
	assert.Lessf(t, spike.TerrainHeight, spikeHeight, "expected the spike itself to have lost height to its neighbors")
}

func TestScenario_ErosionDepositionConservesMass(t *testing.T) {
	params := DefaultParameters()
	params.Rainfall = 0
	g, err := NewGrid2D(params, 12, 6, nil)
	require.NoError(t, err)

	// A gentle, shallow slope keeps every adjacent terrain difference
	// within MAX_STEP so the steepness phase never slips, isolating
	// erosion/deposition's exact per-cell mass conservation.
	initialTerrain := func(x int) float64 { return float64(12-x) * 0.01 }
	g.ApplyInitializer(func(x, y int) (float64, float64, float64) {
		return initialTerrain(x), 0.3, 0
	})

	before := sumTerrainPlusSediment(g)
	for i := 0; i < 200; i++ {
		require.NoError(t, g.Step())
	}
	after := sumTerrainPlusSediment(g)

	n := float64((g.SizeX() - 2) * (g.SizeY() - 2))
	assert.InDelta(t, before, after, 1e-3*n)

	// The flowing water must have eroded somewhere: at least one cell's
	// terrain has moved off its initial value (and by the conservation
	// assertion above, the material reappeared elsewhere as sediment or
	// deposited terrain rather than vanishing).
	var eroded bool
	for y := 1; y <= g.SizeY()-2 && !eroded; y++ {
		for x := 1; x <= g.SizeX()-2; x++ {
			c, _ := g.At(x, y)
			if c.TerrainHeight < initialTerrain(x)-1e-9 {
				eroded = true
				break
			}
		}
	}
	assert.True(t, eroded, "expected flowing water to erode terrain somewhere on the slope")
}

func TestScenario_Determinism(t *testing.T) {
	newRun := func() *Grid {
		params := DefaultParameters()
		params.Seed = 99
		params.WorkerCount = 3
		g, err := NewGrid2D(params, 10, 10, nil)
		require.NoError(t, err)
		g.ApplyInitializer(func(x, y int) (float64, float64, float64) {
			return float64((x*3+y*5)%7) * 0.1, float64((x+y)%4) * 0.05, 0
		})
		return g
	}

	a := newRun()
	b := newRun()

	for i := 0; i < 300; i++ {
		require.NoError(t, a.Step())
		require.NoError(t, b.Step())
	}

	snapA := a.Snapshot()
	snapB := b.Snapshot()
	require.Len(t, snapA, len(snapB))
	for i := range snapA {
		assert.Equal(t, snapA[i], snapB[i])
	}
}
