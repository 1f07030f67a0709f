package watersim

import (
	"fmt"
	"time"

	"github.com/pajotg/watersim/internal/executor"
)

// Dim names the grid's dimensionality. Dim1 and Dim2 share every Cell
// and Pipe formula; only the neighbor arity passed into each phase
// differs. There is no separate 1D implementation: a Dim1 grid is
// SizeY==1 with vertical neighbors never touched.
type Dim int

const (
	Dim1 Dim = 1
	Dim2 Dim = 2
)

// Grid is a dense, row-major array of cells with a fixed one-cell
// boundary ring. The grid owns its cells exclusively; Step is not safe
// to invoke concurrently with itself. A Grid is a single-writer
// resource.
type Grid struct {
	dim         Dim
	sizeX       int
	sizeY       int
	cells       []Cell
	params      *Parameters
	logger      Logger
	pool        *executor.Pool
	step        uint64
	rowRangesIn []executor.Range
}

// NewGrid2D allocates a zero-initialized SizeX×SizeY grid with a
// one-cell boundary ring (so the smallest usable grid is 3×3: one
// interior cell surrounded by boundary). logger may be nil, in which
// case a NopLogger is used.
func NewGrid2D(params *Parameters, sizeX, sizeY int, logger Logger) (*Grid, error) {
	if sizeX < 3 || sizeY < 3 {
		return nil, fmt.Errorf("watersim: grid must be at least 3x3, got %dx%d", sizeX, sizeY)
	}
	return newGrid(params, Dim2, sizeX, sizeY, logger)
}

// NewGrid1D allocates a zero-initialized, length-SizeX grid with a
// one-cell boundary at each end (so the smallest usable grid is length
// 3: one interior cell). Every phase and formula is shared with the 2D
// grid; the Up/Down neighbors are simply never touched.
func NewGrid1D(params *Parameters, sizeX int, logger Logger) (*Grid, error) {
	if sizeX < 3 {
		return nil, fmt.Errorf("watersim: 1D grid must have length >= 3, got %d", sizeX)
	}
	return newGrid(params, Dim1, sizeX, 1, logger)
}

func newGrid(params *Parameters, dim Dim, sizeX, sizeY int, logger Logger) (*Grid, error) {
	if params == nil {
		return nil, fmt.Errorf("watersim: params must not be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewNopLogger()
	}

	g := &Grid{
		dim:    dim,
		sizeX:  sizeX,
		sizeY:  sizeY,
		cells:  make([]Cell, sizeX*sizeY),
		params: params,
		logger: logger,
		pool:   executor.New(params.resolvedWorkerCount()),
	}
	g.rowRangesIn = g.buildRowRanges()
	logger.Infof("watersim: created %dx%d grid (dim=%d, workers=%d)", sizeX, sizeY, dim, g.pool.Workers())
	return g, nil
}

// Dim reports whether this is a 1D or 2D grid.
func (g *Grid) Dim() Dim { return g.dim }

// SizeX and SizeY report the grid's full dimensions, including the
// boundary ring. SizeY is always 1 for a Dim1 grid.
func (g *Grid) SizeX() int { return g.sizeX }
func (g *Grid) SizeY() int { return g.sizeY }

func (g *Grid) index(x, y int) int { return y*g.sizeX + x }

func (g *Grid) coords(i int) (x, y int) {
	return i % g.sizeX, i / g.sizeX
}

func (g *Grid) inBounds(x, y int) bool {
	if g.dim == Dim1 {
		return y == 0 && x >= 0 && x < g.sizeX
	}
	return x >= 0 && x < g.sizeX && y >= 0 && y < g.sizeY
}

func (g *Grid) isInterior(x, y int) bool {
	if x < 1 || x > g.sizeX-2 {
		return false
	}
	if g.dim == Dim1 {
		return y == 0
	}
	return y >= 1 && y <= g.sizeY-2
}

// At returns a pointer to the cell at (x, y) and true, or nil and false
// if (x, y) is out of range.
func (g *Grid) At(x, y int) (*Cell, bool) {
	if !g.inBounds(x, y) {
		return nil, false
	}
	return &g.cells[g.index(x, y)], true
}

// SetCell writes one cell's committed state directly; hosts use it to
// populate the grid before the first Step. Returns false if (x, y) is
// out of range.
func (g *Grid) SetCell(x, y int, terrain, water, sediment float64) bool {
	c, ok := g.At(x, y)
	if !ok {
		return false
	}
	c.TerrainHeight = terrain
	c.WaterHeight = water
	c.Sediment = sediment
	return true
}

// Initializer populates one cell's initial state, given its coordinates.
type Initializer func(x, y int) (terrain, water, sediment float64)

// ApplyInitializer invokes init once for every cell in the grid,
// including the boundary ring, before the first Step. Calling it after
// Step has already run is legal but re-seeds committed state underneath
// any staged values.
func (g *Grid) ApplyInitializer(init Initializer) {
	for y := 0; y < g.sizeY; y++ {
		for x := 0; x < g.sizeX; x++ {
			terrain, water, sediment := init(x, y)
			c := &g.cells[g.index(x, y)]
			c.TerrainHeight = terrain
			c.WaterHeight = water
			c.Sediment = sediment
		}
	}
}

// GetTerrainHeight, GetWaterHeight and GetSedimentHeight read one
// committed cell field. Out-of-range coordinates return 0.
func (g *Grid) GetTerrainHeight(x, y int) float64 {
	if c, ok := g.At(x, y); ok {
		return c.TerrainHeight
	}
	return 0
}

func (g *Grid) GetWaterHeight(x, y int) float64 {
	if c, ok := g.At(x, y); ok {
		return c.WaterHeight
	}
	return 0
}

func (g *Grid) GetSedimentHeight(x, y int) float64 {
	if c, ok := g.At(x, y); ok {
		return c.Sediment
	}
	return 0
}

// CellView is a read-only, render-friendly copy of one cell's committed
// state.
type CellView struct {
	X, Y          int
	TerrainHeight float64
	WaterHeight   float64
	Sediment      float64
	VelocityX     float64
	VelocityY     float64
}

// Snapshot copies every cell's committed state into a fresh slice.
// Observers must call it between Step calls; the grid is not
// double-buffered.
func (g *Grid) Snapshot() []CellView {
	out := make([]CellView, len(g.cells))
	for i := range g.cells {
		x, y := g.coords(i)
		c := &g.cells[i]
		out[i] = CellView{
			X: x, Y: y,
			TerrainHeight: c.TerrainHeight,
			WaterHeight:   c.WaterHeight,
			Sediment:      c.Sediment,
			VelocityX:     float64(c.Velocity.X()),
			VelocityY:     float64(c.Velocity.Y()),
		}
	}
	return out
}

func (g *Grid) buildRowRanges() []executor.Range {
	if g.dim == Dim1 {
		return []executor.Range{{Start: g.index(1, 0), End: g.index(g.sizeX-1, 0)}}
	}
	ranges := make([]executor.Range, 0, g.sizeY-2)
	for y := 1; y <= g.sizeY-2; y++ {
		ranges = append(ranges, executor.Range{
			Start: g.index(1, y),
			End:   g.index(g.sizeX-1, y),
		})
	}
	return ranges
}

// neighbors returns the four pipe-bearing neighbors of the cell at
// index i. up and down are nil for a Dim1 grid and must not be
// dereferenced by callers (the hasVertical flag threaded through Cell's
// phase methods guarantees this).
func (g *Grid) neighbors(i int) (left, right, up, down *Cell) {
	left = &g.cells[i-1]
	right = &g.cells[i+1]
	if g.dim == Dim2 {
		up = &g.cells[i-g.sizeX]
		down = &g.cells[i+g.sizeX]
	}
	return
}

// applyBoundary zeros every pipe that crosses the outer ring. Runs
// sequentially; the work is O(SizeX+SizeY).
func (g *Grid) applyBoundary() {
	if g.dim == Dim1 {
		g.cells[g.index(1, 0)].Left.FlowVolume = 0
		g.cells[g.index(g.sizeX-2, 0)].Right.FlowVolume = 0
		return
	}
	for x := 1; x <= g.sizeX-2; x++ {
		g.cells[g.index(x, 1)].Up.FlowVolume = 0
		g.cells[g.index(x, g.sizeY-2)].Down.FlowVolume = 0
	}
	for y := 1; y <= g.sizeY-2; y++ {
		g.cells[g.index(1, y)].Left.FlowVolume = 0
		g.cells[g.index(g.sizeX-2, y)].Right.FlowVolume = 0
	}
}

// Step advances every interior cell by DT: rainfall, flux, boundary,
// transport plus slope relaxation, then finish, erosion/deposition and
// evaporation, with a barrier between phases. It returns a non-nil
// *DegeneracyError only when Parameters.Debug is set and a NaN/Inf is
// observed at a phase boundary; with Debug off (the default) Step never
// scans and always returns nil.
func (g *Grid) Step() error {
	g.step++
	hasVertical := g.dim == Dim2
	debug := g.params.Debug && g.logger.DebugEnabled()

	phase := func(name string, fn func(i int)) error {
		start := time.Now()
		g.pool.Run(g.rowRangesIn, fn)
		if debug {
			g.logger.Debugf("watersim: phase %s took %s", name, time.Since(start))
		}
		if g.params.Debug {
			return g.checkDegeneracy(name)
		}
		return nil
	}

	step := g.step
	if err := phase("rainfall", func(i int) {
		draw := rainDraw(g.params.Seed, step, i, g.params.RainRandom)
		g.cells[i].updateRainfall(g.params, draw)
	}); err != nil {
		return err
	}

	if err := phase("flux", func(i int) {
		left, right, up, down := g.neighbors(i)
		g.cells[i].updatePipes(g.params, left, right, up, down, hasVertical)
	}); err != nil {
		return err
	}

	g.applyBoundary()
	if g.params.Debug {
		if err := g.checkDegeneracy("boundary"); err != nil {
			return err
		}
	}

	if err := phase("transport", func(i int) {
		left, right, up, down := g.neighbors(i)
		c := &g.cells[i]
		c.updateWaterSurfaceAndSediment(g.params, left, right, up, down, hasVertical)
		c.updateSteepness(g.params, left, right, up, down, hasVertical)
	}); err != nil {
		return err
	}

	if err := phase("finish", func(i int) {
		c := &g.cells[i]
		c.finishWaterSurfaceAndSediment()
		c.updateErosionAndDeposition(g.params)
		c.updateEvaporation(g.params)
	}); err != nil {
		return err
	}

	return nil
}

// checkDegeneracy scans every interior cell for a non-finite field,
// returning the first offender wrapped with the phase name that
// produced it.
func (g *Grid) checkDegeneracy(phase string) error {
	for _, r := range g.rowRangesIn {
		for i := r.Start; i < r.End; i++ {
			if !g.cells[i].isFinite() {
				x, y := g.coords(i)
				err := &DegeneracyError{Phase: phase, Index: i, X: x, Y: y}
				g.logger.Errorf("%s", err)
				return err
			}
		}
	}
	return nil
}
