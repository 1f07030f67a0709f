// Command libwatersim is the C-compatible FFI boundary to the
// simulation engine. Built with `go build -buildmode=c-shared`, it
// exposes new_simulation_variables, new_simulation, step_simulation,
// free_simulation, and the per-cell read accessors to a non-Go caller.
//
// Every exported function recovers from a panic and converts it into
// the documented sentinel return (0 / null handle): a panic unwinding
// across the cgo boundary would corrupt the caller's stack.
package main

import "C"

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pajotg/watersim"
)

// SimulationVariables mirrors every Parameters field except Debug
// (which is not exposed to FFI callers and is always off) in a
// C-ABI-stable layout: new fields must only ever be appended, never
// inserted or reordered, so existing FFI consumers compiled against an
// older layout keep working.
type SimulationVariables struct {
	Rainfall           C.double
	Evaporation        C.double
	DT                 C.double
	Gravity            C.double
	PipeLength         C.double
	SedimentCapacity   C.double
	DissolveConstant   C.double
	DepositionConstant C.double
	MaxStep            C.double
	RainRandom         C.int
	Seed               C.longlong
	WorkerCount        C.int
}

var (
	handles    sync.Map // uint64 -> *watersim.Grid
	nextHandle atomic.Uint64
)

func toParameters(v SimulationVariables) watersim.Parameters {
	return watersim.Parameters{
		Rainfall:           float64(v.Rainfall),
		Evaporation:        float64(v.Evaporation),
		DT:                 float64(v.DT),
		Gravity:            float64(v.Gravity),
		PipeLength:         float64(v.PipeLength),
		SedimentCapacity:   float64(v.SedimentCapacity),
		DissolveConstant:   float64(v.DissolveConstant),
		DepositionConstant: float64(v.DepositionConstant),
		MaxStep:            float64(v.MaxStep),
		RainRandom:         int(v.RainRandom),
		Seed:               int64(v.Seed),
		WorkerCount:        int(v.WorkerCount),
	}
}

//export new_simulation_variables
func new_simulation_variables() SimulationVariables {
	d := watersim.DefaultParameters()
	return SimulationVariables{
		Rainfall:           C.double(d.Rainfall),
		Evaporation:        C.double(d.Evaporation),
		DT:                 C.double(d.DT),
		Gravity:            C.double(d.Gravity),
		PipeLength:         C.double(d.PipeLength),
		SedimentCapacity:   C.double(d.SedimentCapacity),
		DissolveConstant:   C.double(d.DissolveConstant),
		DepositionConstant: C.double(d.DepositionConstant),
		MaxStep:            C.double(d.MaxStep),
		RainRandom:         C.int(d.RainRandom),
		Seed:               C.longlong(d.Seed),
		WorkerCount:        C.int(d.WorkerCount),
	}
}

//export new_simulation
func new_simulation(vars SimulationVariables, sizeX, sizeY C.size_t) (handle C.ulonglong) {
	defer func() {
		if recover() != nil {
			handle = 0
		}
	}()

	params, err := watersim.NewParameters(toParameters(vars))
	if err != nil {
		return 0
	}
	grid, err := watersim.NewGrid2D(params, int(sizeX), int(sizeY), nil)
	if err != nil {
		return 0
	}

	id := nextHandle.Add(1)
	handles.Store(id, grid)
	return C.ulonglong(id)
}

//export free_simulation
func free_simulation(handle C.ulonglong) {
	defer func() { recover() }()
	handles.Delete(uint64(handle))
}

func lookup(handle C.ulonglong) (*watersim.Grid, bool) {
	v, ok := handles.Load(uint64(handle))
	if !ok {
		return nil, false
	}
	return v.(*watersim.Grid), true
}

//export step_simulation
func step_simulation(handle C.ulonglong) {
	defer func() { recover() }()
	grid, ok := lookup(handle)
	if !ok {
		return
	}
	_ = grid.Step()
}

//export get_terrain_height
func get_terrain_height(handle C.ulonglong, x, y C.size_t) (height C.double) {
	defer func() {
		if recover() != nil {
			height = 0
		}
	}()
	grid, ok := lookup(handle)
	if !ok {
		return 0
	}
	return C.double(grid.GetTerrainHeight(int(x), int(y)))
}

//export get_water_height
func get_water_height(handle C.ulonglong, x, y C.size_t) (height C.double) {
	defer func() {
		if recover() != nil {
			height = 0
		}
	}()
	grid, ok := lookup(handle)
	if !ok {
		return 0
	}
	return C.double(grid.GetWaterHeight(int(x), int(y)))
}

//export get_sediment_height
func get_sediment_height(handle C.ulonglong, x, y C.size_t) (height C.double) {
	defer func() {
		if recover() != nil {
			height = 0
		}
	}()
	grid, ok := lookup(handle)
	if !ok {
		return 0
	}
	return C.double(grid.GetSedimentHeight(int(x), int(y)))
}

//export get_grid_slice
func get_grid_slice(handle C.ulonglong, outTerrain, outWater, outSediment *C.double, capacity C.size_t) (written C.size_t) {
	defer func() {
		if recover() != nil {
			written = 0
		}
	}()
	grid, ok := lookup(handle)
	if !ok || outTerrain == nil || outWater == nil || outSediment == nil {
		return 0
	}

	snap := grid.Snapshot()
	n := len(snap)
	if int(capacity) < n {
		n = int(capacity)
	}
	terrain := unsafe.Slice((*float64)(unsafe.Pointer(outTerrain)), n)
	water := unsafe.Slice((*float64)(unsafe.Pointer(outWater)), n)
	sediment := unsafe.Slice((*float64)(unsafe.Pointer(outSediment)), n)
	for i := 0; i < n; i++ {
		terrain[i] = snap[i].TerrainHeight
		water[i] = snap[i].WaterHeight
		sediment[i] = snap[i].Sediment
	}
	return C.size_t(n)
}

//export grid_dimensions
func grid_dimensions(handle C.ulonglong, outSizeX, outSizeY *C.size_t) {
	defer func() { recover() }()
	grid, ok := lookup(handle)
	if !ok {
		*outSizeX, *outSizeY = 0, 0
		return
	}
	*outSizeX = C.size_t(grid.SizeX())
	*outSizeY = C.size_t(grid.SizeY())
}

func main() {}
