package watersim

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"runtime"
)

// Parameters holds the immutable tunables for one simulation run. A value
// is constructed once via NewParameters (or DefaultParameters) and shared
// read-only by every phase and every worker.
type Parameters struct {
	Rainfall           float64 `json:"rainfall"`
	Evaporation        float64 `json:"evaporation"`
	DT                 float64 `json:"dt"`
	Gravity            float64 `json:"gravity"`
	PipeLength         float64 `json:"pipe_length"`
	SedimentCapacity   float64 `json:"sediment_capacity"`
	DissolveConstant   float64 `json:"dissolve_constant"`
	DepositionConstant float64 `json:"deposition_constant"`
	MaxStep            float64 `json:"max_step"`
	RainRandom         int     `json:"rain_random"`

	// Seed drives the deterministic per-cell rainfall draw (see rng.go).
	Seed int64 `json:"seed"`
	// WorkerCount is the fixed worker-pool size for each phase. 0 means
	// "use runtime.GOMAXPROCS(0)".
	WorkerCount int `json:"worker_count"`
	// Debug enables a NaN/Inf scan after every phase. Left off, Step
	// performs no scan.
	Debug bool `json:"debug"`
}

// DefaultParameters returns a tunable set that produces stable,
// visually plausible erosion: rainfall 0.4, evaporation 0.05, DT 0.1,
// gravity 9.81, pipe length 1.0, sediment capacity 0.15, dissolve
// constant 0.025, deposition constant 10.0, max step tan(35°), rain
// randomness 10.
func DefaultParameters() *Parameters {
	return &Parameters{
		Rainfall:           0.4,
		Evaporation:        0.05,
		DT:                 0.1,
		Gravity:            9.81,
		PipeLength:         1.0,
		SedimentCapacity:   0.15,
		DissolveConstant:   0.025,
		DepositionConstant: 10.0,
		MaxStep:            math.Tan(35 * math.Pi / 180),
		RainRandom:         10,
		Seed:               1,
		WorkerCount:        0,
		Debug:              false,
	}
}

// NewParameters validates p and returns it, or a descriptive error if a
// precondition is violated. Construction is the only place these are
// checked; once a Grid is built from a validated Parameters, Step never
// re-validates them.
func NewParameters(p Parameters) (*Parameters, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports the first precondition violation found, or nil.
func (p *Parameters) Validate() error {
	switch {
	case p.DT <= 0:
		return fmt.Errorf("watersim: DT must be > 0, got %v", p.DT)
	case p.PipeLength <= 0:
		return fmt.Errorf("watersim: PIPE_LENGTH must be > 0, got %v", p.PipeLength)
	case p.RainRandom < 1:
		return fmt.Errorf("watersim: RAIN_RANDOM must be >= 1, got %v", p.RainRandom)
	case p.Evaporation*p.DT > 1:
		return fmt.Errorf("watersim: EVAPORATION * DT must be <= 1, got %v", p.Evaporation*p.DT)
	case p.Rainfall < 0:
		return fmt.Errorf("watersim: RAINFALL must be >= 0, got %v", p.Rainfall)
	case p.SedimentCapacity < 0:
		return fmt.Errorf("watersim: SEDIMENT_CAPACITY must be >= 0, got %v", p.SedimentCapacity)
	case p.MaxStep < 0:
		return fmt.Errorf("watersim: MAX_STEP must be >= 0, got %v", p.MaxStep)
	}
	return nil
}

// resolvedWorkerCount returns WorkerCount if set, else GOMAXPROCS(0),
// floored at 1.
func (p *Parameters) resolvedWorkerCount() int {
	if p.WorkerCount > 0 {
		return p.WorkerCount
	}
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// LoadParametersFromFile reads a JSON-encoded Parameters from path,
// starting from DefaultParameters so any field the file omits keeps its
// default value.
func LoadParametersFromFile(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watersim: reading parameters file: %w", err)
	}
	p := *DefaultParameters()
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("watersim: parsing parameters file: %w", err)
	}
	return NewParameters(p)
}
