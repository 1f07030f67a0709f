// Package terrain builds Initializer callbacks for common starting
// heightfields (flat plains, bowls, islands, Perlin noise), handed to
// watersim.Grid.ApplyInitializer before the first step.
package terrain

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Initializer matches watersim.Initializer without importing the root
// package, avoiding an import cycle between watersim and terrain.
type Initializer func(x, y int) (terrain, water, sediment float64)

// Flat returns every cell at the given terrain height, dry.
func Flat(height float64) Initializer {
	return func(x, y int) (float64, float64, float64) {
		return height, 0, 0
	}
}

// Bowl depresses the terrain toward the center of a sizeX×sizeY grid,
// rising to rimHeight at the outer edge and reaching depth below it at
// the center: a basin that collects rainfall rather than draining it.
// Distance is measured against the center-to-nearest-edge radius and
// capped at 1, so every edge cell sits at rimHeight.
func Bowl(sizeX, sizeY int, depth, rimHeight float64) Initializer {
	cx := float64(sizeX-1) / 2
	cy := float64(sizeY-1) / 2
	maxDist := math.Min(cx, cy)
	if maxDist <= 0 {
		maxDist = math.Max(cx, cy)
	}
	return func(x, y int) (float64, float64, float64) {
		if maxDist <= 0 {
			return rimHeight, 0, 0
		}
		dist := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
		if dist > 1 {
			dist = 1
		}
		return rimHeight - depth*(1-dist), 0, 0
	}
}

// Island raises the terrain toward the center of a sizeX×sizeY grid,
// falling off to 0 at the edge with the given falloff exponent (1 is
// linear, >1 gives a steeper plateau and a sharper shoreline). As in
// Bowl, distance is relative to the nearest edge, so every edge cell is 0.
func Island(sizeX, sizeY int, peakHeight, falloff float64) Initializer {
	cx := float64(sizeX-1) / 2
	cy := float64(sizeY-1) / 2
	maxDist := math.Min(cx, cy)
	if maxDist <= 0 {
		maxDist = math.Max(cx, cy)
	}
	return func(x, y int) (float64, float64, float64) {
		if maxDist <= 0 {
			return peakHeight, 0, 0
		}
		dist := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
		if dist > 1 {
			dist = 1
		}
		return peakHeight * math.Pow(1-dist, falloff), 0, 0
	}
}

// Noise builds a heightfield from 2D Perlin noise. amplitude scales the
// [-1, 1] noise output to a terrain height range; frequency scales grid
// coordinates into noise space (smaller values give smoother,
// larger-scale terrain).
func Noise(seed int64, amplitude, frequency float64) Initializer {
	p := perlin.NewPerlin(2, 2, 3, seed)
	return func(x, y int) (float64, float64, float64) {
		n := p.Noise2D(float64(x)*frequency, float64(y)*frequency)
		return amplitude * n, 0, 0
	}
}

// SingleSpike returns flat terrain except for one cell at (spikeX,
// spikeY), which is raised by height above the rest. Useful for
// watching slope relaxation spread a column of material outward.
func SingleSpike(spikeX, spikeY int, base, height float64) Initializer {
	return func(x, y int) (float64, float64, float64) {
		if x == spikeX && y == spikeY {
			return base + height, 0, 0
		}
		return base, 0, 0
	}
}
