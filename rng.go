package watersim

// rainDraw returns a deterministic value in [0, r) for the given grid
// seed, step counter and flat cell index. Cell.updateRainfall treats a
// draw of 0 as the 1/RAIN_RANDOM rain event.
//
// A stateless hash keyed on (seed, step, index) gives every cell an
// independent, reproducible draw with no shared mutable state and no
// lock contention between workers. Unlike a per-worker math/rand.Rand,
// the result does not depend on which worker happens to claim which
// row, so a run is bit-identical regardless of how the atomic range
// counter is raced.
func rainDraw(seed int64, step uint64, index int, r int) int {
	if r <= 1 {
		return 0
	}
	h := splitmix64(uint64(seed)*0x9E3779B97F4A7C15 + step*0xBF58476D1CE4E5B9 + uint64(uint32(index))*0x94D049BB133111EB)
	return int(h % uint64(r))
}

// splitmix64 is a fast, well-distributed 64-bit integer hash/mix
// function (Vigna's SplitMix64 finalizer), used here purely as a
// stateless hash rather than as a generator with internal state.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}
