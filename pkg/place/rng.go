package place

import "math/rand/v2"

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// deriveSeed returns an independent seed for substream i using a SplitMix64
// step, so sub-generators never share a sequence with the parent.
func deriveSeed(seed uint64, i int) uint64 {
	z := seed + uint64(i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// randomPositions draws a uniform in-bounds position for every cell.
func (r *run) randomPositions(rng *rand.Rand) ([]float64, []float64) {
	xs := make([]float64, len(r.cells))
	ys := make([]float64, len(r.cells))
	for i, c := range r.cells {
		xs[i] = rng.Float64() * max(0, r.w-c.Width)
		ys[i] = rng.Float64() * max(0, r.h-c.Height)
	}
	return xs, ys
}

// jitteredCenter places every cell near the chip center with a small seeded
// perturbation. Analytic strategies start from it so symmetric netlists do
// not stay stuck at a single point.
func (r *run) jitteredCenter(rng *rand.Rand) ([]float64, []float64) {
	xs := make([]float64, len(r.cells))
	ys := make([]float64, len(r.cells))
	for i, c := range r.cells {
		xs[i] = r.w/2 - c.Width/2 + (rng.Float64()-0.5)*0.1*r.w
		ys[i] = r.h/2 - c.Height/2 + (rng.Float64()-0.5)*0.1*r.h
	}
	return xs, ys
}
