package spreading

import "math/rand/v2"

// Source supplies uniform variates in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// seedStream decorrelates the second PCG word from the seed.
const seedStream = 0x9e3779b97f4a7c15

// NewSource returns an explicitly seeded PCG generator. Two sources built
// from the same seed produce identical sequences.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedStream))
}
