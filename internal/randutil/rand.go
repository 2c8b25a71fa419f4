// Package randutil centralises how seeded PRNGs are built, so every call
// site that needs a replayable sequence (deck shuffles above all) derives
// it the same way from a single int64 seed.
package randutil

import rand "math/rand/v2"

// New returns a *rand.Rand whose sequence is fully determined by seed.
// rand/v2's PCG wants two 64-bit words of state; both are derived from the
// seed with a splitmix64 finalizer so that nearby seeds (0, 1, 2...) still
// produce unrelated streams.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix64(u), splitmix64(u+0x9e3779b97f4a7c15)))
}

// splitmix64 is the finalizer step of the SplitMix64 generator.
func splitmix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
