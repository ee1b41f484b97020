package seeker

import "math"

// valueNoise is smooth 1D lattice noise in [-1, 1]. The same seed and x
// always give the same value.
func valueNoise(x float64, seed uint64) float64 {
	i := math.Floor(x)
	f := x - i
	a := lattice(int64(i), seed)
	b := lattice(int64(i)+1, seed)
	u := f * f * (3 - 2*f)
	return a + (b-a)*u
}

// lattice hashes an integer coordinate to [-1, 1) with a splitmix64 finaliser.
func lattice(i int64, seed uint64) float64 {
	h := uint64(i)*0x9e3779b97f4a7c15 ^ seed
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return float64(h>>11)/float64(1<<53)*2 - 1
}
