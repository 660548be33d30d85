// Package bitint provides allocation-free power-of-two helpers used for
// transform and buffer sizing.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Sizes below 1
// return 1.
//
//	Input  Output
//	5      8
//	8      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	// size-1 keeps exact powers of two from doubling.
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has a single bit set, so clearing its lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
