package utils

import "math"

func MaxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// AddInt64 returns a+b and whether the sum overflowed.
func AddInt64(a, b int64) (int64, bool) {
	c := a + b
	return c, (b > 0 && c < a) || (b < 0 && c > a)
}

// SaturatingAddInt64 returns a+b clamped to the int64 range.
func SaturatingAddInt64(a, b int64) int64 {
	c, overflow := AddInt64(a, b)
	if !overflow {
		return c
	}
	if b > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}
