// Package mathx holds small generic numeric helpers.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. Bounds given in either order are accepted.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return max(lo, min(v, hi))
}

// Between reports whether v lies in [lo, hi], bounds in either order.
func Between[T constraints.Ordered](v, lo, hi T) bool { return Clamp(v, lo, hi) == v }
