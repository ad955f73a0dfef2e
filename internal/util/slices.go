package util

// FindFirst returns the first element of s satisfying predicate.
// The boolean reports whether such an element was found.
func FindFirst[T any](s []T, predicate func(T) bool) (T, bool) {
	for _, v := range s {
		if predicate(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}
