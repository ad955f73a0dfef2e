package util

import "fmt"

// GetOne returns the single element from a map. If the map is empty, it returns an error.
// If the map has more than one element, it returns an error.
func GetOne[K comparable, T any](m map[K]T) (T, error) {
	var zero T
	switch len(m) {
	case 0:
		return zero, fmt.Errorf("no element found")
	case 1:
		for _, v := range m {
			return v, nil
		}
	}
	return zero, fmt.Errorf("multiple elements found")
}
