package generator

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces identifiers, such as clip IDs and flow instance IDs.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator produces random UUIDv4 strings. It is the default
// everywhere an ID generator is optional.
type UUIDV4Generator struct{}

func (g *UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return id.String(), nil
}

// Constant returns the same ID every time. Rendered custom IDs become
// predictable, which is what tests of interaction flows want.
type Constant string

func (c Constant) Next() (string, error) {
	return string(c), nil
}

// Sequence produces Prefix-1, Prefix-2, ... and is safe for concurrent use.
type Sequence struct {
	Prefix string
	n      atomic.Uint64
}

func (s *Sequence) Next() (string, error) {
	return fmt.Sprintf("%s-%d", s.Prefix, s.n.Add(1)), nil
}

var (
	_ Generator[string] = (*UUIDV4Generator)(nil)
	_ Generator[string] = Constant("")
	_ Generator[string] = (*Sequence)(nil)
)
