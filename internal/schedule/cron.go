package schedule

import (
	"fmt"
	"time"

	"github.com/hashicorp/cronexpr"
)

// Schedule is a parsed cron expression. Times are computed in UTC.
type Schedule struct {
	spec string
	expr *cronexpr.Expression
}

func Parse(cron string) (*Schedule, error) {
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return &Schedule{spec: cron, expr: expr}, nil
}

func (s *Schedule) String() string {
	return s.spec
}

// Next returns the first run strictly after after, or the zero time if the
// expression never fires again.
func (s *Schedule) Next(after time.Time) time.Time {
	return s.expr.Next(after.UTC())
}

// NextN returns up to n runs after after.
func (s *Schedule) NextN(after time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	return s.expr.NextN(after.UTC(), uint(n))
}

// NextRunTimes returns the next n runs of a cron expression from now.
func NextRunTimes(cron string, n int) ([]time.Time, error) {
	return NextRunTimesAfter(cron, time.Now(), n)
}

// NextRunTimesAfter returns the next n runs after a specific time.
// It returns an error if the cron expression is invalid or if n is less than 1.
func NextRunTimesAfter(cron string, after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be greater than 0")
	}
	s, err := Parse(cron)
	if err != nil {
		return nil, err
	}
	return s.NextN(after, n), nil
}

func ValidateCron(cron string) error {
	_, err := Parse(cron)
	return err
}
