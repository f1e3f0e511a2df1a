package scheduler

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/robfig/cron/v3"
)

// ValidateCronExpr rejects malformed five-field cron expressions at
// registration time, per the spec's fail-fast requirement. A separate
// library (robfig/cron) is used for validation than for next-run
// computation (gronx) because its standard parser is a stricter, widely
// trusted five-field grammar check.
func ValidateCronExpr(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextCronRun computes the next time expr fires strictly after `after`.
func NextCronRun(expr string, after time.Time) (time.Time, error) {
	g := gronx.New()
	next, err := g.NextTickAfter(expr, after, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: next run for %q: %w", expr, err)
	}
	return next, nil
}
