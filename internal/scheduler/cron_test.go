package scheduler

import (
	"testing"
	"time"
)

// TestNextCronRunIsStrictlyAfter covers spec's cron property: for any valid
// expression and tick time t, the computed next_run is strictly after t.
func TestNextCronRunIsStrictlyAfter(t *testing.T) {
	exprs := []string{"* * * * *", "*/5 * * * *", "0 0 * * *", "30 9 * * 1-5"}
	after := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	for _, expr := range exprs {
		next, err := NextCronRun(expr, after)
		if err != nil {
			t.Fatalf("NextCronRun(%q): %v", expr, err)
		}
		if !next.After(after) {
			t.Errorf("NextCronRun(%q, %v) = %v, want strictly after", expr, after, next)
		}
	}
}

func TestNextCronRunAdvancesMonotonically(t *testing.T) {
	expr := "*/5 * * * *"
	after := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	first, err := NextCronRun(expr, after)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NextCronRun(expr, first)
	if err != nil {
		t.Fatal(err)
	}
	if !second.After(first) {
		t.Errorf("second run %v not after first %v", second, first)
	}
}

func TestValidateCronExprRejectsMalformed(t *testing.T) {
	bad := []string{"", "not a cron", "60 * * * *", "* * * *"}
	for _, expr := range bad {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("ValidateCronExpr(%q) = nil, want error", expr)
		}
	}
}

func TestValidateCronExprAcceptsStandardFiveField(t *testing.T) {
	good := []string{"* * * * *", "*/30 * * * *", "0 9 * * 1-5"}
	for _, expr := range good {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("ValidateCronExpr(%q) = %v, want nil", expr, err)
		}
	}
}
