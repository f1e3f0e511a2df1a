package backoff

import "testing"

func TestSecondsFollowsTable(t *testing.T) {
	cases := []struct {
		attempt int
		want    int
	}{
		{0, 30},
		{1, 60},
		{2, 300},
		{3, 900},
		{4, 3600},
		{5, 3600},
		{100, 3600},
		{-1, 30},
	}
	for _, c := range cases {
		if got := Seconds(c.attempt); got != c.want {
			t.Errorf("Seconds(%d) = %d, want %d", c.attempt, got, c.want)
		}
	}
}

func TestDurationMatchesSeconds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		want := Seconds(attempt)
		if got := Duration(attempt).Seconds(); int(got) != want {
			t.Errorf("Duration(%d).Seconds() = %v, want %d", attempt, got, want)
		}
	}
}
