package scheduler

import "testing"

func TestHistoryRingBeforeFull(t *testing.T) {
	r := newHistoryRing(5)
	r.push(JobExecution{Output: "A"})
	r.push(JobExecution{Output: "B"})
	got := r.list()
	if len(got) != 2 || got[0].Output != "B" || got[1].Output != "A" {
		t.Errorf("got %+v, want [B A]", got)
	}
}

func TestHistoryRingOverwritesOldest(t *testing.T) {
	r := newHistoryRing(3)
	for i := 0; i < 5; i++ {
		r.push(JobExecution{Output: string(rune('A' + i))})
	}
	got := r.list()
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	want := []string{"E", "D", "C"}
	for i, e := range got {
		if e.Output != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Output, want[i])
		}
	}
}

func TestHistoryRingDefaultsCapacityWhenInvalid(t *testing.T) {
	r := newHistoryRing(0)
	if r.capacity != 100 {
		t.Errorf("capacity = %d, want 100", r.capacity)
	}
}
