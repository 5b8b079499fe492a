package schedule

import (
	"encoding/json"
	"testing"
)

func snapshotOf(pairs map[string][]string) Snapshot {
	s := New()
	for d, times := range pairs {
		for _, t := range times {
			s.Add(d, t)
		}
	}
	return s
}

// TestDiff verifies added and removed partition exactly the per-date
// symmetric difference.
func TestDiff(t *testing.T) {
	tests := []struct {
		name        string
		prev        map[string][]string
		next        map[string][]string
		wantAdded   map[string][]string
		wantRemoved map[string][]string
	}{
		{
			name:        "both empty",
			prev:        nil,
			next:        nil,
			wantAdded:   nil,
			wantRemoved: nil,
		},
		{
			name:        "all new",
			prev:        nil,
			next:        map[string][]string{"2025-02-01": {"10:00", "11:00"}},
			wantAdded:   map[string][]string{"2025-02-01": {"10:00", "11:00"}},
			wantRemoved: nil,
		},
		{
			name:        "all gone",
			prev:        map[string][]string{"2025-02-01": {"10:00"}},
			next:        nil,
			wantAdded:   nil,
			wantRemoved: map[string][]string{"2025-02-01": {"10:00"}},
		},
		{
			name: "mixed add and remove on one date",
			prev: map[string][]string{"2025-02-01": {"10:00", "11:00"}},
			next: map[string][]string{"2025-02-01": {"11:00", "12:00"}},
			wantAdded: map[string][]string{
				"2025-02-01": {"12:00"},
			},
			wantRemoved: map[string][]string{
				"2025-02-01": {"10:00"},
			},
		},
		{
			name: "date replaced by another date",
			prev: map[string][]string{"2025-02-01": {"10:00"}},
			next: map[string][]string{"2025-02-02": {"10:00"}},
			wantAdded: map[string][]string{
				"2025-02-02": {"10:00"},
			},
			wantRemoved: map[string][]string{
				"2025-02-01": {"10:00"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := Diff(snapshotOf(tt.prev), snapshotOf(tt.next))

			if !added.Equal(snapshotOf(tt.wantAdded)) {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
			if !removed.Equal(snapshotOf(tt.wantRemoved)) {
				t.Errorf("removed = %v, want %v", removed, tt.wantRemoved)
			}
		})
	}
}

// TestDiffIdentity verifies diff(A, A) is empty for a non-trivial snapshot.
func TestDiffIdentity(t *testing.T) {
	a := snapshotOf(map[string][]string{
		"2025-02-01": {"10:00", "11:30"},
		"2025-02-03": {"09:15"},
	})

	added, removed := Diff(a, a)
	if !added.Empty() || !removed.Empty() {
		t.Errorf("Diff(A, A) = (%v, %v), want both empty", added, removed)
	}
}

func TestDatesAndTimesSorted(t *testing.T) {
	s := New()
	s.Add("2025-02-03", "14:00")
	s.Add("2025-02-01", "11:30")
	s.Add("2025-02-01", "09:00")
	s.Add("2025-02-02", "08:45")

	dates := s.Dates()
	want := []string{"2025-02-01", "2025-02-02", "2025-02-03"}
	for i, d := range want {
		if dates[i] != d {
			t.Fatalf("Dates() = %v, want %v", dates, want)
		}
	}

	times := s.Times("2025-02-01")
	if times[0] != "09:00" || times[1] != "11:30" {
		t.Errorf("Times() = %v, want ascending order", times)
	}
}

func TestEqual(t *testing.T) {
	a := snapshotOf(map[string][]string{"2025-02-01": {"10:00"}})
	b := snapshotOf(map[string][]string{"2025-02-01": {"10:00"}})
	c := snapshotOf(map[string][]string{"2025-02-01": {"10:00", "11:00"}})

	if !a.Equal(b) {
		t.Error("identical snapshots should be equal")
	}
	if a.Equal(c) {
		t.Error("snapshots with different totals should not be equal")
	}
	if !New().Equal(New()) {
		t.Error("two empty snapshots should be equal")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := snapshotOf(map[string][]string{"2025-02-01": {"10:00"}})
	b := a.Clone()
	b.Add("2025-02-01", "11:00")

	if a.Has("2025-02-01", "11:00") {
		t.Error("mutating the clone leaked into the original")
	}
}

// TestSnapshotJSON verifies the wire form stays {"date": [sorted times]}.
func TestSnapshotJSON(t *testing.T) {
	s := New()
	s.Add("2025-02-01", "11:30")
	s.Add("2025-02-01", "09:00")

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := `{"2025-02-01":["09:00","11:30"]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(s) {
		t.Errorf("roundtrip = %v, want %v", back, s)
	}
}
