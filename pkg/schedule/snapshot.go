// Package schedule defines the slot snapshot value type and the persisted
// monitor state shared by the fetcher, the reconciliation engine and storage.
package schedule

import (
	"encoding/json"
	"sort"
)

// Snapshot maps an ISO calendar date ("2006-01-02") to the set of bookable
// times of day ("15:04") observed on that date. An empty snapshot is a valid
// value meaning "no availability".
type Snapshot map[string]map[string]struct{}

// New returns an empty snapshot.
func New() Snapshot {
	return make(Snapshot)
}

// Add records a bookable time on the given date.
func (s Snapshot) Add(date, timeOfDay string) {
	times, ok := s[date]
	if !ok {
		times = make(map[string]struct{})
		s[date] = times
	}
	times[timeOfDay] = struct{}{}
}

// Has reports whether the date+time pair is present.
func (s Snapshot) Has(date, timeOfDay string) bool {
	_, ok := s[date][timeOfDay]
	return ok
}

// Total counts slots across all dates.
func (s Snapshot) Total() int {
	n := 0
	for _, times := range s {
		n += len(times)
	}
	return n
}

// Empty reports whether the snapshot holds no slots at all.
func (s Snapshot) Empty() bool {
	return s.Total() == 0
}

// Dates returns all dates in ascending calendar order. Lexicographic order is
// correct because the date format is fixed-width ISO.
func (s Snapshot) Dates() []string {
	dates := make([]string, 0, len(s))
	for d, times := range s {
		if len(times) == 0 {
			continue
		}
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Times returns the times for a date in ascending order.
func (s Snapshot) Times(date string) []string {
	times := make([]string, 0, len(s[date]))
	for t := range s[date] {
		times = append(times, t)
	}
	sort.Strings(times)
	return times
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for d, times := range s {
		set := make(map[string]struct{}, len(times))
		for t := range times {
			set[t] = struct{}{}
		}
		out[d] = set
	}
	return out
}

// Equal reports whether two snapshots hold exactly the same date+time pairs.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.Total() != other.Total() {
		return false
	}
	for d, times := range s {
		for t := range times {
			if !other.Has(d, t) {
				return false
			}
		}
	}
	return true
}

// Diff computes the per-date set difference between two snapshots. added
// holds pairs present in next but not prev, removed the reverse. Dates with
// an empty difference are omitted entirely.
func Diff(prev, next Snapshot) (added, removed Snapshot) {
	added = New()
	for d, times := range next {
		for t := range times {
			if !prev.Has(d, t) {
				added.Add(d, t)
			}
		}
	}
	removed = New()
	for d, times := range prev {
		for t := range times {
			if !next.Has(d, t) {
				removed.Add(d, t)
			}
		}
	}
	return added, removed
}

// MarshalJSON serializes as {"date": ["time", ...]} with sorted time lists,
// the wire form used by existing state files.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(s))
	for _, d := range s.Dates() {
		out[d] = s.Times(d)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the {"date": ["time", ...]} form.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	snap := New()
	for d, times := range raw {
		for _, t := range times {
			snap.Add(d, t)
		}
	}
	*s = snap
	return nil
}
