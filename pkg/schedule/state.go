package schedule

import "time"

// State is the sole persisted entity: the two live message slots, the banner
// and last-seen timestamps, and the snapshot from the last completed cycle.
// JSON field names match the previous deployment's state.json so an existing
// file loads unchanged. Absent message ids are 0, absent texts "", absent
// timestamps null.
type State struct {
	ScheduleMessageID int64      `json:"message_id_schedule,omitempty"`
	ScheduleText      string     `json:"old_schedule_text,omitempty"`
	NoSlotsMessageID  int64      `json:"message_id_no_slots,omitempty"`
	NoSlotsText       string     `json:"old_no_slots_text,omitempty"`
	BannerStartedAt   *time.Time `json:"time_of_new_slots,omitempty"`
	LastNonEmptyAt    *time.Time `json:"last_time_slots_found,omitempty"`
	Current           Snapshot   `json:"current_slots"`
}

// NewState returns the empty first-run state.
func NewState() *State {
	return &State{Current: New()}
}

// Clone returns a deep copy. The reconciliation engine mutates a clone so
// the caller's state stays untouched until the cycle commits.
func (s *State) Clone() *State {
	out := *s
	if s.BannerStartedAt != nil {
		t := *s.BannerStartedAt
		out.BannerStartedAt = &t
	}
	if s.LastNonEmptyAt != nil {
		t := *s.LastNonEmptyAt
		out.LastNonEmptyAt = &t
	}
	out.Current = s.Current.Clone()
	return &out
}

// Normalize fills nil maps after JSON decoding so callers never see a nil
// snapshot.
func (s *State) Normalize() {
	if s.Current == nil {
		s.Current = New()
	}
}
