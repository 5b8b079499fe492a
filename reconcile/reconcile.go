// Package reconcile decides which chat messages must be created, edited or
// deleted to bring the channel in line with a freshly fetched slot snapshot.
//
// The engine is a pure state machine: it reads the previously persisted
// state and the new snapshot, and returns an ordered action list plus the
// next state. It performs no I/O and never reads the clock; the caller
// executes the actions and persists the state.
package reconcile

import (
	"log/slog"
	"time"

	"slotwatch/pkg/schedule"
)

// Op identifies a transport operation.
type Op string

const (
	OpCreate Op = "create"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
)

// Slot names one of the two mutable message slots in the channel.
type Slot string

const (
	SlotSchedule Slot = "schedule"
	SlotNoSlots  Slot = "no_slots"
)

// Action is a single transport operation. MessageID is set for edits and
// deletes; creates leave it 0 and the caller records the id returned by the
// transport into the next state.
type Action struct {
	Op        Op
	Slot      Slot
	MessageID int64
	Text      string
	Silent    bool
}

// Renderer builds the message texts the engine compares and emits.
type Renderer interface {
	Schedule(snap schedule.Snapshot, banner bool) string
	NoSlots(lastNonEmptyAt *time.Time) string
}

// Engine is the reconciliation state machine.
type Engine struct {
	render Renderer
	logger *slog.Logger
}

// New creates an engine.
func New(render Renderer, logger *slog.Logger) *Engine {
	return &Engine{
		render: render,
		logger: logger,
	}
}

// Reconcile compares the new snapshot against the persisted state and
// returns the transport actions required this cycle, in execution order,
// together with the next state. Calling it again with the returned state and
// the same snapshot and now yields no actions.
func (e *Engine) Reconcile(prev *schedule.State, snap schedule.Snapshot, now time.Time) ([]Action, *schedule.State) {
	next := prev.Clone()
	var actions []Action

	// Empty feed: collapse to the single no-slots message. lastNonEmptyAt
	// is a monotone "last seen" marker and is never cleared here; the
	// banner timestamp is irrelevant while empty and left untouched.
	if snap.Empty() {
		if next.ScheduleMessageID != 0 {
			actions = append(actions, Action{Op: OpDelete, Slot: SlotSchedule, MessageID: next.ScheduleMessageID})
			next.ScheduleMessageID = 0
			next.ScheduleText = ""
		}

		text := e.render.NoSlots(next.LastNonEmptyAt)
		switch {
		case next.NoSlotsMessageID == 0:
			actions = append(actions, Action{Op: OpCreate, Slot: SlotNoSlots, Text: text})
			next.NoSlotsText = text
		case next.NoSlotsText != text:
			actions = append(actions, Action{Op: OpEdit, Slot: SlotNoSlots, MessageID: next.NoSlotsMessageID, Text: text})
			next.NoSlotsText = text
		}

		next.Current = schedule.New()
		e.logger.Debug("Reconciled empty snapshot", "actions", len(actions))
		return actions, next
	}

	// wasEmpty controls notification silencing below: only the
	// zero-to-nonzero transition notifies loudly.
	wasEmpty := prev.Current.Empty()
	if wasEmpty {
		t := now
		next.LastNonEmptyAt = &t
	}

	if next.NoSlotsMessageID != 0 {
		actions = append(actions, Action{Op: OpDelete, Slot: SlotNoSlots, MessageID: next.NoSlotsMessageID})
		next.NoSlotsMessageID = 0
		next.NoSlotsText = ""
	}

	added, removed := schedule.Diff(prev.Current, snap)
	e.logger.Debug("Snapshot diff computed",
		"added", added.Total(),
		"removed", removed.Total(),
		"total", snap.Total())

	if !added.Empty() {
		// Genuinely new slots: the schedule message is recreated, never
		// edited, so the notification fires (edits do not re-notify).
		if next.ScheduleMessageID != 0 {
			actions = append(actions, Action{Op: OpDelete, Slot: SlotSchedule, MessageID: next.ScheduleMessageID})
			next.ScheduleMessageID = 0
			next.ScheduleText = ""
		}

		t := now
		next.BannerStartedAt = &t

		text := e.render.Schedule(snap, true)
		actions = append(actions, Action{Op: OpCreate, Slot: SlotSchedule, Text: text, Silent: !wasEmpty})
		next.ScheduleText = text

		last := now
		next.LastNonEmptyAt = &last
	} else {
		// Only removals or no change: prefer an in-place edit.
		banner := ShowBanner(snap, next.BannerStartedAt, now)
		text := e.render.Schedule(snap, banner)

		if next.ScheduleMessageID != 0 {
			if next.ScheduleText != text {
				actions = append(actions, Action{Op: OpEdit, Slot: SlotSchedule, MessageID: next.ScheduleMessageID, Text: text})
				next.ScheduleText = text
			}
		} else {
			// No live schedule message, e.g. a create failed last cycle
			// or the state file predates this process. Recreate quietly.
			actions = append(actions, Action{Op: OpCreate, Slot: SlotSchedule, Text: text, Silent: true})
			next.ScheduleText = text
		}

		if !banner {
			next.BannerStartedAt = nil
		}
	}

	next.Current = snap.Clone()
	return actions, next
}
