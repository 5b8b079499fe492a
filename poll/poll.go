// Package poll drives the monitor cycle: fetch the feed, reconcile against
// persisted state, apply the resulting transport actions, persist, sleep.
// Exactly one cycle runs at a time; cycle N+1 starts only after cycle N's
// persistence attempt completes.
package poll

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"slotwatch/pkg/schedule"
	"slotwatch/reconcile"
	"slotwatch/storage"
	"slotwatch/telegram"
)

// Fetcher produces the current slot snapshot. On failure it returns an empty
// snapshot along with the cause; the empty snapshot still drives
// reconciliation (inherited behavior, see DESIGN.md).
type Fetcher interface {
	Fetch(ctx context.Context) (schedule.Snapshot, error)
}

// Store persists the reconciliation state between cycles.
type Store interface {
	Load(ctx context.Context) (*schedule.State, error)
	Save(ctx context.Context, st *schedule.State) error
}

// Engine decides the transport actions for a fresh snapshot.
type Engine interface {
	Reconcile(prev *schedule.State, snap schedule.Snapshot, now time.Time) ([]reconcile.Action, *schedule.State)
}

// Config carries the poll cadence. Jitter is a uniform extra sleep drawn
// from [JitterMin, JitterMax] after every cycle, including failed ones.
type Config struct {
	Interval  time.Duration
	JitterMin time.Duration
	JitterMax time.Duration
}

// Monitor runs the poll loop.
type Monitor struct {
	fetcher Fetcher
	engine  Engine
	sender  telegram.Sender
	store   Store
	logger  *slog.Logger
	cfg     Config

	state *schedule.State

	mu          sync.Mutex
	lastCycleAt time.Time
}

// New creates a monitor.
func New(fetcher Fetcher, engine Engine, sender telegram.Sender, store Store, logger *slog.Logger, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.JitterMin <= 0 {
		cfg.JitterMin = time.Second
	}
	if cfg.JitterMax <= cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin + 14*time.Second
	}
	return &Monitor{
		fetcher: fetcher,
		engine:  engine,
		sender:  sender,
		store:   store,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run polls until the context is cancelled. The persisted state is loaded
// on the first cycle.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		m.RunCycle(ctx, time.Now())

		sleep := m.cfg.Interval + m.jitter()
		m.logger.Debug("Cycle complete, sleeping", "duration", sleep.String())

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("Context cancelled, stopping poll loop", "error", ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle executes exactly one fetch-reconcile-apply-persist cycle. Every
// failure inside the cycle is non-fatal: fetch failures degrade to an empty
// snapshot, failed transport actions are abandoned, and a failed save loses
// durability for this cycle only.
func (m *Monitor) RunCycle(ctx context.Context, now time.Time) {
	if m.state == nil {
		m.state = m.loadState(ctx)
	}

	snap, err := m.fetcher.Fetch(ctx)
	if err != nil {
		m.logger.Warn("Fetch failed, reconciling as empty", "error", err)
	}

	actions, next := m.engine.Reconcile(m.state, snap, now)
	if len(actions) > 0 {
		m.logger.Info("Reconciliation produced actions", "count", len(actions), "slots", snap.Total())
	}

	m.apply(ctx, actions, next)
	m.state = next

	if err := m.store.Save(ctx, next); err != nil {
		m.logger.Warn("Failed to persist state, continuing with in-memory state", "error", err)
	}

	m.mu.Lock()
	m.lastCycleAt = now
	m.mu.Unlock()
}

// loadState reads the persisted state once at startup. Both first run and a
// corrupt state file start fresh; the difference only matters for the log.
func (m *Monitor) loadState(ctx context.Context) *schedule.State {
	st, err := m.store.Load(ctx)
	switch {
	case err == nil:
		m.logger.Info("State loaded",
			"schedule_message_id", st.ScheduleMessageID,
			"no_slots_message_id", st.NoSlotsMessageID,
			"slots", st.Current.Total())
		return st
	case storage.IsNotFound(err):
		m.logger.Info("No persisted state, starting fresh")
	default:
		m.logger.Warn("Failed to load state, starting fresh", "error", err)
	}
	return schedule.NewState()
}

// apply executes actions in order, recording created message ids into the
// next state. A failed create leaves the id unset so the next cycle
// recreates the message; failed edits and deletes are logged and abandoned.
func (m *Monitor) apply(ctx context.Context, actions []reconcile.Action, next *schedule.State) {
	for _, a := range actions {
		switch a.Op {
		case reconcile.OpCreate:
			id, err := m.sender.Send(ctx, a.Text, a.Silent)
			if err != nil {
				m.logger.Warn("Create action failed", "slot", a.Slot, "error", err)
				continue
			}
			switch a.Slot {
			case reconcile.SlotSchedule:
				next.ScheduleMessageID = id
			case reconcile.SlotNoSlots:
				next.NoSlotsMessageID = id
			}
		case reconcile.OpEdit:
			if err := m.sender.Edit(ctx, a.MessageID, a.Text); err != nil {
				m.logger.Warn("Edit action failed", "slot", a.Slot, "message_id", a.MessageID, "error", err)
			}
		case reconcile.OpDelete:
			if err := m.sender.Delete(ctx, a.MessageID); err != nil {
				m.logger.Warn("Delete action failed", "slot", a.Slot, "message_id", a.MessageID, "error", err)
			}
		}
	}
}

// LastCycleAt reports when the most recent cycle ran, for the health
// endpoint.
func (m *Monitor) LastCycleAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCycleAt
}

// jitter draws a uniform extra delay so the cadence doesn't look machine-regular.
func (m *Monitor) jitter() time.Duration {
	return m.cfg.JitterMin + rand.N(m.cfg.JitterMax-m.cfg.JitterMin)
}
