package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benjamin1108/reinvent-insight/internal/events"
)

// Common errors returned by the Manager
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrManagerClosed = errors.New("task manager is closed")
)

// RunFunc executes one task. Implementations write events into ch and state
// into rec, publish exactly one terminal event, and close ch before
// returning. The context is the task's cooperative cancellation token.
type RunFunc func(ctx context.Context, rec *Record, ch *Channel)

// ManagerConfig holds configuration for the task manager.
type ManagerConfig struct {
	// ChannelCapacity is the per-subscriber event buffer size
	ChannelCapacity int

	// Retention is how long a terminal task stays attachable before
	// eviction, tolerating client reconnect races
	Retention time.Duration

	// SweepInterval is how often the eviction check runs
	SweepInterval time.Duration
}

// DefaultManagerConfig returns a ManagerConfig with reasonable defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ChannelCapacity: 100,
		Retention:       5 * time.Minute,
		SweepInterval:   time.Minute,
	}
}

// entry ties one task's record, channel and cancellation together.
type entry struct {
	record     *Record
	channel    *Channel
	cancel     context.CancelFunc
	terminalAt time.Time
}

// Manager is the process-wide registry of running and recently finished
// tasks. It creates a Record and Channel per submission, launches the run
// function as an independent goroutine, serves lookups for reattachment,
// and evicts terminal tasks after the retention window.
type Manager struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]*entry
	closed bool

	config ManagerConfig
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager and starts its eviction sweeper.
func NewManager(config ManagerConfig, logger *slog.Logger) *Manager {
	if config.ChannelCapacity <= 0 {
		config.ChannelCapacity = 100
	}
	if config.Retention <= 0 {
		config.Retention = 5 * time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		tasks:  make(map[uuid.UUID]*entry),
		config: config,
		logger: logger.With("component", "task_manager"),
		ctx:    ctx,
		cancel: cancel,
	}

	m.wg.Add(1)
	go m.sweeper()

	return m
}

// Submit creates a pending task and schedules run as an independent
// goroutine. It returns the task identity immediately; it never blocks on
// pipeline work.
func (m *Manager) Submit(taskType string, run RunFunc) (uuid.UUID, error) {
	rec := NewRecord(taskType)
	ch := NewChannel(m.config.ChannelCapacity)
	taskCtx, taskCancel := context.WithCancel(m.ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		taskCancel()
		return uuid.Nil, ErrManagerClosed
	}
	m.tasks[rec.ID()] = &entry{record: rec, channel: ch, cancel: taskCancel}
	m.mu.Unlock()

	m.logger.Info("task submitted", "task_id", rec.ID(), "task_type", taskType)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer taskCancel()

		run(taskCtx, rec, ch)

		// The engine owns terminal transitions; if it returned without one,
		// the task must not be left in limbo.
		if !rec.Status().Terminal() {
			m.logger.Error("task run returned without terminal state", "task_id", rec.ID())
			rec.Fail("internal error: task ended without result")
			_ = ch.Publish(events.NewError("internal error: task ended without result"))
			ch.Close()
		}

		m.mu.Lock()
		if e, ok := m.tasks[rec.ID()]; ok {
			e.terminalAt = time.Now()
		}
		m.mu.Unlock()

		m.logger.Info("task finished",
			"task_id", rec.ID(),
			"status", rec.Status())
	}()

	return rec.ID(), nil
}

// Attach returns an event stream for the task: full history replay first,
// then live events, ending when the task's channel closes. Returns
// ErrTaskNotFound for unknown or already evicted identities.
func (m *Manager) Attach(ctx context.Context, id uuid.UUID) (<-chan events.Event, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	return e.channel.Subscribe(ctx), nil
}

// Status returns a snapshot of the task's current state.
func (m *Manager) Status(id uuid.UUID) (Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	return e.record.Snapshot(), nil
}

// Cancel signals the task's run function to stop scheduling further work.
// In-flight provider calls are allowed to finish; the task ends in the
// error state with a cancellation message. Cancelling a terminal task is a
// no-op.
func (m *Manager) Cancel(id uuid.UUID) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	m.logger.Info("task cancel requested", "task_id", id)
	e.cancel()
	return nil
}

// Close cancels all running tasks, stops the sweeper and waits for task
// goroutines to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	m.logger.Info("task manager closed")
}

func (m *Manager) lookup(id uuid.UUID) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return e, nil
}

// sweeper periodically evicts tasks that have been terminal for longer
// than the retention window.
func (m *Manager) sweeper() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	cutoff := time.Now().Add(-m.config.Retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.tasks {
		if !e.terminalAt.IsZero() && e.terminalAt.Before(cutoff) {
			delete(m.tasks, id)
			m.logger.Debug("evicted terminal task", "task_id", id)
		}
	}
}
