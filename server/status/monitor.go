package status

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/marcopiovanello/trackdl/server/internal/events"
)

// Slow websocket clients lose events past this backlog instead of stalling
// the publishing request.
const clientBuffer = 32

type Snapshot struct {
	Active    int            `json:"active"`
	Completed int64          `json:"completed"`
	Failed    int64          `json:"failed"`
	Jobs      []events.Event `json:"jobs"`
}

// Monitor is the single bus subscriber. It keeps the last event of every
// running job and fans events out to watchers.
type Monitor struct {
	mu        sync.Mutex
	active    map[string]events.Event
	completed int64
	failed    int64
	watchers  map[chan events.Event]struct{}

	bus     *events.Bus
	handler func(events.Event)
	logger  *slog.Logger
}

func NewMonitor(bus *events.Bus, logger *slog.Logger) *Monitor {
	m := &Monitor{
		active:   make(map[string]events.Event),
		watchers: make(map[chan events.Event]struct{}),
		bus:      bus,
		logger:   logger,
	}
	m.handler = m.handle
	return m
}

func (m *Monitor) Start() error {
	return m.bus.Subscribe(m.handler)
}

// Stop detaches from the bus and closes every watcher channel.
func (m *Monitor) Stop() error {
	err := m.bus.Unsubscribe(m.handler)

	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.watchers {
		close(ch)
		delete(m.watchers, ch)
	}

	return err
}

func (m *Monitor) handle(e events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Phase {
	case events.PhaseCompleted:
		m.completed++
		delete(m.active, e.JobID)
	case events.PhaseFailed:
		m.failed++
		delete(m.active, e.JobID)
	default:
		m.active[e.JobID] = e
	}

	for ch := range m.watchers {
		select {
		case ch <- e:
		default:
			m.logger.Debug("dropping event for slow watcher", slog.String("job", e.JobID))
		}
	}
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]events.Event, 0, len(m.active))
	for _, e := range m.active {
		jobs = append(jobs, e)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Time.Before(jobs[j].Time) })

	return Snapshot{
		Active:    len(m.active),
		Completed: m.completed,
		Failed:    m.failed,
		Jobs:      jobs,
	}
}

// Watch registers a watcher. The channel is closed by the returned cancel
// func or by Stop, whichever comes first.
func (m *Monitor) Watch() (<-chan events.Event, func()) {
	ch := make(chan events.Event, clientBuffer)

	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[ch]; ok {
			delete(m.watchers, ch)
			close(ch)
		}
	}

	return ch, cancel
}

func (m *Monitor) watching() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}
