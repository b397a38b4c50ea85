package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/marcopiovanello/trackdl/server/internal/events"
	"github.com/marcopiovanello/trackdl/server/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonitor(t *testing.T) (*Monitor, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	m := NewMonitor(bus, logging.Discard())
	require.NoError(t, m.Start())
	return m, bus
}

func TestMonitorCounts(t *testing.T) {
	m, bus := newMonitor(t)
	defer m.Stop()

	bus.Publish(events.Event{JobID: "a", Phase: events.PhaseProbing})
	bus.Publish(events.Event{JobID: "b", Phase: events.PhaseDownloading})
	bus.Publish(events.Event{JobID: "a", Phase: events.PhasePolling})

	s := m.Snapshot()
	assert.Equal(t, 2, s.Active)
	require.Len(t, s.Jobs, 2)

	bus.Publish(events.Event{JobID: "a", Phase: events.PhaseCompleted})
	bus.Publish(events.Event{JobID: "b", Phase: events.PhaseFailed, Error: "boom"})

	s = m.Snapshot()
	assert.Equal(t, 0, s.Active)
	assert.Equal(t, int64(1), s.Completed)
	assert.Equal(t, int64(1), s.Failed)
	assert.Empty(t, s.Jobs)
}

func TestMonitorStopClosesWatchers(t *testing.T) {
	m, bus := newMonitor(t)

	ch, cancel := m.Watch()
	bus.Publish(events.Event{JobID: "a", Phase: events.PhaseProbing})
	assert.Equal(t, events.PhaseProbing, (<-ch).Phase)

	require.NoError(t, m.Stop())
	_, ok := <-ch
	assert.False(t, ok)

	// cancelling after Stop must not double close
	cancel()

	bus.Publish(events.Event{JobID: "b", Phase: events.PhaseProbing})
	assert.Equal(t, 0, m.Snapshot().Active, "stopped monitor no longer listens")
}

func TestMonitorDropsForSlowWatcher(t *testing.T) {
	m, bus := newMonitor(t)
	defer m.Stop()

	_, cancel := m.Watch()
	defer cancel()

	for i := 0; i < clientBuffer*2; i++ {
		bus.Publish(events.Event{JobID: "a", Phase: events.PhasePolling})
	}
	assert.Equal(t, 1, m.Snapshot().Active)
}

func TestStatusEndpoint(t *testing.T) {
	m, bus := newMonitor(t)
	defer m.Stop()

	bus.Publish(events.Event{JobID: "a", Phase: events.PhaseCompleted})

	r := chi.NewRouter()
	r.Route("/status", ApplyRouter(m, logging.Discard()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var s Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, int64(1), s.Completed)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	m, bus := newMonitor(t)
	defer m.Stop()

	r := chi.NewRouter()
	r.Route("/status", ApplyRouter(m, logging.Discard()))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/status/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return m.watching() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(events.Event{JobID: "a", Source: "yandex-music", Phase: events.PhaseDownloading})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e events.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, "a", e.JobID)
	assert.Equal(t, events.PhaseDownloading, e.Phase)

	conn.Close()
	require.Eventually(t, func() bool { return m.watching() == 0 }, time.Second, 5*time.Millisecond)
}
