package events

import (
	"time"

	"github.com/asaskevich/EventBus"
)

const topicJob = "job:phase"

type Phase string

const (
	PhaseProbing     Phase = "probing"
	PhaseDownloading Phase = "downloading"
	PhasePolling     Phase = "polling"
	PhaseProcessing  Phase = "processing"
	PhaseReading     Phase = "reading"
	PhaseCompleted   Phase = "completed"
	PhaseFailed      Phase = "failed"
)

// Terminal reports whether no further phase follows.
func (p Phase) Terminal() bool { return p == PhaseCompleted || p == PhaseFailed }

type Event struct {
	JobID  string    `json:"job_id"`
	Source string    `json:"source"`
	URL    string    `json:"url"`
	Phase  Phase     `json:"phase"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// Publisher is what the pipelines need from the bus.
type Publisher interface {
	Publish(e Event)
}

type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

// Publish delivers e synchronously to every subscriber.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.bus.Publish(topicJob, e)
}

func (b *Bus) Subscribe(fn func(Event)) error {
	return b.bus.Subscribe(topicJob, fn)
}

func (b *Bus) Unsubscribe(fn func(Event)) error {
	return b.bus.Unsubscribe(topicJob, fn)
}

type nop struct{}

func (nop) Publish(Event) {}

// Discard drops every event.
var Discard Publisher = nop{}
