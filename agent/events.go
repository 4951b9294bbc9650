package agent

import "time"

// Event types recorded into the per-agent log.
const (
	EventBehaviorChanged = "behavior_changed"
	EventTargetAcquired  = "target_acquired"
	EventTargetLost      = "target_lost"
	EventDamageTaken     = "damage_taken"
	EventRetreatStarted  = "retreat_started"
	EventRetreatComplete = "retreat_complete"
	EventLastStand       = "last_stand"
)

// Event is one notable transition in an agent's life. The core only
// writes these; analytics and outcome-prediction queries read them.
type Event struct {
	Type string
	At   time.Time
	Data map[string]any
}

// EventLog is a bounded ring of recent events. Oldest entries are
// evicted on overflow.
type EventLog struct {
	entries []Event
	head    int
	count   int
}

// NewEventLog creates a log holding up to capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}
	return &EventLog{entries: make([]Event, capacity)}
}

// Record appends an event, evicting the oldest when full.
func (l *EventLog) Record(eventType string, at time.Time, data map[string]any) {
	idx := (l.head + l.count) % len(l.entries)
	l.entries[idx] = Event{Type: eventType, At: at, Data: data}
	if l.count < len(l.entries) {
		l.count++
	} else {
		l.head = (l.head + 1) % len(l.entries)
	}
}

// Len returns the number of buffered events.
func (l *EventLog) Len() int {
	return l.count
}

// All returns the buffered events, oldest first.
func (l *EventLog) All() []Event {
	out := make([]Event, 0, l.count)
	for i := 0; i < l.count; i++ {
		out = append(out, l.entries[(l.head+i)%len(l.entries)])
	}
	return out
}

// CountType returns how many buffered events have the given type.
func (l *EventLog) CountType(eventType string) int {
	n := 0
	for i := 0; i < l.count; i++ {
		if l.entries[(l.head+i)%len(l.entries)].Type == eventType {
			n++
		}
	}
	return n
}
