package events

// Event represents a structured state change emitted by the marketplace.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for components that expose events optionally.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Collector records every emitted event in order. Intended for tests and for
// hosts that gather transition events into a receipt.
type Collector struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(evt Event) {
	if c == nil || evt == nil {
		return
	}
	c.Events = append(c.Events, evt)
}
