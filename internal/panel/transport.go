package panel

import "sync"

// Transport is the host side of the bidirectional, ordered message channel
// connecting the dispatcher to a presentation surface. Send delivers an
// outbound event; Recv blocks for the next inbound command and reports
// false once the channel is closed.
//
// Delivery is ordered and at-most-once within a session, but the surface
// may be torn down and recreated at any time, so the host never assumes a
// particular event arrived: a recreated surface rehydrates with an attach
// command answered by a full render.
type Transport interface {
	Send(Event)
	Recv() (Command, bool)
	Close()
}

// Surface is the presentation side of the channel, mirror of Transport.
type Surface interface {
	Send(Command)
	Recv() (Event, bool)
	Events() <-chan Event
	Close()
}

type pipe struct {
	commands chan Command
	events   chan Event
	once     sync.Once
	done     chan struct{}
}

// NewPair returns connected in-memory host and surface endpoints. The
// buffer bounds how many undelivered messages each direction can hold.
func NewPair(buffer int) (Transport, Surface) {
	p := &pipe{
		commands: make(chan Command, buffer),
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
	}
	return (*hostEnd)(p), (*surfaceEnd)(p)
}

func (p *pipe) close() {
	p.once.Do(func() { close(p.done) })
}

type hostEnd pipe

func (h *hostEnd) Send(ev Event) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *hostEnd) Recv() (Command, bool) {
	select {
	case cmd := <-h.commands:
		return cmd, true
	case <-h.done:
		// Drain what was queued before the close.
		select {
		case cmd := <-h.commands:
			return cmd, true
		default:
			return Command{}, false
		}
	}
}

func (h *hostEnd) Close() { (*pipe)(h).close() }

type surfaceEnd pipe

func (s *surfaceEnd) Send(cmd Command) {
	select {
	case s.commands <- cmd:
	case <-s.done:
	}
}

func (s *surfaceEnd) Recv() (Event, bool) {
	select {
	case ev := <-s.events:
		return ev, true
	case <-s.done:
		select {
		case ev := <-s.events:
			return ev, true
		default:
			return Event{}, false
		}
	}
}

func (s *surfaceEnd) Events() <-chan Event { return s.events }

func (s *surfaceEnd) Close() { (*pipe)(s).close() }
