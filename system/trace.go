package system

import (
	"vmos/machine"
	"vmos/pcb"
	"vmos/psw"
)

// EventKind names what happened to a process.
type EventKind string

// event kinds
const (
	EventAdmit    EventKind = "admit"
	EventDispatch EventKind = "dispatch"
	EventExit     EventKind = "exit"
	EventPageIn   EventKind = "page-in"
	EventEvict    EventKind = "evict"
	EventHalt     EventKind = "halt"
	EventSuspend  EventKind = "suspend"
)

// Event is a snapshot of a process taken when the OS acts on it.
type Event struct {
	Kind         EventKind
	Clock        int
	PID          int
	Name         string
	PC           int
	StackPointer int
	Registers    [machine.RegisterCount]uint16
	Status       psw.Status

	// Page and Frame are set for page-in and evict, -1 otherwise.
	Page  int
	Frame int
}

// Tracer receives events in the order they happen, synchronously from
// the scheduling loop.
type Tracer interface {
	Trace(e Event)
}

// Tracers fans events out to several tracers.
type Tracers []Tracer

// Trace passes e to every tracer
func (ts Tracers) Trace(e Event) {
	for _, t := range ts {
		t.Trace(e)
	}
}

type nopTracer struct{}

func (nopTracer) Trace(Event) {}

func (sys *System) event(kind EventKind, p *pcb.PCB) Event {
	return Event{
		Kind:         kind,
		Clock:        sys.m.Clock,
		PID:          p.ID,
		Name:         p.Name,
		PC:           p.PC,
		StackPointer: p.StackPointer,
		Registers:    p.Registers,
		Status:       p.Status.Status(),
		Page:         -1,
		Frame:        -1,
	}
}
