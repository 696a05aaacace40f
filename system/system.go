package system

import (
	"errors"
	"fmt"
	"log/slog"

	"vmos/console"
	"vmos/machine"
	"vmos/mmu"
	"vmos/pcb"
	"vmos/psw"
	"vmos/vm"
)

// scheduling constants, in clock ticks
const (
	// Degree is the number of programs resident at the same time.
	Degree = 5

	IOLatency        = 27
	PageFaultLatency = 35
	SwitchOverhead   = 5
)

// ErrMissingProgram is returned by Boot when a listed program has neither
// a source nor an object file.
var ErrMissingProgram = errors.New("missing program")

// Processor runs a process for one time slice. *vm.VM is the only
// implementation outside of tests.
type Processor interface {
	Run(ctx *vm.Context) psw.Status
	Hits() int
}

// Options configure a System.
type Options struct {
	// Policy selects the page replacement, "fifo" or "lru".
	Policy string

	Log     *slog.Logger
	Console console.Console

	// Tracer, when set, gets an Event for everything the OS does.
	Tracer Tracer
}

// System is the operating system: it owns the machine, the queues and the
// inverted page table, and drives the processor one slice at a time.
type System struct {
	m       *machine.Machine
	cpu     Processor
	policy  mmu.Policy
	ipt     mmu.InvertedPageTable
	log     *slog.Logger
	console console.Console
	tracer  Tracer

	// programs waiting for admission
	pending []program
	nextPID int

	jobs  []*pcb.PCB
	procs map[int]*pcb.PCB
	ready []*pcb.PCB
	wait  []*pcb.PCB

	completed   int
	contextTime int
	idleTime    int
}

// New returns a system on m, executing with cpu.
func New(m *machine.Machine, cpu Processor, opts Options) (*System, error) {
	policy, err := mmu.NewPolicy(opts.Policy, m.Recency[:])
	if err != nil {
		return nil, err
	}
	sys := &System{
		m:       m,
		cpu:     cpu,
		policy:  policy,
		ipt:     mmu.NewInvertedPageTable(machine.Frames),
		log:     opts.Log,
		console: opts.Console,
		tracer:  opts.Tracer,
		nextPID: 1,
		procs:   make(map[int]*pcb.PCB),
	}
	if sys.log == nil {
		sys.log = slog.New(slog.DiscardHandler)
	}
	if sys.console == nil {
		sys.console = console.Discard{}
	}
	if sys.tracer == nil {
		sys.tracer = nopTracer{}
	}
	return sys, nil
}

// Run schedules the admitted programs until both queues are empty, then
// writes the system report to every completed program's output.
func (sys *System) Run() error {
	for len(sys.ready) > 0 {
		p := sys.ready[0]
		sys.ready = sys.ready[1:]
		p.WaitTime += sys.m.Clock - p.ReadyStart
		p.State = pcb.Running

		ctx, err := sys.SyncIn(p)
		if err != nil {
			return err
		}
		sys.tracer.Trace(sys.event(EventDispatch, p))

		start := sys.m.Clock
		status := sys.cpu.Run(ctx)
		p.CPUTime += sys.m.Clock - start
		if err := sys.SyncOut(ctx, p); err != nil {
			return err
		}
		if err := sys.contextSwitch(p, status); err != nil {
			return err
		}
	}
	return sys.shutdown()
}

// Clock returns the virtual time.
func (sys *System) Clock() int {
	return sys.m.Clock
}

// Jobs returns every admitted process, in admission order.
func (sys *System) Jobs() []*pcb.PCB {
	return sys.jobs
}

// Policy returns the replacement policy name.
func (sys *System) Policy() string {
	return sys.policy.Name()
}

// Frames returns a copy of the inverted page table.
func (sys *System) Frames() mmu.InvertedPageTable {
	ipt := make(mmu.InvertedPageTable, len(sys.ipt))
	copy(ipt, sys.ipt)
	return ipt
}

func (sys *System) enqueueReady(p *pcb.PCB) {
	p.State = pcb.Ready
	p.Wait = pcb.NoWait
	p.ReadyStart = sys.m.Clock
	sys.ready = append(sys.ready, p)
}

func (sys *System) enqueueWait(p *pcb.PCB, kind pcb.WaitKind, latency int) {
	p.State = pcb.Waiting
	p.Wait = kind
	p.IOStart = sys.m.Clock
	p.WaitEnd = sys.m.Clock + latency
	sys.wait = append(sys.wait, p)
}

// checkWait moves every process whose wait ends within the next switch
// to the ready queue, keeping wait queue order.
func (sys *System) checkWait() {
	var still []*pcb.PCB
	for _, p := range sys.wait {
		if sys.m.Clock+SwitchOverhead < p.WaitEnd {
			still = append(still, p)
			continue
		}
		if p.Wait == pcb.IOWait {
			p.IOTime += sys.m.Clock - p.IOStart
		}
		sys.enqueueReady(p)
	}
	sys.wait = still
}

// idle fast forwards the clock to the earliest wait completion.
func (sys *System) idle() {
	end := sys.wait[0].WaitEnd
	for _, p := range sys.wait[1:] {
		if p.WaitEnd < end {
			end = p.WaitEnd
		}
	}
	if end > sys.m.Clock {
		sys.idleTime += end - sys.m.Clock
		sys.m.Clock = end
	}
	sys.log.Debug("idle", "until", end)
	sys.checkWait()
}

func (sys *System) suspend(p *pcb.PCB, reason string) {
	p.State = pcb.Suspended
	sys.log.Warn("process suspended", "pid", p.ID, "name", p.Name, "reason", reason, "pc", p.PC)
	sys.console.WriteConsole(fmt.Sprintf("%s: %s, suspending process", p.Name, reason))
	sys.tracer.Trace(sys.event(EventSuspend, p))
}
