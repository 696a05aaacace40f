package pcb

import (
	"fmt"
	"strings"

	"vmos/disk"
	"vmos/machine"
	"vmos/mmu"
	"vmos/psw"
	"vmos/teletype"
)

// State of a process
type State int

// process states
const (
	Ready State = iota
	Running
	Waiting
	Terminated
	Suspended
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Terminated:
		return "terminated"
	case Suspended:
		return "suspended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// WaitKind tells what a waiting process waits for.
type WaitKind int

// wait kinds
const (
	NoWait WaitKind = iota
	IOWait
	PageWait
)

// PCB keeps everything the OS knows about a process between runs.
type PCB struct {
	ID   int
	Name string

	Registers    [machine.RegisterCount]uint16
	Status       psw.PSW
	StackPointer int
	PC           int
	Base         int
	PageTable    mmu.PageTable

	Object *disk.ObjectFile
	Stack  *disk.StackFile
	TTY    *teletype.Teletype

	State State
	Wait  WaitKind

	// counters, in ticks
	CPUTime      int
	WaitTime     int
	Turnaround   int
	IOTime       int
	LargestStack int
	PageFaults   int
	StackFaults  int

	// timestamps
	ReadyStart int
	IOStart    int
	WaitEnd    int

	// PendingAddress is the logical address of the load or store that
	// caused the last page fault, vm.NoAddress when there is none.
	PendingAddress int
}

// New returns a ready process with an empty stack and a page table
// sized for its object file.
func New(id int, name string, object *disk.ObjectFile, stack *disk.StackFile, tty *teletype.Teletype) *PCB {
	return &PCB{
		ID:             id,
		Name:           name,
		StackPointer:   machine.MemSize,
		PageTable:      mmu.NewPageTable(object.Lines()),
		Object:         object,
		Stack:          stack,
		TTY:            tty,
		State:          Ready,
		PendingAddress: -1,
	}
}

// StackSize returns the number of words on the stack.
func (p *PCB) StackSize() int {
	return machine.MemSize - p.StackPointer
}

// Accounting renders the per process report written at halt.
func (p *PCB) Accounting() string {
	var b strings.Builder
	b.WriteString("------Accounting Information------\n")
	fmt.Fprintf(&b, "CPU: %d\n", p.CPUTime)
	fmt.Fprintf(&b, "Waiting Time: %d\n", p.WaitTime)
	fmt.Fprintf(&b, "Turnaround: %d\n", p.Turnaround)
	fmt.Fprintf(&b, "I/O Time: %d\n", p.IOTime)
	fmt.Fprintf(&b, "Largest Stack Size: %d\n", p.LargestStack)
	fmt.Fprintf(&b, "Page Faults: %d\n", p.PageFaults)
	fmt.Fprintf(&b, "Stack Faults: %d\n", p.StackFaults)
	return b.String()
}

func (p *PCB) String() string {
	return fmt.Sprintf("pid %d (%s) %s pc %d sp %d", p.ID, p.Name, p.State, p.PC, p.StackPointer)
}
