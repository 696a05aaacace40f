package vm

import (
	"context"
	"fmt"
	"log/slog"

	"vmos/isa"
	"vmos/machine"
	"vmos/mmu"
	"vmos/psw"
)

// execution constants
const (
	// TimeSlice is the number of ticks a process gets per run.
	TimeSlice = 15

	// NoAddress marks an empty pending fault address.
	NoAddress = -1

	// CallFrame is the number of words a call pushes.
	CallFrame = 6

	// stack limits: push needs sp above stackFloor, pop needs a full frame
	stackFloor = machine.MemSize / 2
	stackTop   = machine.MemSize - CallFrame
)

// Context is the part of a process the VM works on during one run.
// The OS fills it in (sync in) and reads it back afterwards (sync out).
type Context struct {
	PID          int
	Registers    [machine.RegisterCount]uint16
	Status       psw.Status
	StackPointer int

	// PC and Base are logical addresses. Base is the start of the page PC is in.
	PC   int
	Base int

	// PageTable is the TLB, a copy of the process' page table.
	PageTable mmu.PageTable

	// PendingAddress is the logical address of a load or store that faulted.
	PendingAddress int
}

// VM executes one process at a time on the shared machine.
type VM struct {
	m   *machine.Machine
	log *slog.Logger

	// direct TLB hits over the whole run
	hits int

	// opcodes maps every opcode to the function executing it.
	// A function returns true when the VM has to give control back to the OS.
	opcodes [32]func(isa.Instruction) bool

	// state of the current run
	ctx      *Context
	status   psw.Status
	pc       int // physical
	base     int // physical start of the current page
	deadline int
}

// New returns a VM working on m.
func New(m *machine.Machine, log *slog.Logger) *VM {
	vm := &VM{m: m, log: log}

	vm.opcodes[isa.Load] = vm.loadOp
	vm.opcodes[isa.Store] = vm.storeOp
	vm.opcodes[isa.Add] = vm.addOp
	vm.opcodes[isa.Addc] = vm.addcOp
	vm.opcodes[isa.Sub] = vm.subOp
	vm.opcodes[isa.Subc] = vm.subcOp
	vm.opcodes[isa.And] = vm.andOp
	vm.opcodes[isa.Xor] = vm.xorOp
	vm.opcodes[isa.Compl] = vm.complOp
	vm.opcodes[isa.Shl] = vm.shlOp
	vm.opcodes[isa.Shla] = vm.shlaOp
	vm.opcodes[isa.Shr] = vm.shrOp
	vm.opcodes[isa.Shra] = vm.shraOp
	vm.opcodes[isa.Compr] = vm.comprOp
	vm.opcodes[isa.Getstat] = vm.getstatOp
	vm.opcodes[isa.Putstat] = vm.putstatOp
	vm.opcodes[isa.Jump] = vm.jumpOp
	vm.opcodes[isa.Jumpl] = vm.jumplOp
	vm.opcodes[isa.Jumpe] = vm.jumpeOp
	vm.opcodes[isa.Jumpg] = vm.jumpgOp
	vm.opcodes[isa.Call] = vm.callOp
	vm.opcodes[isa.Return] = vm.returnOp
	vm.opcodes[isa.Read] = vm.readOp
	vm.opcodes[isa.Write] = vm.writeOp
	vm.opcodes[isa.Halt] = vm.haltOp
	vm.opcodes[isa.Noop] = vm.noopOp
	for op := range vm.opcodes {
		if vm.opcodes[op] == nil {
			vm.opcodes[op] = vm.invalidOp
		}
	}
	return vm
}

// Hits returns the number of successful TLB translations so far.
func (vm *VM) Hits() int {
	return vm.hits
}

// Run executes ctx for one time slice and returns why it stopped. The
// same status is left in ctx.Status, ctx.PC points at the next instruction
// to run (or at the missing page on a fault).
func (vm *VM) Run(ctx *Context) psw.Status {
	vm.ctx = ctx
	vm.status = ctx.Status.Exit(psw.Timeslice)
	ctx.PendingAddress = NoAddress

	if !vm.inBounds(ctx.PC) {
		return vm.fail(psw.OutOfBounds)
	}
	phys, ok := vm.translate(ctx.PC)
	if !ok {
		return vm.farFault(ctx.PC)
	}
	vm.setPC(phys, ctx.PC)
	vm.deadline = vm.m.Clock + TimeSlice

	for vm.m.Clock < vm.deadline {
		word := vm.m.Memory[vm.pc]
		vm.m.Touch(machine.FrameOf(vm.pc))
		in := isa.Decode(uint16(word))
		if vm.log.Enabled(context.Background(), slog.LevelDebug) {
			vm.log.Debug("exec", "pid", ctx.PID, "pc", vm.logicalPC(), "clock", vm.m.Clock, "instr", in.String())
		}

		// memory instructions never straddle the slice boundary
		if cost := in.Cost(); cost > isa.CostALU && vm.deadline-vm.m.Clock < cost {
			vm.deadline = vm.m.Clock + cost
		}

		vm.pc++
		if vm.opcodes[in.Op](in) {
			return ctx.Status
		}

		// incremental paging: fall through into the next logical page
		if vm.pc == vm.base+machine.PageSize {
			next := ctx.Base + machine.PageSize
			if !vm.inBounds(next) {
				ctx.PC = next
				return vm.fail(psw.OutOfBounds)
			}
			phys, ok := vm.translate(next)
			if !ok {
				return vm.farFault(next)
			}
			vm.setPC(phys, next)
		}
	}
	return vm.stop(psw.Timeslice)
}

// translate maps a logical address through the TLB, counting hits and
// stamping the frame for LRU.
func (vm *VM) translate(logical int) (int, bool) {
	phys, ok := vm.ctx.PageTable.Translate(logical)
	if !ok {
		return mmu.Fault, false
	}
	vm.hits++
	vm.m.Touch(machine.FrameOf(phys))
	return phys, true
}

// inBounds reports whether logical falls into a page the process owns.
func (vm *VM) inBounds(logical int) bool {
	return logical >= 0 && mmu.PageOf(logical) < len(vm.ctx.PageTable)
}

// setPC points the physical and logical program counters at a translated address.
func (vm *VM) setPC(phys, logical int) {
	vm.pc = phys
	vm.base = phys - phys%machine.FrameSize
	vm.ctx.Base = logical - logical%machine.PageSize
}

// logicalPC returns the logical address of the physical pc.
func (vm *VM) logicalPC() int {
	return vm.ctx.Base + vm.pc - vm.base
}

// tick advances the clock by the cost of in.
func (vm *VM) tick(in isa.Instruction) {
	vm.m.Clock += in.Cost()
}

// stop ends the run with reason, pc positioned after the last instruction.
func (vm *VM) stop(reason psw.ExitReason) psw.Status {
	vm.ctx.PC = vm.logicalPC()
	vm.ctx.Status = vm.status.Exit(reason)
	return vm.ctx.Status
}

// fail ends the run on a fatal condition, leaving ctx.PC alone.
func (vm *VM) fail(reason psw.ExitReason) psw.Status {
	vm.ctx.Status = vm.status.Exit(reason)
	return vm.ctx.Status
}

// pageFault ends the run with the page fault bit set. pc must already
// point at what has to be retried.
func (vm *VM) pageFault(reason psw.ExitReason) psw.Status {
	vm.ctx.PC = vm.logicalPC()
	vm.ctx.Status = vm.status.Fault(reason)
	return vm.ctx.Status
}

// farFault ends the run on an unmapped target outside the current page.
// pc is left at the logical target.
func (vm *VM) farFault(target int) psw.Status {
	vm.ctx.PC = target
	vm.ctx.Status = vm.status.Fault(psw.Timeslice)
	return vm.ctx.Status
}

// DumpRegisters returns register values as a string
func (ctx *Context) DumpRegisters() string {
	s := ""
	for i, r := range ctx.Registers {
		s += fmt.Sprintf(" |R%d: %#04x | ", i, r)
	}
	return s + fmt.Sprintf(" |SP: %d |  |PC: %d | ", ctx.StackPointer, ctx.PC)
}
