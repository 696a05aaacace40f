package vm

import (
	"vmos/isa"
	"vmos/machine"
	"vmos/mmu"
	"vmos/psw"
)

// Definition of all VM instructions.
// All follow the func (*VM) (isa.Instruction) bool signature,
// returning true when the run is over.

// getSignWord is useful to calculate the overflow bit:
func getSignWord(i uint16) uint16 {
	return (i >> 0xf) & 1
}

// operand returns the second operand: the constant when immediate, rs otherwise.
func (vm *VM) operand(in isa.Instruction) uint16 {
	if in.Immediate {
		return in.Constant
	}
	return vm.ctx.Registers[in.Source]
}

func (vm *VM) carry() uint32 {
	if vm.status.Flags.Carry {
		return 1
	}
	return 0
}

// add sets rd = rd + b + c with carry and overflow.
func (vm *VM) add(in isa.Instruction, b uint16, c uint32) {
	a := vm.ctx.Registers[in.Dest]
	sum := uint32(a) + uint32(b) + c
	res := uint16(sum)
	vm.status.Flags.Carry = sum > 0xffff
	vm.status.Flags.Overflow = getSignWord(a) == getSignWord(b) && getSignWord(res) != getSignWord(a)
	vm.ctx.Registers[in.Dest] = res
}

// sub sets rd = rd - b - c. Carry is set on borrow.
func (vm *VM) sub(in isa.Instruction, b uint16, c uint32) {
	a := vm.ctx.Registers[in.Dest]
	res := uint16(uint32(a) - uint32(b) - c)
	vm.status.Flags.Carry = uint32(a) < uint32(b)+c
	vm.status.Flags.Overflow = getSignWord(a) != getSignWord(b) && getSignWord(res) != getSignWord(a)
	vm.ctx.Registers[in.Dest] = res
}

// memory (4 ticks):

func (vm *VM) loadOp(in isa.Instruction) bool {
	if in.Immediate {
		vm.ctx.Registers[in.Dest] = in.Constant
		vm.tick(in)
		return false
	}
	phys, done := vm.dataAddress(in)
	if done {
		return true
	}
	vm.ctx.Registers[in.Dest] = uint16(vm.m.Memory[phys])
	vm.tick(in)
	return false
}

func (vm *VM) storeOp(in isa.Instruction) bool {
	phys, done := vm.dataAddress(in)
	if done {
		return true
	}
	vm.m.Memory[phys] = int(vm.ctx.Registers[in.Dest])
	vm.ctx.PageTable.MarkModified(mmu.PageOf(in.Address))
	vm.tick(in)
	return false
}

// dataAddress translates the address of a load or store. On a page fault
// the instruction is rolled back and its address left for the OS.
func (vm *VM) dataAddress(in isa.Instruction) (int, bool) {
	if !vm.inBounds(in.Address) {
		vm.pc--
		vm.stop(psw.OutOfBounds)
		return 0, true
	}
	phys, ok := vm.translate(in.Address)
	if !ok {
		vm.pc--
		vm.ctx.PendingAddress = in.Address
		vm.pageFault(psw.Timeslice)
		return 0, true
	}
	if phys >= machine.MemSize {
		vm.stop(psw.OutOfBounds)
		return 0, true
	}
	return phys, false
}

// alu (1 tick):

func (vm *VM) addOp(in isa.Instruction) bool {
	vm.add(in, vm.operand(in), 0)
	vm.tick(in)
	return false
}

func (vm *VM) addcOp(in isa.Instruction) bool {
	vm.add(in, vm.operand(in), vm.carry())
	vm.tick(in)
	return false
}

func (vm *VM) subOp(in isa.Instruction) bool {
	vm.sub(in, vm.operand(in), 0)
	vm.tick(in)
	return false
}

func (vm *VM) subcOp(in isa.Instruction) bool {
	vm.sub(in, vm.operand(in), vm.carry())
	vm.tick(in)
	return false
}

func (vm *VM) andOp(in isa.Instruction) bool {
	vm.ctx.Registers[in.Dest] &= vm.operand(in)
	vm.tick(in)
	return false
}

func (vm *VM) xorOp(in isa.Instruction) bool {
	vm.ctx.Registers[in.Dest] ^= vm.operand(in)
	vm.tick(in)
	return false
}

func (vm *VM) complOp(in isa.Instruction) bool {
	vm.ctx.Registers[in.Dest] = ^vm.ctx.Registers[in.Dest]
	vm.tick(in)
	return false
}

// shifts: carry takes the bit shifted out
func (vm *VM) shlOp(in isa.Instruction) bool {
	r := vm.ctx.Registers[in.Dest]
	vm.status.Flags.Carry = getSignWord(r) == 1
	vm.ctx.Registers[in.Dest] = r << 1
	vm.tick(in)
	return false
}

func (vm *VM) shlaOp(in isa.Instruction) bool {
	r := vm.ctx.Registers[in.Dest]
	vm.status.Flags.Carry = getSignWord(r) == 1
	vm.ctx.Registers[in.Dest] = r<<1 | r&0x8000
	vm.tick(in)
	return false
}

func (vm *VM) shrOp(in isa.Instruction) bool {
	r := vm.ctx.Registers[in.Dest]
	vm.status.Flags.Carry = r&1 == 1
	vm.ctx.Registers[in.Dest] = r >> 1
	vm.tick(in)
	return false
}

func (vm *VM) shraOp(in isa.Instruction) bool {
	r := vm.ctx.Registers[in.Dest]
	vm.status.Flags.Carry = r&1 == 1
	vm.ctx.Registers[in.Dest] = r>>1 | r&0x8000
	vm.tick(in)
	return false
}

func (vm *VM) comprOp(in isa.Instruction) bool {
	vm.status.Flags.SetCompare(int16(vm.ctx.Registers[in.Dest]), int16(vm.operand(in)))
	vm.tick(in)
	return false
}

func (vm *VM) getstatOp(in isa.Instruction) bool {
	vm.ctx.Registers[in.Dest] = vm.status.Pack().Get()
	vm.tick(in)
	return false
}

func (vm *VM) putstatOp(in isa.Instruction) bool {
	vm.status.Flags = psw.PSW(vm.ctx.Registers[in.Dest] & psw.FlagMask).Flags()
	vm.tick(in)
	return false
}

// control flow:

// jumpTo moves pc to a logical target. The run ends when the target is
// not mapped (page fault) or not part of the program (out of bounds).
func (vm *VM) jumpTo(target int) bool {
	if !vm.inBounds(target) {
		vm.stop(psw.OutOfBounds)
		return true
	}
	phys, ok := vm.translate(target)
	if !ok {
		vm.farFault(target)
		return true
	}
	vm.setPC(phys, target)
	return false
}

func (vm *VM) jumpOp(in isa.Instruction) bool {
	vm.tick(in)
	return vm.jumpTo(in.Address)
}

func (vm *VM) jumplOp(in isa.Instruction) bool {
	vm.tick(in)
	if !vm.status.Flags.Less {
		return false
	}
	return vm.jumpTo(in.Address)
}

func (vm *VM) jumpeOp(in isa.Instruction) bool {
	vm.tick(in)
	if !vm.status.Flags.Equal {
		return false
	}
	return vm.jumpTo(in.Address)
}

func (vm *VM) jumpgOp(in isa.Instruction) bool {
	vm.tick(in)
	if !vm.status.Flags.Greater {
		return false
	}
	return vm.jumpTo(in.Address)
}

// callOp pushes the return address, the registers and the status word
// (6 words, return address deepest) and jumps.
// Before that it makes sure the frames the stack grows into hold neither
// the call itself nor unflushed data; otherwise the OS has to clear them
// first and the call is retried.
func (vm *VM) callOp(in isa.Instruction) bool {
	ctx := vm.ctx
	if ctx.StackPointer <= stackFloor {
		vm.tick(in)
		vm.stop(psw.StackOverflow)
		return true
	}

	needed := machine.FrameOf(ctx.StackPointer - CallFrame)
	if machine.FrameOf(vm.pc-1) >= needed || vm.dirtyStackFrames(needed) {
		vm.pc--
		vm.pageFault(psw.StackOverflow)
		return true
	}

	ret := vm.logicalPC()
	vm.push(uint16(ret))
	for i := 0; i < machine.RegisterCount; i++ {
		vm.push(ctx.Registers[i])
	}
	vm.push(vm.status.Pack().Get())
	vm.dropStackPages()
	vm.tick(in)

	return vm.jumpTo(in.Address)
}

// dirtyStackFrames reports whether any frame from needed up holds a page
// this process modified. Other processes never hold one: their pages are
// written back when they leave the processor.
func (vm *VM) dirtyStackFrames(needed int) bool {
	for _, e := range vm.ctx.PageTable {
		if e.Valid && e.Modified && e.Frame >= needed {
			return true
		}
	}
	return false
}

// dropStackPages invalidates TLB entries whose frame the stack now covers.
func (vm *VM) dropStackPages() {
	low := machine.FrameOf(vm.ctx.StackPointer)
	for p, e := range vm.ctx.PageTable {
		if e.Valid && e.Frame >= low {
			vm.ctx.PageTable.Invalidate(p)
		}
	}
}

func (vm *VM) returnOp(in isa.Instruction) bool {
	ctx := vm.ctx
	vm.tick(in)
	if ctx.StackPointer > stackTop {
		vm.stop(psw.StackUnderflow)
		return true
	}

	vm.status.Flags = psw.PSW(vm.pop()).Flags()
	for i := machine.RegisterCount - 1; i >= 0; i-- {
		ctx.Registers[i] = vm.pop()
	}
	ret := int(vm.pop())

	return vm.jumpTo(ret)
}

func (vm *VM) push(w uint16) {
	vm.ctx.StackPointer--
	vm.m.Memory[vm.ctx.StackPointer] = int(w)
}

func (vm *VM) pop() uint16 {
	w := uint16(vm.m.Memory[vm.ctx.StackPointer])
	vm.ctx.StackPointer++
	return w
}

// os services:

func (vm *VM) readOp(in isa.Instruction) bool {
	vm.tick(in)
	vm.stop(psw.Read)
	vm.ctx.Status = vm.status.IO(psw.Read, in.Dest)
	return true
}

func (vm *VM) writeOp(in isa.Instruction) bool {
	vm.tick(in)
	vm.stop(psw.Write)
	vm.ctx.Status = vm.status.IO(psw.Write, in.Dest)
	return true
}

func (vm *VM) haltOp(in isa.Instruction) bool {
	vm.tick(in)
	vm.stop(psw.Halt)
	return true
}

func (vm *VM) noopOp(in isa.Instruction) bool {
	vm.tick(in)
	return false
}

func (vm *VM) invalidOp(in isa.Instruction) bool {
	vm.pc--
	vm.stop(psw.InvalidOpcode)
	vm.log.Warn("invalid opcode", "pid", vm.ctx.PID, "pc", vm.ctx.PC, "op", uint8(in.Op))
	return true
}
