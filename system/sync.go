package system

import (
	"vmos/machine"
	"vmos/pcb"
	"vmos/vm"
)

// SyncIn prepares p to run: the frames under its stack are reserved and
// the stack image is put back in memory. The returned context carries a
// copy of the page table as TLB.
func (sys *System) SyncIn(p *pcb.PCB) (*vm.Context, error) {
	if p.StackPointer < machine.MemSize {
		if err := sys.reclaim(machine.FrameOf(p.StackPointer)); err != nil {
			return nil, err
		}
		words, err := p.Stack.Load()
		if err != nil {
			return nil, err
		}
		for i, w := range words {
			addr := machine.MemSize - 1 - i
			if addr < p.StackPointer {
				break
			}
			sys.m.Memory[addr] = w
		}
	}

	ctx := &vm.Context{
		PID:            p.ID,
		Registers:      p.Registers,
		Status:         p.Status.Status(),
		StackPointer:   p.StackPointer,
		PC:             p.PC,
		Base:           p.Base,
		PageTable:      p.PageTable.Clone(),
		PendingAddress: vm.NoAddress,
	}
	return ctx, nil
}

// SyncOut copies the state left by a run back into p, writes back the
// pages it modified and saves its stack.
func (sys *System) SyncOut(ctx *vm.Context, p *pcb.PCB) error {
	p.Registers = ctx.Registers
	p.Status = ctx.Status.Pack()
	p.StackPointer = ctx.StackPointer
	p.PC = ctx.PC
	p.Base = ctx.Base
	p.PageTable = ctx.PageTable
	p.PendingAddress = ctx.PendingAddress

	for _, page := range p.PageTable.Resident() {
		if p.PageTable[page].Modified {
			if err := sys.flush(p, page); err != nil {
				return err
			}
		}
	}

	if size := p.StackSize(); size > p.LargestStack {
		p.LargestStack = size
	}
	if p.StackPointer >= machine.MemSize {
		return p.Stack.Remove()
	}
	words := make([]int, 0, p.StackSize())
	for addr := machine.MemSize - 1; addr >= p.StackPointer; addr-- {
		words = append(words, sys.m.Memory[addr])
	}
	return p.Stack.Save(words)
}
