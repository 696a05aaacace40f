package system

import (
	"errors"
	"fmt"

	"vmos/machine"
	"vmos/mmu"
	"vmos/pcb"
	"vmos/psw"
	"vmos/teletype"
	"vmos/vm"
)

// contextSwitch acts on the way p left the processor, then charges the
// switch overhead. p has been synced out.
func (sys *System) contextSwitch(p *pcb.PCB, st psw.Status) error {
	sys.checkWait()

	e := sys.event(EventExit, p)
	e.Status = st
	sys.tracer.Trace(e)

	var err error
	switch {
	case st.PageFault && st.Reason == psw.StackOverflow:
		err = sys.stackFault(p)
	case st.PageFault:
		err = sys.pageFault(p)
	case st.Reason == psw.Timeslice:
		sys.enqueueReady(p)
	case st.Reason == psw.Halt:
		err = sys.halt(p)
	case st.Reason == psw.Read, st.Reason == psw.Write:
		err = sys.io(p, st)
	default:
		// stack overflow or underflow without a fault, out of bounds, invalid opcode
		sys.suspend(p, st.Reason.String())
		err = sys.retire(p)
	}
	if err != nil {
		return err
	}

	// the stack may have grown over frames holding pages
	if err := sys.reclaim(machine.FrameOf(p.StackPointer)); err != nil {
		return err
	}

	if len(sys.ready) == 0 && len(sys.wait) > 0 {
		sys.idle()
	}

	sys.contextTime += SwitchOverhead
	sys.m.Clock += SwitchOverhead
	return nil
}

// pageFault pages in what p is missing: the pending load/store address if
// there is one, the program counter otherwise.
func (sys *System) pageFault(p *pcb.PCB) error {
	addr := p.PC
	if p.PendingAddress != vm.NoAddress {
		addr = p.PendingAddress
	}
	page := mmu.PageOf(addr)
	if err := p.PageTable.Check(page); err != nil {
		sys.suspend(p, err.Error())
		return sys.retire(p)
	}

	p.PageFaults++
	sys.enqueueWait(p, pcb.PageWait, PageFaultLatency)
	sys.log.Debug("page fault", "pid", p.ID, "page", page, "address", addr)

	p.PendingAddress = vm.NoAddress
	if p.PageTable[page].Valid {
		return nil
	}
	return sys.pageIn(p, page, machine.FrameOf(p.StackPointer))
}

// stackFault clears the frames a call needs for its stack frame. When that
// takes the page of the call itself, the page is brought back below them.
func (sys *System) stackFault(p *pcb.PCB) error {
	p.StackFaults++
	sys.enqueueWait(p, pcb.PageWait, PageFaultLatency)

	low := machine.FrameOf(p.StackPointer - vm.CallFrame)
	sys.log.Debug("stack fault", "pid", p.ID, "sp", p.StackPointer, "frames from", low)
	if err := sys.reclaim(low); err != nil {
		return err
	}

	page := mmu.PageOf(p.PC)
	if p.PageTable.Check(page) != nil || p.PageTable[page].Valid {
		return nil
	}
	return sys.pageIn(p, page, low)
}

// halt writes the accounting block of p and retires it.
func (sys *System) halt(p *pcb.PCB) error {
	p.Turnaround = sys.m.Clock
	p.State = pcb.Terminated
	sys.completed++

	if err := p.TTY.Println(p.Accounting()); err != nil {
		return err
	}
	sys.log.Info("process halted", "pid", p.ID, "name", p.Name, "clock", sys.m.Clock)
	sys.console.WriteConsole(fmt.Sprintf("%s: halted at %d", p.Name, sys.m.Clock))
	sys.tracer.Trace(sys.event(EventHalt, p))
	return sys.retire(p)
}

// retire frees the frames of p, halted or suspended, and admits the next
// pending program in its place.
func (sys *System) retire(p *pcb.PCB) error {
	sys.release(p)
	if len(sys.pending) == 0 {
		return nil
	}
	return sys.admit()
}

// io transfers the data of a read or write right away; the process then
// waits for the device.
func (sys *System) io(p *pcb.PCB, st psw.Status) error {
	sys.enqueueWait(p, pcb.IOWait, IOLatency)

	reg := st.IORegister
	if reg < 0 || reg >= machine.RegisterCount {
		return fmt.Errorf("pid %d: %s without a register", p.ID, st.Reason)
	}

	if st.Reason == psw.Write {
		return p.TTY.Write(p.Registers[reg])
	}

	v, err := p.TTY.Read()
	switch {
	case errors.Is(err, teletype.ErrInputExhausted):
		sys.log.Warn("read past end of input", "pid", p.ID, "name", p.Name, "register", reg)
	case err != nil:
		sys.log.Warn("read failed", "pid", p.ID, "name", p.Name, "err", err)
	default:
		p.Registers[reg] = v
	}
	return nil
}
