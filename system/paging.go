package system

import (
	"fmt"

	"vmos/machine"
	"vmos/mmu"
	"vmos/pcb"
)

// pageIn loads page of p into a frame picked by the replacement policy.
// Frames from avoidFrom up belong to the stack of p and are not picked.
func (sys *System) pageIn(p *pcb.PCB, page, avoidFrom int) error {
	victim := sys.policy.Victim(sys.ipt, func(f int) bool { return f >= avoidFrom })
	if err := sys.evict(victim); err != nil {
		return err
	}

	words, err := p.Object.ReadPage(page)
	if err != nil {
		return fmt.Errorf("pid %d: %w", p.ID, err)
	}
	sys.m.LoadFrame(victim, words)
	p.PageTable.Map(page, victim)
	sys.ipt.Assign(victim, p.ID, page)
	sys.policy.Loaded(victim)

	sys.log.Debug("page in", "pid", p.ID, "page", page, "frame", victim)
	e := sys.event(EventPageIn, p)
	e.Page, e.Frame = page, victim
	sys.tracer.Trace(e)
	return nil
}

// evict frees frame. A process page living there is written back when
// modified and dropped from its owner's page table.
func (sys *System) evict(frame int) error {
	owner := sys.ipt[frame]
	if !owner.Valid || owner.PID == mmu.StackPID {
		sys.ipt.Release(frame)
		return nil
	}

	if q, ok := sys.procs[owner.PID]; ok {
		e := q.PageTable[owner.Page]
		if e.Valid && e.Frame == frame {
			if e.Modified {
				if err := sys.flush(q, owner.Page); err != nil {
					return err
				}
			}
			q.PageTable.Invalidate(owner.Page)
		}
		ev := sys.event(EventEvict, q)
		ev.Page, ev.Frame = owner.Page, frame
		sys.tracer.Trace(ev)
	}
	sys.log.Debug("evict", "frame", frame, "owner", owner.String())
	sys.ipt.Release(frame)
	return nil
}

// flush writes a resident page of p back to its object file.
func (sys *System) flush(p *pcb.PCB, page int) error {
	e := p.PageTable[page]
	if err := p.Object.Flush(page, sys.m.Frame(e.Frame)); err != nil {
		return fmt.Errorf("pid %d: flush page %d: %w", p.ID, page, err)
	}
	p.PageTable[page].Modified = false
	sys.log.Debug("flush", "pid", p.ID, "page", page, "frame", e.Frame)
	return nil
}

// reclaim reserves every frame from low to the top of memory for the stack.
func (sys *System) reclaim(low int) error {
	for f := low; f < machine.Frames; f++ {
		if !sys.ipt.Reserved(f) {
			if err := sys.evict(f); err != nil {
				return err
			}
			sys.ipt.Reserve(f)
		}
		sys.m.Touch(f)
	}
	return nil
}

// release frees the frames of a process that will not run again.
func (sys *System) release(p *pcb.PCB) {
	for _, page := range p.PageTable.Resident() {
		frame := p.PageTable[page].Frame
		if o := sys.ipt[frame]; o.Valid && o.PID == p.ID && o.Page == page {
			sys.ipt.Release(frame)
		}
		p.PageTable.Invalidate(page)
	}
	if err := p.Stack.Remove(); err != nil {
		sys.log.Warn("remove stack file", "pid", p.ID, "err", err)
	}
}
