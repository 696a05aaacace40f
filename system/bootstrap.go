package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"vmos/asm"
	"vmos/disk"
	"vmos/machine"
	"vmos/pcb"
	"vmos/teletype"
)

/*
	Program admission.

	A program is named by its path with or without extension. Next to
	the object file name.o live name.in (optional input), name.out
	(output, recreated) and name.st (stack image while switched out).
	A name.s source is assembled into name.o at boot.
*/

type program struct {
	name   string
	object string
	input  string
	output string
	stack  string
}

// resolve finds the object file of path, assembling the source if needed.
func resolve(path string) (program, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	prog := program{
		name:   filepath.Base(base),
		object: base + ".o",
		input:  base + ".in",
		output: base + ".out",
		stack:  base + ".st",
	}

	source := ""
	switch ext {
	case ".s":
		source = path
	case ".o":
	default:
		if exists(base + ".s") {
			source = base + ".s"
		}
	}

	if source != "" {
		if !exists(source) {
			return prog, fmt.Errorf("%s: %w", source, ErrMissingProgram)
		}
		if err := asm.AssembleFile(source, prog.object); err != nil {
			return prog, err
		}
		return prog, nil
	}
	if !exists(prog.object) {
		return prog, fmt.Errorf("%s: %w", path, ErrMissingProgram)
	}
	return prog, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Boot checks every program, assembling sources, and admits the first
// Degree of them. Nothing runs when a program is missing or does not assemble.
func (sys *System) Boot(programs []string) error {
	for _, path := range programs {
		prog, err := resolve(path)
		if err != nil {
			return err
		}
		sys.pending = append(sys.pending, prog)
	}
	for len(sys.jobs) < Degree && len(sys.pending) > 0 {
		if err := sys.admit(); err != nil {
			return err
		}
	}
	sys.log.Info("booted", "admitted", len(sys.jobs), "pending", len(sys.pending), "policy", sys.policy.Name())
	return nil
}

// admit creates the process for the next pending program, loads its first
// page and makes it ready. The load is not counted as a page fault.
func (sys *System) admit() error {
	prog := sys.pending[0]
	sys.pending = sys.pending[1:]

	object, err := disk.Attach(prog.object)
	if err != nil {
		return err
	}
	pid := sys.nextPID
	sys.nextPID++

	tty, err := teletype.Open(pid, prog.input, prog.output)
	if err != nil {
		return err
	}
	tty.SetEcho(sys.console)

	p := pcb.New(pid, prog.name, object, disk.NewStackFile(prog.stack), tty)
	if err := p.Stack.Remove(); err != nil {
		return err
	}
	sys.jobs = append(sys.jobs, p)
	sys.procs[pid] = p

	if len(p.PageTable) > 0 {
		if err := sys.pageIn(p, 0, machine.Frames); err != nil {
			return err
		}
	}
	sys.enqueueReady(p)

	sys.log.Info("admitted", "pid", pid, "name", prog.name, "words", object.Lines())
	sys.console.WriteConsole(fmt.Sprintf("%s: admitted as process %d", prog.name, pid))
	sys.tracer.Trace(sys.event(EventAdmit, p))
	return nil
}
