package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
	"golang.org/x/term"

	"vmos/config"
	"vmos/console"
	"vmos/system"
)

var errNoTerminal = errors.New("--tui needs a terminal")

// monitor runs the programs under a gocui monitor: the console view
// shows what the OS reports, the registers view the process that just
// left the processor and the status view the last events.
func monitor(c config.Config, paths []string, log *slog.Logger, tracer system.Tracer) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNoTerminal
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("couldn't create gui: %w", err)
	}
	defer g.Close()

	g.SetManagerFunc(layout)
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}

	con := console.NewGui(g, "console")
	panel := &panel{g: g, delay: c.Delay, recent: console.NewHistory(recentEvents)}

	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		report, err := simulate(c, paths, log, con, system.Tracers{tracer, panel})
		if err != nil {
			runErr = err
			con.WriteConsole("error: " + err.Error())
		}
		panel.done(report, err)
	}()

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	// quitting early leaves the simulation to finish without a screen
	wg.Wait()
	con.Close()
	return runErr
}

// panel is the tracer feeding the registers and status views.
type panel struct {
	g     *gocui.Gui
	delay time.Duration

	mu     sync.Mutex
	recent *console.History
}

const recentEvents = 10

// Trace shows e. After an exit the simulation sleeps for the delay so
// that the views can be followed.
func (p *panel) Trace(e system.Event) {
	line := fmt.Sprintf("%6d  %-8s pid %d (%s) pc %d sp %d", e.Clock, e.Kind, e.PID, e.Name, e.PC, e.StackPointer)
	switch e.Kind {
	case system.EventExit:
		line += " " + e.Status.String()
	case system.EventPageIn, system.EventEvict:
		line += fmt.Sprintf(" page %d frame %d", e.Page, e.Frame)
	}

	p.mu.Lock()
	p.recent.Add(line)
	status := strings.Join(p.recent.Lines(), "\n")
	p.mu.Unlock()

	p.g.Update(func(g *gocui.Gui) error {
		v, err := g.View("status")
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprintln(v, status)
		if e.Kind != system.EventExit {
			return nil
		}

		v, err = g.View("registers")
		if err != nil {
			return err
		}
		v.Clear()
		for i, r := range e.Registers {
			fmt.Fprintf(v, " |R%d: %#04x | ", i, r)
		}
		fmt.Fprintf(v, " |SP: %d |  |PC: %d |  <t : %d>", e.StackPointer, e.PC, e.Clock)
		return nil
	})

	if e.Kind == system.EventExit && p.delay > 0 {
		time.Sleep(p.delay)
	}
}

func (p *panel) done(r system.Summary, err error) {
	p.g.Update(func(g *gocui.Gui) error {
		v, verr := g.View("status")
		if verr != nil {
			return verr
		}
		if err != nil {
			fmt.Fprintf(v, "stopped: %v\n", err)
		} else {
			fmt.Fprintf(v, "done at %d, %d completed. Ctrl-C to quit.\n", r.Clock, r.Completed)
		}
		return nil
	})
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// up -> console
	if v, err := g.SetView("console", 0, 0, maxX-1, maxY-18); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Console"
	}

	// middle -> register values
	if v, err := g.SetView("registers", 0, maxY-17, maxX-1, maxY-14); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}
	// down -> status
	if v, err := g.SetView("status", 0, maxY-13, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
