package console

import (
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

// Gui writes to a gocui view. Lines are queued and drawn by the gocui
// main loop, so WriteConsole may be called from any goroutine.
type Gui struct {
	consoleOut chan string // string channel, to which the console data is sent to
	g          *gocui.Gui  // main gocui GUI object
	view       string      // name of the view lines go to
}

// NewGui returns a console drawing into the named view of g.
func NewGui(g *gocui.Gui, view string) *Gui {
	c := &Gui{
		consoleOut: make(chan string, 64),
		g:          g,
		view:       view,
	}
	c.initGui()
	return c
}

// initGui starts the goroutine moving queued lines into the view.
func (c *Gui) initGui() {
	go func() {
		for s := range c.consoleOut {
			c.g.Update(func(g *gocui.Gui) error {
				v, err := g.View(c.view)
				if err != nil {
					return err
				}
				v.Autoscroll = true
				fmt.Fprint(v, s)
				return nil
			})
		}
	}()
}

// WriteConsole queues every non empty line of msg.
func (c *Gui) WriteConsole(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			c.consoleOut <- line + "\n"
		}
	}
	return nil
}

// Close stops the drawing goroutine. The console must not be written to afterwards.
func (c *Gui) Close() {
	close(c.consoleOut)
}
