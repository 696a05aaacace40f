package console

import (
	"io"
	"os"
	"strings"
	"sync"
)

// Simple console type definition
type Simple struct {
	mu          sync.Mutex
	out         io.Writer
	currentLine int // counter of the lines written so far
}

// NewSimple returns a console writing to w, stdout when w is nil.
func NewSimple(w io.Writer) *Simple {
	if w == nil {
		w = os.Stdout
	}
	return &Simple{out: w}
}

// WriteConsole writes every non empty line of msg.
func (c *Simple) WriteConsole(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range strings.Split(msg, "\n") {
		if line == "" {
			continue
		}
		if _, err := io.WriteString(c.out, line+"\n"); err != nil {
			return err
		}
		c.currentLine++
	}
	return nil
}

// Lines returns the number of lines written.
func (c *Simple) Lines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLine
}
