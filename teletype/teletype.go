package teletype

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vmos/console"
)

// ErrInputExhausted is returned by Read once every input value was consumed.
var ErrInputExhausted = errors.New("input exhausted")

// Teletype is the terminal of one process: a stream of integers read by
// the read instruction and a line oriented output. Program output is echoed
// to the console, prefixed with the owner's pid.
type Teletype struct {
	pid int

	in  *bufio.Scanner
	out *bufio.Writer

	// files to close at the end
	closers []io.Closer

	echo console.Console
}

// New returns a teletype reading from in and writing to out. in may be nil
// (no input).
func New(pid int, in io.Reader, out io.Writer) *Teletype {
	if in == nil {
		in = strings.NewReader("")
	}
	return &Teletype{
		pid:  pid,
		in:   bufio.NewScanner(in),
		out:  bufio.NewWriter(out),
		echo: console.Discard{},
	}
}

// SetEcho sets the console program output is copied to.
func (t *Teletype) SetEcho(c console.Console) {
	t.echo = c
}

// Read returns the next input value. Empty lines are skipped.
func (t *Teletype) Read() (uint16, error) {
	for t.in.Scan() {
		line := strings.TrimSpace(t.in.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseInt(line, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("input %q: %w", line, err)
		}
		return uint16(v), nil
	}
	if err := t.in.Err(); err != nil {
		return 0, err
	}
	return 0, ErrInputExhausted
}

// Write prints a register value as the program output line and echoes it.
func (t *Teletype) Write(v uint16) error {
	line := fmt.Sprintf("Output: %d", int16(v))
	if err := t.Println(line); err != nil {
		return err
	}
	return t.echo.WriteConsole(fmt.Sprintf("[%d] %s", t.pid, line))
}

// Println writes a line of text.
func (t *Teletype) Println(line string) error {
	_, err := t.out.WriteString(line + "\n")
	return err
}

// Flush pushes buffered output to the underlying writer.
func (t *Teletype) Flush() error {
	return t.out.Flush()
}

// Close flushes the output and closes any files opened for the teletype.
func (t *Teletype) Close() error {
	err := t.out.Flush()
	for _, c := range t.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	t.closers = nil
	return err
}
