package console

/*
status console writers

Everything the OS wants a human to see while it runs (admissions,
terminations, suspended processes, shutdown summary) goes through a
Console. Two implementations:
	- Simple: plain writer, stdout by default
	- Gui: gocui view, used by the monitor (`vmos run --tui`)

Process output is echoed to the console as well, prefixed with the pid.
*/

// Console is anything lines of status text can be written to.
type Console interface {
	WriteConsole(msg string) error
}

// Discard drops everything.
type Discard struct{}

// WriteConsole does nothing
func (Discard) WriteConsole(string) error { return nil }
