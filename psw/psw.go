package psw

import "fmt"

/**
Status register package

Packed layout, low to high:

 15 .. 11 | 10 |  9  8  |  7  6  5  |  4  |  3  |  2  |  1  |  0
 unused   | PF | I/O reg| exit reason|  V  |  L  |  E  |  G  |  C

The packed form only exists at the serialization boundary: it is what
getstat hands to a program and what the PCB keeps between runs. The VM and
the scheduler work on the decoded Status.
*/

// flag layout. Values here are bits, not the powers of 2
const (
	cFlag = 0
	gFlag = 1
	eFlag = 2
	lFlag = 3
	vFlag = 4
)

const (
	reasonShift = 5
	reasonMask  = 7
	ioRegShift  = 3 // relative to the reason value, before the shift
	pageFault   = 32

	// FlagMask selects the five condition flags of a packed word.
	FlagMask = 0x1f
)

// NoRegister marks a Status without an I/O register index.
const NoRegister = -1

// ExitReason tells the OS why the VM returned.
type ExitReason uint8

// exit reasons, in their wire order:
const (
	Timeslice ExitReason = iota
	Halt
	OutOfBounds
	StackOverflow
	StackUnderflow
	InvalidOpcode
	Read
	Write
)

var reasonNames = [...]string{
	"timeslice", "halt", "out of bounds", "stack overflow",
	"stack underflow", "invalid opcode", "read", "write",
}

func (r ExitReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Flags keeps the condition codes. They survive across runs.
type Flags struct {
	Carry    bool
	Greater  bool
	Equal    bool
	Less     bool
	Overflow bool
}

// SetCompare sets exactly one of Less, Equal, Greater.
func (f *Flags) SetCompare(a, b int16) {
	f.Less = a < b
	f.Equal = a == b
	f.Greater = a > b
}

// Status is the decoded status register.
type Status struct {
	Flags      Flags
	Reason     ExitReason
	PageFault  bool
	IORegister int
}

// Exit returns a status with the given reason, keeping the flags.
func (s Status) Exit(reason ExitReason) Status {
	return Status{Flags: s.Flags, Reason: reason, IORegister: NoRegister}
}

// Fault returns a status with the reason and the page fault bit set.
func (s Status) Fault(reason ExitReason) Status {
	st := s.Exit(reason)
	st.PageFault = true
	return st
}

// IO returns a Read or Write status carrying the register index.
func (s Status) IO(reason ExitReason, reg int) Status {
	st := s.Exit(reason)
	st.IORegister = reg
	return st
}

// Pack returns the wire form of the status.
func (s Status) Pack() PSW {
	var p PSW
	p.setFlag(cFlag, s.Flags.Carry)
	p.setFlag(gFlag, s.Flags.Greater)
	p.setFlag(eFlag, s.Flags.Equal)
	p.setFlag(lFlag, s.Flags.Less)
	p.setFlag(vFlag, s.Flags.Overflow)

	code := uint16(s.Reason) & reasonMask
	if (s.Reason == Read || s.Reason == Write) && s.IORegister >= 0 {
		code += uint16(s.IORegister) << ioRegShift
	}
	if s.PageFault {
		code += pageFault
	}
	return p | PSW(code<<reasonShift)
}

func (s Status) String() string {
	str := s.Reason.String()
	if s.PageFault {
		str += "+page fault"
	}
	if s.IORegister >= 0 {
		str += fmt.Sprintf(" r%d", s.IORegister)
	}
	return str + " " + s.Pack().GetFlags()
}

// PSW keeps the packed status register
type PSW uint16

// Get returns current status word
func (psw PSW) Get() uint16 {
	return uint16(psw)
}

// Set PSW value
func (psw *PSW) Set(p uint16) {
	*psw = PSW(p)
}

// Reason returns the exit reason field (bits 5-7)
func (psw PSW) Reason() ExitReason {
	return ExitReason((psw >> reasonShift) & reasonMask)
}

// PageFault returns the page fault bit
func (psw PSW) PageFault() bool {
	return (psw>>reasonShift)&pageFault != 0
}

// IORegister returns the register index of a Read/Write exit, NoRegister otherwise
func (psw PSW) IORegister() int {
	r := psw.Reason()
	if r != Read && r != Write {
		return NoRegister
	}
	return int((psw >> (reasonShift + ioRegShift)) & 3)
}

// Status decodes the packed word.
func (psw PSW) Status() Status {
	return Status{
		Flags:      psw.Flags(),
		Reason:     psw.Reason(),
		PageFault:  psw.PageFault(),
		IORegister: psw.IORegister(),
	}
}

// Flags returns the condition codes only.
func (psw PSW) Flags() Flags {
	return Flags{
		Carry:    psw.C(),
		Greater:  psw.G(),
		Equal:    psw.E(),
		Less:     psw.L(),
		Overflow: psw.V(),
	}
}

// C returns C flag:
func (psw PSW) C() bool {
	return psw.getFlag(cFlag)
}

// SetC sets C flag
func (psw *PSW) SetC(status bool) {
	psw.setFlag(cFlag, status)
}

// G returns the greater flag
func (psw PSW) G() bool {
	return psw.getFlag(gFlag)
}

// E returns the equal flag
func (psw PSW) E() bool {
	return psw.getFlag(eFlag)
}

// L returns the less flag
func (psw PSW) L() bool {
	return psw.getFlag(lFlag)
}

// V returns v flag
func (psw PSW) V() bool {
	return psw.getFlag(vFlag)
}

// SetV sets V flag
func (psw *PSW) SetV(status bool) {
	psw.setFlag(vFlag, status)
}

// generic get flag function
func (psw PSW) getFlag(flag uint) bool {
	return (psw & (1 << flag)) > 0
}

// generic set flag function
func (psw *PSW) setFlag(flag uint, status bool) {
	if status {
		*psw |= (1 << flag)
	} else {
		*psw &^= (1 << flag)
	}
}

// GetFlags returns set flags
func (psw PSW) GetFlags() string {
	flags := ""
	for _, f := range []struct {
		set  bool
		name string
	}{
		{psw.V(), "V"}, {psw.L(), "L"}, {psw.E(), "E"}, {psw.G(), "G"}, {psw.C(), "C"},
	} {
		if f.set {
			flags += f.name
		} else {
			flags += " "
		}
	}
	return "[" + flags + "]"
}
