package isa

import "fmt"

/**
Instruction word layout:

 15 14 13 12 11 | 10  9 |  8  |  7  6  |  5  4  3  2  1  0
     opcode     |  rd   |  i  |  rs   |
                               \_____ address / constant ______/

The low byte is read as an unsigned address or as a constant, sign
extended to 16 bits when bit 7 is set. The source register shares bits
6-7 with it.
*/

const (
	opMask    = 0xf800
	rdMask    = 0x0600
	iMask     = 0x0100
	rsMask    = 0x00c0
	lowMask   = 0x00ff
	signBit   = 0x0080
	signExtnd = 0xff00
)

// Opcode of the instruction set
type Opcode uint8

// opcodes, in their encoding order
const (
	Load Opcode = iota
	Store
	Add
	Addc
	Sub
	Subc
	And
	Xor
	Compl
	Shl
	Shla
	Shr
	Shra
	Compr
	Getstat
	Putstat
	Jump
	Jumpl
	Jumpe
	Jumpg
	Call
	Return
	Read
	Write
	Halt
	Noop
)

// operand formats, shared by the assembler and disasm
const (
	FormatNone    = iota // halt, noop
	FormatReg            // rd
	FormatRegReg         // rd rs, or rd const when immediate
	FormatRegAddr        // rd addr, or rd const when immediate (load)
	FormatStore          // rd addr, always immediate
	FormatAddr           // addr, always immediate
	FormatReturn         // no operand, always immediate
)

// memory touching instructions cost 4 ticks, everything else 1
const (
	CostALU    = 1
	CostMemory = 4
)

var optable = [...]struct {
	name, immName string
	format        int
	cost          int
}{
	Load:    {"load", "loadi", FormatRegAddr, CostMemory},
	Store:   {"store", "", FormatStore, CostMemory},
	Add:     {"add", "addi", FormatRegReg, CostALU},
	Addc:    {"addc", "addci", FormatRegReg, CostALU},
	Sub:     {"sub", "subi", FormatRegReg, CostALU},
	Subc:    {"subc", "subci", FormatRegReg, CostALU},
	And:     {"and", "andi", FormatRegReg, CostALU},
	Xor:     {"xor", "xori", FormatRegReg, CostALU},
	Compl:   {"compl", "", FormatReg, CostALU},
	Shl:     {"shl", "", FormatReg, CostALU},
	Shla:    {"shla", "", FormatReg, CostALU},
	Shr:     {"shr", "", FormatReg, CostALU},
	Shra:    {"shra", "", FormatReg, CostALU},
	Compr:   {"compr", "compri", FormatRegReg, CostALU},
	Getstat: {"getstat", "", FormatReg, CostALU},
	Putstat: {"putstat", "", FormatReg, CostALU},
	Jump:    {"jump", "", FormatAddr, CostALU},
	Jumpl:   {"jumpl", "", FormatAddr, CostALU},
	Jumpe:   {"jumpe", "", FormatAddr, CostALU},
	Jumpg:   {"jumpg", "", FormatAddr, CostALU},
	Call:    {"call", "", FormatAddr, CostMemory},
	Return:  {"return", "", FormatReturn, CostMemory},
	Read:    {"read", "", FormatReg, CostALU},
	Write:   {"write", "", FormatReg, CostALU},
	Halt:    {"halt", "", FormatNone, CostALU},
	Noop:    {"noop", "", FormatNone, CostALU},
}

// Valid reports whether the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	return int(op) < len(optable)
}

// Format returns the operand format of op
func (op Opcode) Format() int {
	if !op.Valid() {
		return FormatNone
	}
	return optable[op].format
}

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op%d", uint8(op))
	}
	return optable[op].name
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Op        Opcode
	Dest      int
	Source    int
	Immediate bool
	Constant  uint16 // low byte, sign extended
	Address   int    // low byte, unsigned
}

// Decode splits a word into its fields. No validation happens here.
func Decode(word uint16) Instruction {
	in := Instruction{
		Op:        Opcode((word & opMask) >> 11),
		Dest:      int((word & rdMask) >> 9),
		Immediate: word&iMask != 0,
		Source:    int((word & rsMask) >> 6),
		Address:   int(word & lowMask),
		Constant:  word & lowMask,
	}
	if in.Constant&signBit != 0 {
		in.Constant |= signExtnd
	}
	return in
}

// Encode packs the instruction back into a word. A non-immediate
// instruction gets its source register or-ed into bits 6-7.
func (in Instruction) Encode() uint16 {
	word := uint16(in.Op)<<11&opMask |
		uint16(in.Dest)<<9&rdMask |
		uint16(in.Address)&lowMask
	if in.Immediate {
		word |= iMask
	} else {
		word |= uint16(in.Source)<<6&rsMask
	}
	return word
}

// Cost returns the number of clock ticks the instruction takes.
func (in Instruction) Cost() int {
	if !in.Op.Valid() {
		return CostALU
	}
	if in.Op == Load && in.Immediate {
		return CostALU
	}
	return optable[in.Op].cost
}

// Mnemonic returns the assembler name, taking the immediate flag into account
func (in Instruction) Mnemonic() string {
	if !in.Op.Valid() {
		return in.Op.String()
	}
	e := optable[in.Op]
	if in.Immediate && e.immName != "" {
		return e.immName
	}
	return e.name
}

// String disassembles the instruction into assembler syntax.
func (in Instruction) String() string {
	if !in.Op.Valid() {
		return fmt.Sprintf("invalid %#04x", in.Encode())
	}
	msg := in.Mnemonic()
	switch in.Op.Format() {
	case FormatReg:
		msg += fmt.Sprintf(" %d", in.Dest)
	case FormatRegReg, FormatRegAddr:
		switch {
		case in.Immediate:
			msg += fmt.Sprintf(" %d %d", in.Dest, int16(in.Constant))
		case in.Op == Load:
			msg += fmt.Sprintf(" %d %d", in.Dest, in.Address)
		default:
			msg += fmt.Sprintf(" %d %d", in.Dest, in.Source)
		}
	case FormatStore:
		msg += fmt.Sprintf(" %d %d", in.Dest, in.Address)
	case FormatAddr:
		msg += fmt.Sprintf(" %d", in.Address)
	}
	return msg
}

// Lookup finds the opcode behind an assembler mnemonic and reports
// whether the mnemonic selects the immediate form.
func Lookup(mnemonic string) (op Opcode, immediate bool, ok bool) {
	for i, e := range optable {
		switch mnemonic {
		case e.name:
			f := e.format
			return Opcode(i), f == FormatStore || f == FormatAddr || f == FormatReturn, true
		case e.immName:
			if e.immName != "" {
				return Opcode(i), true, true
			}
		}
	}
	return 0, false, false
}
