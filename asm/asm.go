package asm

/**
Assembler for the VM instruction set.

One instruction per line, operands are plain numbers:

	loadi 0 5   ! r0 = 5
	add 0 1
	store 0 200
	jump 8

Everything after '!' is a comment. Registers are 0-3, addresses 0-255,
constants -128..127.
*/

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"vmos/isa"
)

// ErrSyntax is wrapped by every assembly error.
var ErrSyntax = errors.New("syntax error")

// operand ranges
const (
	maxRegister = 3
	maxAddress  = 255
	minConstant = -128
	maxConstant = 127
)

// Assemble translates source lines into instruction words.
func Assemble(r io.Reader) ([]uint16, error) {
	var words []uint16
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '!'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		w, err := assembleLine(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		words = append(words, w)
	}
	return words, scanner.Err()
}

func assembleLine(fields []string) (uint16, error) {
	op, immediate, ok := isa.Lookup(fields[0])
	if !ok {
		return 0, fmt.Errorf("%w: unknown instruction %q", ErrSyntax, fields[0])
	}
	in := isa.Instruction{Op: op, Immediate: immediate}
	args := fields[1:]

	var want int
	switch op.Format() {
	case isa.FormatNone, isa.FormatReturn:
		want = 0
	case isa.FormatReg, isa.FormatAddr:
		want = 1
	default:
		want = 2
	}
	if len(args) != want {
		return 0, fmt.Errorf("%w: %s takes %d operands, got %d", ErrSyntax, fields[0], want, len(args))
	}

	var err error
	switch op.Format() {
	case isa.FormatReg:
		in.Dest, err = operand(args[0], 0, maxRegister, "register")
	case isa.FormatAddr:
		in.Address, err = operand(args[0], 0, maxAddress, "address")
	case isa.FormatRegReg, isa.FormatRegAddr, isa.FormatStore:
		if in.Dest, err = operand(args[0], 0, maxRegister, "register"); err != nil {
			break
		}
		switch {
		case immediate && op.Format() != isa.FormatStore:
			var c int
			c, err = operand(args[1], minConstant, maxConstant, "constant")
			in.Address = c & 0xff
		case op.Format() == isa.FormatRegReg:
			in.Source, err = operand(args[1], 0, maxRegister, "register")
		default:
			in.Address, err = operand(args[1], 0, maxAddress, "address")
		}
	}
	if err != nil {
		return 0, err
	}
	return in.Encode(), nil
}

func operand(s string, lo, hi int, what string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrSyntax, what, s)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s %d out of range %d..%d", ErrSyntax, what, v, lo, hi)
	}
	return v, nil
}

// WriteObject writes words in object file format, one decimal per line.
func WriteObject(w io.Writer, words []uint16) error {
	bw := bufio.NewWriter(w)
	for _, word := range words {
		if _, err := fmt.Fprintf(bw, "%d\n", word); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// AssembleFile assembles the source file src into the object file dst.
func AssembleFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	words, err := Assemble(in)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := WriteObject(out, words); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Disassemble returns one assembler line per word.
func Disassemble(words []uint16) []string {
	lines := make([]string, len(words))
	for i, w := range words {
		lines[i] = isa.Decode(w).String()
	}
	return lines
}

// ReadObject parses an object file. Values wider than a word are truncated.
func ReadObject(r io.Reader) ([]uint16, error) {
	var words []uint16
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		words = append(words, uint16(v))
	}
	return words, scanner.Err()
}
