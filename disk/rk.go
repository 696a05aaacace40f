package disk

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"vmos/machine"
)

// ObjectFile is the backing store of one process: a line per word, in
// logical order. It is the only copy of pages that are not resident.
type ObjectFile struct {
	path  string
	lines int
}

// Attach opens the object file at path and counts its words.
func Attach(path string) (*ObjectFile, error) {
	o := &ObjectFile{path: path}
	lines, err := o.read()
	if err != nil {
		return nil, err
	}
	o.lines = len(words(lines))
	return o, nil
}

// Path returns the file name
func (o *ObjectFile) Path() string {
	return o.path
}

// Lines returns the number of words in the file.
func (o *ObjectFile) Lines() int {
	return o.lines
}

// ReadPage returns the words of a logical page. The last page of a
// program may be short.
func (o *ObjectFile) ReadPage(page int) ([]int, error) {
	lines, err := o.read()
	if err != nil {
		return nil, err
	}
	lines = words(lines)
	start := page * machine.PageSize
	if start >= len(lines) {
		return nil, fmt.Errorf("%s: page %d past the end of %d words", o.path, page, len(lines))
	}
	end := start + machine.PageSize
	if end > len(lines) {
		end = len(lines)
	}

	out := make([]int, 0, machine.PageSize)
	for i := start; i < end; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(content(lines[i])))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", o.path, i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Flush writes the frame contents of page back. Words before and after the
// page are kept byte for byte; inside the page, words that changed are
// replaced up to the first Unused cell. The file is then truncated and
// rewritten.
func (o *ObjectFile) Flush(page int, frame []int) error {
	lines, err := o.read()
	if err != nil {
		return err
	}

	lines = words(lines)
	start := page * machine.PageSize
	for i := 0; i < len(frame) && i < machine.PageSize; i++ {
		if frame[i] == machine.Unused {
			break
		}
		n := start + i
		word := strconv.Itoa(frame[i])
		if n < len(lines) {
			if !sameWord(lines[n], frame[i]) {
				lines[n] = word + terminator(lines[n])
			}
			continue
		}
		if k := len(lines); k > 0 && terminator(lines[k-1]) == "" {
			lines[k-1] += "\n"
		}
		lines = append(lines, word+"\n")
	}

	if err := os.WriteFile(o.path, []byte(strings.Join(lines, "")), 0644); err != nil {
		return err
	}
	o.lines = len(lines)
	return nil
}

// read returns the file split after every newline, terminators kept.
func (o *ObjectFile) read() ([]string, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		return nil, err
	}
	return strings.SplitAfter(string(data), "\n"), nil
}

// words drops the empty tail SplitAfter leaves behind a final newline.
func words(lines []string) []string {
	if n := len(lines); n > 0 && lines[n-1] == "" {
		return lines[:n-1]
	}
	return lines
}

func sameWord(line string, w int) bool {
	v, err := strconv.Atoi(strings.TrimSpace(content(line)))
	return err == nil && v == w
}

func content(line string) string {
	return strings.TrimRight(line, "\r\n")
}

func terminator(line string) string {
	return line[len(content(line)):]
}
