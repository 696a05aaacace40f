package disk

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// StackFile keeps a process stack while it is switched out. Words are
// stored bottom first: line 0 is the top of memory.
type StackFile struct {
	path string
}

// NewStackFile returns a stack file at path. Nothing is created until Save.
func NewStackFile(path string) *StackFile {
	return &StackFile{path: path}
}

// Path returns the file name
func (s *StackFile) Path() string {
	return s.path
}

// Save writes words, bottom of the stack first.
func (s *StackFile) Save(words []int) error {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strconv.Itoa(w))
		b.WriteByte('\n')
	}
	return os.WriteFile(s.path, []byte(b.String()), 0644)
}

// Load returns the saved words. A missing file is an empty stack.
func (s *StackFile) Load() ([]int, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []int
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		w, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, n, err)
		}
		words = append(words, w)
	}
	return words, scanner.Err()
}

// Remove deletes the file. A missing file is not an error.
func (s *StackFile) Remove() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
