package teletype

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// Open returns a teletype on files: input from inPath, which may be
// missing, output to outPath, created or truncated.
func Open(pid int, inPath, outPath string) (*Teletype, error) {
	var in io.Reader
	var closers []io.Closer

	f, err := os.Open(inPath)
	switch {
	case err == nil:
		in = f
		closers = append(closers, f)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	out, err := os.Create(outPath)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	closers = append(closers, out)

	t := New(pid, in, out)
	t.closers = closers
	return t, nil
}
