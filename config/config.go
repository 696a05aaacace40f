// Package config collects the settings of a run: defaults from the
// environment (and a .env file), overridden by command line flags.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// environment variables
const (
	EnvPolicy   = "VMOS_POLICY"
	EnvLogLevel = "VMOS_LOG_LEVEL"
	EnvLogFile  = "VMOS_LOG_FILE"
	EnvTraceDB  = "VMOS_TRACE_DB"
)

// DefaultPolicy is used when neither the environment nor a flag names one.
const DefaultPolicy = "fifo"

var (
	ErrNoPrograms = errors.New("no programs to run")
	ErrPolicy     = errors.New("policy must be fifo or lru")
)

// Config is everything a run needs.
type Config struct {
	// Programs are paths with or without extension. ProgramList names a
	// file listing more, one per line; Dir is scanned for *.s and *.o.
	Programs    []string
	ProgramList string
	Dir         string

	Policy   string
	LogLevel string
	LogFile  string
	TraceDB  string

	// TUI runs under the terminal monitor, sleeping Delay after each slice.
	TUI   bool
	Delay time.Duration
}

// Load returns the defaults taken from the environment. The given .env
// files are read first, without overriding variables already set; a
// missing file is skipped. With no files, ./.env is tried.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("%s: %w", f, err)
		}
	}

	c := Config{
		Policy:   os.Getenv(EnvPolicy),
		LogLevel: os.Getenv(EnvLogLevel),
		LogFile:  os.Getenv(EnvLogFile),
		TraceDB:  os.Getenv(EnvTraceDB),
	}
	if c.Policy == "" {
		c.Policy = DefaultPolicy
	}
	return c, nil
}

// Validate checks the policy and that there is something to run.
func (c Config) Validate() error {
	switch c.Policy {
	case "fifo", "lru":
	default:
		return fmt.Errorf("%w, got %q", ErrPolicy, c.Policy)
	}
	if c.Delay < 0 {
		return fmt.Errorf("negative delay %s", c.Delay)
	}
	if len(c.Programs) == 0 && c.ProgramList == "" && c.Dir == "" {
		return ErrNoPrograms
	}
	return nil
}

// ProgramPaths returns the programs to admit, in order: the positional
// ones, then those of the list file, then the directory scan.
func (c Config) ProgramPaths() ([]string, error) {
	paths := append([]string(nil), c.Programs...)

	if c.ProgramList != "" {
		listed, err := readList(c.ProgramList)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	if c.Dir != "" {
		found, err := scan(c.Dir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}

	if len(paths) == 0 {
		return nil, ErrNoPrograms
	}
	return paths, nil
}

// readList reads one program per line. Blank lines and lines starting
// with # are skipped; relative paths are taken from the list's directory.
func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var paths []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}
		paths = append(paths, line)
	}
	return paths, s.Err()
}

// scan lists the programs of dir by name. A program with both a source
// and an object file is listed once, by its source.
func scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	found := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		switch ext {
		case ".s":
			found[base] = name
		case ".o":
			if _, ok := found[base]; !ok {
				found[base] = name
			}
		}
	}

	bases := make([]string, 0, len(found))
	for b := range found {
		bases = append(bases, b)
	}
	sort.Strings(bases)

	paths := make([]string, 0, len(bases))
	for _, b := range bases {
		paths = append(paths, filepath.Join(dir, found[b]))
	}
	return paths, nil
}
