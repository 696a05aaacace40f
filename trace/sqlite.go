// Package trace stores scheduler events in a SQLite database, one row per
// event, so that a run can be inspected after the fact.
package trace

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"vmos/system"
)

// ErrExists is returned by Init when the database file is already there.
var ErrExists = errors.New("trace database exists")

// SQLiteWriter is a system.Tracer writing events to a SQLite database.
// Events are buffered and written in batches, one transaction each.
type SQLiteWriter struct {
	*sql.DB
	statement *sql.Stmt

	path      string
	runID     string
	batchSize int
	seq       int
	pending   []system.Event

	// first error hit while tracing, returned by Flush and Close
	err error
}

// NewSQLiteWriter creates a writer for path. An empty path gets a name
// made of the run id. Buffered events are flushed when the program exits
// through atexit.
func NewSQLiteWriter(path string) *SQLiteWriter {
	w := &SQLiteWriter{
		path:      path,
		runID:     xid.New().String(),
		batchSize: 1000,
	}
	if w.path == "" {
		w.path = "vmos_trace_" + w.runID
	}
	if filepath.Ext(w.path) == "" {
		w.path += ".sqlite3"
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// Path returns the database file name.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// RunID identifies the rows of this run.
func (w *SQLiteWriter) RunID() string {
	return w.runID
}

// Init creates the database and its table.
func (w *SQLiteWriter) Init() error {
	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("%s: %w", w.path, ErrExists)
	}

	db, err := sql.Open("sqlite3", w.path)
	if err != nil {
		return err
	}
	w.DB = db

	if err := w.createTable(); err != nil {
		return err
	}
	return w.prepareStatement()
}

// Trace buffers e, writing the batch once it is full.
func (w *SQLiteWriter) Trace(e system.Event) {
	w.seq++
	w.pending = append(w.pending, e)
	if len(w.pending) >= w.batchSize {
		w.Flush()
	}
}

// Flush writes all the buffered events to the database.
func (w *SQLiteWriter) Flush() error {
	if len(w.pending) == 0 || w.statement == nil {
		return w.err
	}

	tx, err := w.Begin()
	if err != nil {
		return w.keep(err)
	}
	stmt := tx.Stmt(w.statement)
	seq := w.seq - len(w.pending)
	for _, e := range w.pending {
		seq++
		_, err := stmt.Exec(
			w.runID, seq, string(e.Kind), e.Clock, e.PID, e.Name,
			e.PC, e.StackPointer,
			e.Registers[0], e.Registers[1], e.Registers[2], e.Registers[3],
			e.Status.Reason.String(), e.Status.PageFault,
			e.Page, e.Frame,
		)
		if err != nil {
			tx.Rollback()
			return w.keep(fmt.Errorf("insert %s event of pid %d: %w", e.Kind, e.PID, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return w.keep(err)
	}

	w.pending = nil
	return w.err
}

// Close flushes what is left and closes the database.
func (w *SQLiteWriter) Close() error {
	err := w.Flush()
	if w.DB == nil {
		return err
	}
	if w.statement != nil {
		w.statement.Close()
	}
	if cerr := w.DB.Close(); err == nil {
		err = cerr
	}
	w.DB = nil
	w.statement = nil
	return err
}

func (w *SQLiteWriter) keep(err error) error {
	if w.err == nil {
		w.err = err
	}
	return err
}

func (w *SQLiteWriter) createTable() error {
	_, err := w.Exec(`
		create table event
		(
			run_id     varchar(20)  not null,
			seq        integer      not null,
			kind       varchar(20)  not null,
			clock      integer      not null,
			pid        integer      not null,
			name       varchar(100) default '',
			pc         integer      default 0,
			sp         integer      default 0,
			r0         integer      default 0,
			r1         integer      default 0,
			r2         integer      default 0,
			r3         integer      default 0,
			reason     varchar(20)  default '',
			page_fault boolean      default false,
			page       integer      default -1,
			frame      integer      default -1
		);
	`)
	if err != nil {
		return err
	}

	for _, column := range []string{"kind", "pid", "clock"} {
		_, err := w.Exec(fmt.Sprintf("create index event_%s_index on event (%s);", column, column))
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *SQLiteWriter) prepareStatement() error {
	stmt, err := w.Prepare(`INSERT INTO event VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	w.statement = stmt
	return nil
}
