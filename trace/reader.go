package trace

import (
	"database/sql"
)

// KindCount is the number of events of one kind.
type KindCount struct {
	Kind  string
	Count int
}

// ProcessSummary aggregates the events of one process.
type ProcessSummary struct {
	PID        int
	Name       string
	Dispatches int
	PageIns    int
	Evictions  int
	LastClock  int
	Final      string // halt, suspend or the last event kind
}

// SQLiteReader reads back a database written by SQLiteWriter.
type SQLiteReader struct {
	*sql.DB

	filename string
}

// NewSQLiteReader creates a reader for filename.
func NewSQLiteReader(filename string) *SQLiteReader {
	return &SQLiteReader{filename: filename}
}

// Init opens the database.
func (r *SQLiteReader) Init() error {
	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		return err
	}
	r.DB = db
	return db.Ping()
}

// Runs lists the run ids in the database, oldest first.
func (r *SQLiteReader) Runs() ([]string, error) {
	rows, err := r.Query("SELECT run_id FROM event GROUP BY run_id ORDER BY min(rowid)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Kinds counts the events of run by kind.
func (r *SQLiteReader) Kinds(run string) ([]KindCount, error) {
	rows, err := r.Query("SELECT kind, count(*) FROM event WHERE run_id = ? GROUP BY kind ORDER BY kind", run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []KindCount
	for rows.Next() {
		var c KindCount
		if err := rows.Scan(&c.Kind, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Processes summarizes every process of run, by pid.
func (r *SQLiteReader) Processes(run string) ([]ProcessSummary, error) {
	rows, err := r.Query(`
		SELECT pid, name,
			sum(kind = 'dispatch'), sum(kind = 'page-in'), sum(kind = 'evict'),
			max(clock),
			(SELECT e.kind FROM event e WHERE e.run_id = event.run_id AND e.pid = event.pid
				ORDER BY e.seq DESC LIMIT 1)
		FROM event
		WHERE run_id = ?
		GROUP BY pid
		ORDER BY pid`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var procs []ProcessSummary
	for rows.Next() {
		var p ProcessSummary
		if err := rows.Scan(&p.PID, &p.Name, &p.Dispatches, &p.PageIns, &p.Evictions, &p.LastClock, &p.Final); err != nil {
			return nil, err
		}
		procs = append(procs, p)
	}
	return procs, rows.Err()
}
