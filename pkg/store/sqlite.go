// Package store persists run step logs in sqlite.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pedro-r-marques/cirunner/pkg/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT NOT NULL PRIMARY KEY,
	workflow TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'running'
);
CREATE TABLE IF NOT EXISTS step_logs (
	run_id TEXT NOT NULL,
	job TEXT NOT NULL,
	step TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	start_time TEXT,
	end_time TEXT,
	status TEXT,
	output BLOB,
	PRIMARY KEY (run_id, job, step, attempt)
);
`

type sqliteStore struct {
	Filename string
	DSN      string
	db       *sql.DB
	mutex    sync.Mutex
}

func NewSqliteStore(filename string) (engine.RunStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filename)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{Filename: filename, DSN: dsn, db: db}, nil
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func upsertLogs(tx *sql.Tx, id uuid.UUID, logs []*engine.LogEntry) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO step_logs
		(run_id, job, step, attempt, start_time, end_time, status, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, l := range logs {
		attempt := l.Attempt
		if attempt == 0 {
			attempt = 1
		}
		_, err := stmt.Exec(id.String(), l.Job, l.Step, attempt,
			encodeTime(l.Start), encodeTime(l.End), string(l.Status), l.Output)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) Update(id uuid.UUID, workflow string, logs []*engine.LogEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO runs (id, workflow) VALUES (?, ?)`,
		id.String(), workflow); err != nil {
		return err
	}
	if err := upsertLogs(tx, id, logs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) OnRunDone(id uuid.UUID, workflow string, status engine.Status, logs []*engine.LogEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO runs (id, workflow) VALUES (?, ?)`,
		id.String(), workflow); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE runs SET status = ? WHERE id = ?`,
		string(status), id.String()); err != nil {
		return err
	}
	if err := upsertLogs(tx, id, logs); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) getRunLogs(id uuid.UUID, running bool) (*engine.RunLogInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var workflow, status string
	err := s.db.QueryRow(`SELECT workflow, status FROM runs WHERE id = ?`, id.String()).
		Scan(&workflow, &status)
	if err != nil {
		return nil, fmt.Errorf("run %v: %w", id, err)
	}
	if running && status != string(engine.StatusRunning) {
		return nil, fmt.Errorf("run %v is not running", id)
	}
	if !running && status == string(engine.StatusRunning) {
		return nil, fmt.Errorf("run %v has not completed", id)
	}

	info := &engine.RunLogInfo{ID: id, Workflow: workflow, Status: engine.Status(status)}
	if info.Status == engine.StatusRunning {
		info.Status = ""
	}

	logs, err := s.queryLogs(id)
	if err != nil {
		return nil, err
	}
	info.Logs = logs
	return info, nil
}

func (s *sqliteStore) queryLogs(id uuid.UUID) ([]*engine.LogEntry, error) {
	rows, err := s.db.Query(`SELECT job, step, attempt, start_time, end_time, status, output
		FROM step_logs WHERE run_id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*engine.LogEntry
	for rows.Next() {
		var entry engine.LogEntry
		var start, end, status string
		if err := rows.Scan(&entry.Job, &entry.Step, &entry.Attempt,
			&start, &end, &status, &entry.Output); err != nil {
			return nil, err
		}
		entry.Start = decodeTime(start)
		entry.End = decodeTime(end)
		entry.Status = engine.Status(status)
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}

func (s *sqliteStore) GetRunningRunLogs(id uuid.UUID) (*engine.RunLogInfo, error) {
	return s.getRunLogs(id, true)
}

func (s *sqliteStore) GetCompletedRunLogs(id uuid.UUID) (*engine.RunLogInfo, error) {
	return s.getRunLogs(id, false)
}

// Recover returns every run left without a final status, oldest first in
// rowid order.
func (s *sqliteStore) Recover() ([]engine.RunLogInfo, error) {
	s.mutex.Lock()
	rows, err := s.db.Query(`SELECT id, workflow FROM runs WHERE status = ?`,
		string(engine.StatusRunning))
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}

	var infos []engine.RunLogInfo
	for rows.Next() {
		var idStr, workflow string
		if err := rows.Scan(&idStr, &workflow); err != nil {
			rows.Close()
			s.mutex.Unlock()
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			rows.Close()
			s.mutex.Unlock()
			return nil, err
		}
		infos = append(infos, engine.RunLogInfo{ID: id, Workflow: workflow})
	}
	rows.Close()
	s.mutex.Unlock()

	for i := range infos {
		logs, err := s.logsLocked(infos[i].ID)
		if err != nil {
			return nil, err
		}
		infos[i].Logs = logs
	}
	return infos, nil
}

func (s *sqliteStore) logsLocked(id uuid.UUID) ([]*engine.LogEntry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queryLogs(id)
}
