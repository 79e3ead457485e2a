// Package auditlog implements the append-only JSON-lines audit log
// (spec §6.2): two record shapes, lazy reopen on path change, one mutex
// held only across a single write, matching design note §9's "small
// writer type with its own mutex".
package auditlog

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const maxSQLLength = 4096

// SessionRecord is the session-level audit log line, emitted at
// magic_commit (spec §6.2).
type SessionRecord struct {
	Time       string `json:"time"`
	Type       string `json:"type"`
	User       string `json:"user"`
	ClientHost string `json:"client_host"`
	Target     string `json:"target"`
	TargetUser string `json:"target_user"`
	Mode       string `json:"mode"`
	Statements int    `json:"statements"`
	Errors     int    `json:"errors"`
	DurationMs int64  `json:"duration_ms"`
}

// StatementRecord is the statement-level audit log line, emitted only in
// execute mode (spec §6.2).
type StatementRecord struct {
	Time         string  `json:"time"`
	Type         string  `json:"type"`
	User         string  `json:"user"`
	ClientHost   string  `json:"client_host"`
	Target       string  `json:"target"`
	ID           int     `json:"id"`
	SQL          string  `json:"sql"`
	Result       string  `json:"result"`
	AffectedRows int64   `json:"affected_rows"`
	ExecuteTime  float64 `json:"execute_time"`
}

// Writer appends JSON lines to a configurable path, reopening lazily
// whenever the path changes (spec §6.2 "Reopen lazily when the configured
// path changes"). The mutex (spec §5 "guarded by a dedicated mutex") is
// held only across a single write.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func New() *Writer {
	return &Writer{}
}

// SetPath updates the target path; the next Write call reopens lazily.
func (w *Writer) SetPath(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if path == w.path {
		return
	}
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	w.path = path
}

func (w *Writer) ensureOpen() error {
	if w.path == "" {
		return errors.New("audit log path is not configured")
	}
	if w.f != nil {
		return nil
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "open audit log %s", w.path)
	}
	w.f = f
	return nil
}

func (w *Writer) write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureOpen(); err != nil {
		return err
	}
	line, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal audit log record")
	}
	line = append(line, '\n')
	_, err = w.f.Write(line)
	return err
}

// WriteSession appends one session-level record.
func (w *Writer) WriteSession(rec SessionRecord) error {
	rec.Type = "session"
	rec.Time = nowISO8601()
	return w.write(rec)
}

// WriteStatement appends one statement-level record, escaping and
// truncating its SQL text per spec §6.2.
func (w *Writer) WriteStatement(rec StatementRecord) error {
	rec.Type = "statement"
	rec.Time = nowISO8601()
	rec.SQL = truncateSQL(rec.SQL)
	return w.write(rec)
}

// Close releases the underlying file handle, if open.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func nowISO8601() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// truncateSQL implements the "<escaped,truncated@4096>" rule (spec §6.2).
// Escaping itself (backslash, quote, control characters) is left to
// encoding/json, which already produces the required `\n`/`\r`/`\t`/
// `\u00XX` forms; this only enforces the length cap.
func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLength {
		return sql
	}
	return strings.ToValidUTF8(sql[:maxSQLLength], "")
}
