// Package resultset shapes session state into the mode-specific result
// sets the commit sentinel returns (spec §4.9). The teacher never owns
// result-set assembly itself (it scatters queries to sharded backends and
// returns their own result sets untouched), so this package's row/column
// shapes are new, written in the teacher's general struct-and-method idiom.
package resultset

import (
	"fmt"
	"time"

	"github.com/hanchuanchuan/goinception-gateway/session"
)

// ResultSet is a column-named, row-oriented table, generic enough to cover
// every mode-specific shape in spec §4.9.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

func dbType(p session.Profile) string {
	if p.IsTiDB {
		return "TiDB"
	}
	return "MySQL"
}

func dbVersion(p session.Profile) string {
	return fmt.Sprintf("%d.%d", p.Major, p.Minor)
}

// Audit builds the 15-column check/execute result set, one row per
// statement, in stream order (spec §4.9 "Check/Execute mode").
func Audit(ctx *session.Context) *ResultSet {
	rs := &ResultSet{Columns: []string{
		"id", "stage", "err_level", "stage_status", "err_message", "sql_text",
		"affected_rows", "sequence", "backup_dbname", "execute_time", "sql_sha1",
		"sql_type", "ddl_algorithm", "db_type", "db_version",
	}}
	for _, s := range ctx.Statements {
		rs.Rows = append(rs.Rows, []interface{}{
			s.ID,
			s.Stage.String(),
			int(s.ErrLevel),
			s.StageStatus,
			s.ErrMessage(),
			s.OriginalText,
			s.AffectedRows,
			s.SequenceToken,
			s.BackupDBID,
			s.ExecuteTime.Seconds(),
			s.SQLSHA1,
			s.SQLType(),
			s.DDLAlgorithm.String(),
			dbType(ctx.Profile),
			dbVersion(ctx.Profile),
		})
	}
	return rs
}

// Split builds the 3-column split-mode result set, one row per merged
// group (spec §4.9 "Split mode").
func Split(ctx *session.Context) *ResultSet {
	rs := &ResultSet{Columns: []string{"id", "sql_statement", "ddlflag"}}
	for _, g := range ctx.SplitGroups {
		rs.Rows = append(rs.Rows, []interface{}{g.ID, g.SQL, g.DDLFlag})
	}
	return rs
}

// Tree builds the 3-column query-tree result set, one row per statement
// with a tree document (spec §4.9 "Query-tree mode").
func Tree(ctx *session.Context) *ResultSet {
	rs := &ResultSet{Columns: []string{"id", "sql_text", "query_tree"}}
	for _, t := range ctx.Trees {
		rs.Rows = append(rs.Rows, []interface{}{t.ID, t.SQL, t.Tree})
	}
	return rs
}

// Sessions builds the 12-column `inception show sessions` result set
// (spec §4.9, §4.10).
func Sessions(contexts []*session.Context) *ResultSet {
	rs := &ResultSet{Columns: []string{
		"thread_id", "host", "port", "user", "mode", "db_type", "sleep_ms",
		"total_sql", "executed_sql", "elapsed", "threads_running", "repl_delay",
	}}
	for _, c := range contexts {
		executed := 0
		for _, s := range c.Statements {
			if s.Stage == session.StageExecuted {
				executed++
			}
		}
		replDelay := interface{}(nil)
		if c.Snapshot.MaxReplicationDelay >= 0 {
			replDelay = c.Snapshot.MaxReplicationDelay
		}
		rs.Rows = append(rs.Rows, []interface{}{
			c.ConnectionID,
			c.Host,
			c.Port,
			c.User,
			c.Mode.String(),
			dbType(c.Profile),
			c.GetSleepMs(),
			len(c.Statements),
			executed,
			elapsedSeconds(c),
			c.Snapshot.ThreadsRunning,
			replDelay,
		})
	}
	return rs
}

func elapsedSeconds(c *session.Context) float64 {
	if c.StartedAt.IsZero() {
		return 0
	}
	return time.Since(c.StartedAt).Seconds()
}

// EncryptPassword builds the 1-column, 1-row result set for `inception get
// encrypt_password '<plain>'` (spec §4.9).
func EncryptPassword(encrypted string) *ResultSet {
	return &ResultSet{
		Columns: []string{"encrypt_password"},
		Rows:    [][]interface{}{{encrypted}},
	}
}

// SQLType is one row of the `inception get sqltypes` reference catalogue.
type SQLType struct {
	Name        string
	Description string
}

// sqlTypeCatalogue enumerates the statement kinds the audit engine
// recognises, mirroring the SQLCommand values set in audit/engine.go.
var sqlTypeCatalogue = []SQLType{
	{"CREATE_DATABASE", "CREATE DATABASE"},
	{"DROP_DATABASE", "DROP DATABASE"},
	{"CREATE_TABLE", "CREATE TABLE"},
	{"ALTER_TABLE", "ALTER TABLE"},
	{"DROP_TABLE", "DROP TABLE"},
	{"TRUNCATE_TABLE", "TRUNCATE TABLE"},
	{"INSERT", "INSERT"},
	{"REPLACE", "REPLACE"},
	{"UPDATE", "UPDATE"},
	{"DELETE", "DELETE"},
	{"SELECT", "SELECT"},
	{"OTHER", "Any statement without a dedicated rule family"},
}

// SQLTypes builds the result set for `inception get sqltypes` (spec §4.9,
// §4.10).
func SQLTypes() *ResultSet {
	rs := &ResultSet{Columns: []string{"sql_type", "description"}}
	for _, t := range sqlTypeCatalogue {
		rs.Rows = append(rs.Rows, []interface{}{t.Name, t.Description})
	}
	return rs
}
