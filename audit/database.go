package audit

import (
	"strings"

	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/audit/batchschema"
	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// auditCreateDatabase implements the "CREATE DATABASE db: remote-existing
// (E)" rule (spec §4.3 "Object existence") plus the identifier-length and
// charset-whitelist checks shared with CREATE TABLE.
func (e *Engine) auditCreateDatabase(ctx *session.Context, stmt *session.Statement, n *ast.CreateDatabaseStmt, currentDB string) {
	db := n.Name
	stmt.DBName = db

	if len(db) > e.Rules.MaxDatabaseNameLength {
		report(stmt, config.Warn, "Database name %q exceeds the maximum length of %d.", db, e.Rules.MaxDatabaseNameLength)
	}

	if batchschema.DatabaseTracked(ctx.Batch, db) {
		report(stmt, config.Error, "Database %q already exists in this batch.", db)
	} else if exists, ok := e.probeDBExists(stmt, db); ok && exists {
		report(stmt, config.Error, "Database %q already exists.", db)
	}

	if charset := createDatabaseCharset(n); charset != "" && !charsetAllowed(e.Rules, charset) {
		report(stmt, config.Error, "Charset %q is not in the allowed charset list.", charset)
	}

	if stmt.ErrLevel != session.LevelError {
		_ = batchschema.CreateDatabase(ctx.Batch, db)
	}
}

func createDatabaseCharset(n *ast.CreateDatabaseStmt) string {
	for _, opt := range n.Options {
		if opt.Tp == ast.DatabaseOptionCharset {
			return opt.Value
		}
	}
	return ""
}

func charsetAllowed(rules *config.Rules, charset string) bool {
	if len(rules.AllowedCharsets) == 0 {
		return true
	}
	for _, c := range rules.AllowedCharsets {
		if strings.EqualFold(c, charset) {
			return true
		}
	}
	return false
}

// auditDropDatabase implements "DROP DATABASE db: remote-missing (W) + DDL
// severity knob" (spec §4.3). The two severities combine per spec: the
// statement's errlevel rises to the worse of the two when both fire.
func (e *Engine) auditDropDatabase(ctx *session.Context, stmt *session.Statement, n *ast.DropDatabaseStmt, currentDB string) {
	db := n.Name
	stmt.DBName = db

	tracked := batchschema.DatabaseTracked(ctx.Batch, db)
	if !tracked {
		if exists, ok := e.probeDBExists(stmt, db); ok && !exists {
			report(stmt, config.Warn, "Database %q does not exist.", db)
		}
	}
	report(stmt, e.Rules.DropDatabaseMissing, "DROP DATABASE on %q is subject to the configured DDL severity.", db)

	delete(ctx.Batch.Databases, strings.ToLower(db))
}
