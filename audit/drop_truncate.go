package audit

import (
	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/audit/batchschema"
	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// auditDropTable implements the universal finalisation for DROP TABLE:
// it records the target, warns when a table unknown to this batch is also
// missing on the remote and the statement lacks IF EXISTS, and erases the
// batch-schema entry.
func (e *Engine) auditDropTable(ctx *session.Context, stmt *session.Statement, n *ast.DropTableStmt, currentDB string) {
	if len(n.Tables) == 0 {
		return
	}
	t := n.Tables[0]
	db := parsing.ResolveDB(t.Schema.O, currentDB)
	table := t.Name.O
	stmt.DBName, stmt.TableName = db, table

	if !batchKeyExists(ctx, db, table) {
		if exists, ok := e.probeTableExists(stmt, db, table); ok && !exists && !n.IfExists {
			report(stmt, config.Warn, "Table %q.%q does not exist.", db, table)
		}
	}
	batchschema.DropTable(ctx.Batch, db, table)
}

func (e *Engine) auditTruncateTable(ctx *session.Context, stmt *session.Statement, n *ast.TruncateTableStmt, currentDB string) {
	db := parsing.ResolveDB(n.Table.Schema.O, currentDB)
	table := n.Table.Name.O
	stmt.DBName, stmt.TableName = db, table

	if !batchKeyExists(ctx, db, table) {
		if exists, ok := e.probeTableExists(stmt, db, table); ok && !exists {
			report(stmt, config.Error, "Table %q.%q does not exist.", db, table)
		}
	}
}
