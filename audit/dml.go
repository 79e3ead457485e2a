package audit

import (
	"strings"

	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/remote"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// auditUpdate implements the UPDATE rule family (spec §4.3 "DML"):
// without-WHERE error, LIMIT/ORDER BY warnings and the row-count-estimate
// cap. The DeleteSeverity knob is applied by auditDelete only.
func (e *Engine) auditUpdate(ctx *session.Context, stmt *session.Statement, n *ast.UpdateStmt, currentDB string, profile session.Profile) {
	var tables []parsing.TableRef
	if n.TableRefs != nil {
		tables = parsing.CollectTableRefs(n.TableRefs.TableRefs, currentDB)
	}
	setTargetName(stmt, tables)

	e.checkDMLWhereLimitOrder(stmt, n.Where, n.Order, n.Limit)

	if len(tables) == 1 && !tables[0].Derived {
		e.estimateDMLRows(stmt, tables[0].DB, tables[0].Table, profile)
	}
	e.checkInClauseCap(stmt, n.Where)
}

// auditDelete implements the DELETE rule family, including the
// configurable global DeleteSeverity knob (spec "DELETE severity knob
// (O/W/E, global)").
func (e *Engine) auditDelete(ctx *session.Context, stmt *session.Statement, n *ast.DeleteStmt, currentDB string, profile session.Profile) {
	var tables []parsing.TableRef
	if n.TableRefs != nil {
		tables = parsing.CollectTableRefs(n.TableRefs.TableRefs, currentDB)
	}
	setTargetName(stmt, tables)

	report(stmt, e.Rules.DeleteSeverity, "DELETE statements are subject to the configured severity knob.")
	e.checkDMLWhereLimitOrder(stmt, n.Where, n.Order, n.Limit)

	if len(tables) == 1 && !tables[0].Derived {
		e.estimateDMLRows(stmt, tables[0].DB, tables[0].Table, profile)
	}
	e.checkInClauseCap(stmt, n.Where)
}

func setTargetName(stmt *session.Statement, tables []parsing.TableRef) {
	for _, t := range tables {
		if !t.Derived {
			stmt.DBName, stmt.TableName = t.DB, t.Table
			return
		}
	}
}

// checkDMLWhereLimitOrder implements "UPDATE/DELETE without WHERE (E);
// with LIMIT (O); with ORDER BY (W)".
func (e *Engine) checkDMLWhereLimitOrder(stmt *session.Statement, where ast.ExprNode, order *ast.OrderByClause, limit *ast.Limit) {
	if where == nil {
		report(stmt, e.Rules.ForbidDMLWithoutWhere, "Statement has no WHERE clause.")
	}
	if limit != nil {
		report(stmt, e.Rules.DMLWithLimit, "Statement has a LIMIT clause.")
	}
	if order != nil {
		report(stmt, e.Rules.DMLWithOrderBy, "Statement has an ORDER BY clause.")
	}
}

// estimateDMLRows implements "Row-count estimate via EXPLAIN ...,
// falling back to information_schema.TABLES.TABLE_ROWS" (spec §4.3),
// warning once the estimate crosses MaxRowsEstimate.
func (e *Engine) estimateDMLRows(stmt *session.Statement, db, table string, profile session.Profile) {
	if e.Prober == nil || db == "" || table == "" || stmt.OriginalText == "" {
		return
	}
	rp := remote.Profile{IsTiDB: profile.IsTiDB, Major: profile.Major, Minor: profile.Minor}
	rows, err := e.Prober.EstimateRows(db, table, rp, stmt.OriginalText)
	if err != nil {
		return
	}
	stmt.AffectedRows = rows
	if e.Rules.MaxRowsEstimate > 0 && rows > int64(e.Rules.MaxRowsEstimate) {
		report(stmt, config.Warn, "Estimated %d rows affected, exceeding the cap of %d.", rows, e.Rules.MaxRowsEstimate)
	}
}

// checkInClauseCap implements "IN (...) cap on element count (O)" by
// walking the WHERE tree for PatternInExpr nodes.
func (e *Engine) checkInClauseCap(stmt *session.Statement, where ast.ExprNode) {
	if e.Rules.MaxInElements <= 0 || where == nil {
		return
	}
	w := &inClauseWalker{
		cap: e.Rules.MaxInElements,
		report: func(n int) {
			report(stmt, config.Warn, "IN (...) clause has %d elements, exceeding the cap of %d.", n, e.Rules.MaxInElements)
		},
	}
	where.Accept(w)
}

type inClauseWalker struct {
	cap    int
	report func(n int)
}

func (w *inClauseWalker) Enter(n ast.Node) (ast.Node, bool) {
	if in, ok := n.(*ast.PatternInExpr); ok && in.Sel == nil {
		if len(in.List) > w.cap {
			w.report(len(in.List))
		}
	}
	return n, false
}

func (w *inClauseWalker) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

// auditInsert implements the INSERT rule family (spec §4.3 "INSERT must
// list columns (E); column/value count mismatch (E); duplicate column (E);
// column exists in target table (E). INSERT…SELECT without WHERE (E)").
func (e *Engine) auditInsert(ctx *session.Context, stmt *session.Statement, n *ast.InsertStmt, currentDB string) {
	var tables []parsing.TableRef
	if n.Table != nil {
		tables = parsing.CollectTableRefs(n.Table.TableRefs, currentDB)
	}
	setTargetName(stmt, tables)

	if len(n.Columns) == 0 && len(n.Setlist) == 0 {
		report(stmt, e.Rules.InsertMustListColumns, "INSERT must explicitly list target columns.")
	}

	seen := make(map[string]bool, len(n.Columns))
	for _, col := range n.Columns {
		name := strings.ToLower(col.Name.O)
		if seen[name] {
			report(stmt, e.Rules.InsertDuplicateColumn, "Column %q is listed more than once.", col.Name.O)
		}
		seen[name] = true
		if stmt.DBName != "" && stmt.TableName != "" {
			if exists, ok := e.probeColumnExists(stmt, stmt.DBName, stmt.TableName, col.Name.O); ok && !exists {
				report(stmt, e.Rules.InsertColumnExistsInTarget, "Column %q does not exist on the target table.", col.Name.O)
			}
		}
	}

	for _, row := range n.Lists {
		if len(n.Columns) > 0 && len(row) != len(n.Columns) {
			report(stmt, e.Rules.InsertColumnValueMismatch, "Value list has %d values but %d columns were listed.", len(row), len(n.Columns))
		}
	}

	if n.Select != nil {
		var selWhere ast.ExprNode
		if sel, ok := n.Select.(*ast.SelectStmt); ok {
			selWhere = sel.Where
		}
		if selWhere == nil {
			report(stmt, e.Rules.InsertSelectWithoutWhere, "INSERT ... SELECT has no WHERE clause.")
		}
	}
}

// auditSelect implements "SELECT * (O); ORDER BY RAND() (W)".
func (e *Engine) auditSelect(ctx *session.Context, stmt *session.Statement, n *ast.SelectStmt, currentDB string) {
	if n.Fields != nil {
		for _, f := range n.Fields.Fields {
			if f.WildCard != nil {
				report(stmt, e.Rules.ForbidSelectStar, "SELECT * is discouraged; list explicit columns.")
			}
		}
	}
	if n.OrderBy != nil {
		for _, item := range n.OrderBy.Items {
			if call, ok := item.Expr.(*ast.FuncCallExpr); ok && strings.EqualFold(call.FnName.O, "rand") {
				report(stmt, e.Rules.OrderByRand, "ORDER BY RAND() is expensive on large tables.")
			}
		}
	}
	e.checkInClauseCap(stmt, n.Where)
}
