// Package split implements the split grouper (spec §4.8): in split mode,
// audit is skipped and statements are merged into grouped output by
// (db, table) and DDL/DML class.
package split

import (
	"fmt"
	"strings"

	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// Grouper accumulates merged groups for one session (spec §4.8).
type Grouper struct {
	currentDB string
	last      *session.SplitGroup
}

func New() *Grouper {
	return &Grouper{}
}

// Feed classifies one statement and either merges it into the previous
// group or starts a new one. It returns (nil, false) for USE/SET
// statements, which update state but produce no row.
func (g *Grouper) Feed(ctx *session.Context, stmt ast.StmtNode, originalText string) (*session.SplitGroup, bool) {
	switch n := stmt.(type) {
	case *ast.UseStmt:
		g.currentDB = n.DBName
		ctx.SetCurrentDB(n.DBName)
		return nil, false
	case *ast.SetStmt:
		return nil, false
	}

	db, table, isDDL := classify(stmt, g.currentDB)

	if g.last != nil && g.last.DB == db && g.last.Table == table && g.last.DDL == isDDL {
		g.last.SQL += strings.TrimSpace(originalText) + ";\n"
		if escalates(stmt) {
			g.last.DDLFlag = 1
		}
		return g.last, true
	}

	id := ctx.NextSplitGroup()
	prefix := fmt.Sprintf("USE %s;\n", firstNonEmpty(g.currentDB, db))
	group := &session.SplitGroup{
		ID:    id,
		SQL:   prefix + strings.TrimSpace(originalText) + ";\n",
		DB:    db,
		Table: table,
		DDL:   isDDL,
	}
	if escalates(stmt) {
		group.DDLFlag = 1
	}
	ctx.AppendSplitGroup(group)
	g.last = group
	return group, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// escalates reports whether stmt forces ddlflag=1 regardless of merge
// state (spec §4.8: "any ALTER TABLE or DROP TABLE in the group").
func escalates(stmt ast.StmtNode) bool {
	switch stmt.(type) {
	case *ast.AlterTableStmt, *ast.DropTableStmt:
		return true
	default:
		return false
	}
}

// classify returns (db, table, isDDL) for stmt, deriving (db, table) from
// the statement's first table reference, or for database-level DDL from
// the statement's name field (spec §4.8).
func classify(stmt ast.StmtNode, currentDB string) (db, table string, isDDL bool) {
	switch n := stmt.(type) {
	case *ast.CreateTableStmt:
		return tableDBTable(n.Table, currentDB)
	case *ast.AlterTableStmt:
		return tableDBTable(n.Table, currentDB)
	case *ast.DropTableStmt:
		if len(n.Tables) > 0 {
			return tableDBTable(n.Tables[0], currentDB)
		}
		return currentDB, "", true
	case *ast.RenameTableStmt:
		if len(n.TableToTables) > 0 {
			return tableDBTable(n.TableToTables[0].OldTable, currentDB)
		}
		return currentDB, "", true
	case *ast.TruncateTableStmt:
		return tableDBTable(n.Table, currentDB)
	case *ast.CreateIndexStmt:
		return tableDBTable(n.Table, currentDB)
	case *ast.DropIndexStmt:
		return tableDBTable(n.Table, currentDB)
	case *ast.CreateViewStmt:
		return tableDBTable(n.ViewName, currentDB)
	case *ast.CreateDatabaseStmt:
		return parsing.ResolveDB(n.Name, currentDB), "", true
	case *ast.DropDatabaseStmt:
		return parsing.ResolveDB(n.Name, currentDB), "", true
	case *ast.AlterDatabaseStmt:
		return parsing.ResolveDB(n.Name, currentDB), "", true
	case *ast.InsertStmt:
		if n.Table != nil {
			return firstTableDBTable(n.Table.TableRefs, currentDB)
		}
		return "", "", false
	case *ast.UpdateStmt:
		if n.TableRefs != nil {
			return firstTableDBTable(n.TableRefs.TableRefs, currentDB)
		}
		return "", "", false
	case *ast.DeleteStmt:
		if n.TableRefs != nil {
			return firstTableDBTable(n.TableRefs.TableRefs, currentDB)
		}
		return "", "", false
	case *ast.SelectStmt:
		if n.From != nil {
			return firstTableDBTable(n.From.TableRefs, currentDB)
		}
		return "", "", false
	default:
		return "", "", false
	}
}

// firstTableDBTable returns the (db, table) of the first real table
// reference found in a FROM/table-ref clause (spec §4.8: "derived from the
// first table in the statement's table list").
func firstTableDBTable(node ast.ResultSetNode, currentDB string) (string, string, bool) {
	refs := parsing.CollectTableRefs(node, currentDB)
	for _, r := range refs {
		if !r.Derived {
			return r.DB, r.Table, false
		}
	}
	return "", "", false
}

func tableDBTable(t *ast.TableName, currentDB string) (string, string, bool) {
	if t == nil {
		return currentDB, "", true
	}
	return parsing.ResolveDB(t.Schema.O, currentDB), t.Name.O, true
}
