package parsing

import (
	"github.com/pingcap/parser/ast"
)

// TableRef is the (db, table, alias, derived) tuple the spec's §6.4 AST
// contract requires the core to be able to read off of any referenced
// table, real or derived (subquery).
type TableRef struct {
	DB      string
	Table   string
	Alias   string
	Derived bool
}

// ResolveDB fills in db with currentDB when the AST didn't carry an
// explicit schema qualifier.
func ResolveDB(db, currentDB string) string {
	if db != "" {
		return db
	}
	return currentDB
}

// CollectTableRefs walks a FROM clause (or any ResultSetNode reachable from
// one) and returns every table reference it finds, including those nested
// inside JOINs. Derived tables (subqueries in FROM) are reported with
// Derived=true and an empty DB/Table — callers resolve their columns from
// the alias only, per spec §4.7 column-resolution rule.
func CollectTableRefs(node ast.ResultSetNode, currentDB string) []TableRef {
	var out []TableRef
	collectFromResultSetNode(node, currentDB, &out)
	return out
}

func collectFromResultSetNode(node ast.ResultSetNode, currentDB string, out *[]TableRef) {
	switch n := node.(type) {
	case nil:
		return
	case *ast.Join:
		if n.Left != nil {
			collectFromResultSetNode(n.Left, currentDB, out)
		}
		if n.Right != nil {
			collectFromResultSetNode(n.Right, currentDB, out)
		}
	case *ast.TableSource:
		alias := n.AsName.O
		switch src := n.Source.(type) {
		case *ast.TableName:
			*out = append(*out, TableRef{
				DB:    ResolveDB(src.Schema.O, currentDB),
				Table: src.Name.O,
				Alias: firstNonEmpty(alias, src.Name.O),
			})
		default:
			// Derived table: subquery, VALUES clause, or another join.
			*out = append(*out, TableRef{Alias: alias, Derived: true})
			if rs, ok := src.(ast.ResultSetNode); ok {
				collectFromResultSetNode(rs, currentDB, out)
			}
		}
	case *ast.TableName:
		*out = append(*out, TableRef{
			DB:    ResolveDB(n.Schema.O, currentDB),
			Table: n.Name.O,
			Alias: n.Name.O,
		})
	case *ast.SelectStmt:
		if n.From != nil {
			collectFromResultSetNode(n.From.TableRefs, currentDB, out)
		}
	case *ast.UnionStmt:
		for _, sel := range n.SelectList.Selects {
			collectFromResultSetNode(sel, currentDB, out)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// FromClauseTables returns the FROM-clause table refs of a SELECT/UPDATE/
// DELETE statement's TableRefsClause, or nil if the statement has none.
func FromClauseTables(refs *ast.TableRefsClause, currentDB string) []TableRef {
	if refs == nil {
		return nil
	}
	return CollectTableRefs(refs.TableRefs, currentDB)
}

// ResolveColumnTable implements the §4.7 field-reference resolution rule:
// if the reference is explicitly qualified, match by alias then by real
// name; otherwise, if there is exactly one non-derived table in scope,
// attribute to it; otherwise leave db/table empty.
func ResolveColumnTable(qualifier string, tables []TableRef) (db, table string, ok bool) {
	if qualifier != "" {
		for _, t := range tables {
			if t.Alias == qualifier {
				return t.DB, t.Table, true
			}
		}
		for _, t := range tables {
			if t.Table == qualifier {
				return t.DB, t.Table, true
			}
		}
		return "", "", false
	}
	var real []TableRef
	for _, t := range tables {
		if !t.Derived {
			real = append(real, t)
		}
	}
	if len(real) == 1 {
		return real[0].DB, real[0].Table, true
	}
	return "", "", false
}
