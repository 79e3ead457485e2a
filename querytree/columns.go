package querytree

import (
	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/parsing"
)

// columnCollector walks an expression tree and gathers every column
// reference it contains, regardless of how deeply it is nested inside
// conditional, functional, aggregate, subselect, or row expressions (spec
// §4.7 "Column resolution walks the expression tree recursively").
type columnCollector struct {
	cols []*ast.ColumnNameExpr
}

func (c *columnCollector) Enter(n ast.Node) (ast.Node, bool) {
	if col, ok := n.(*ast.ColumnNameExpr); ok {
		c.cols = append(c.cols, col)
	}
	return n, false
}

func (c *columnCollector) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

func collectColumnRefs(expr ast.ExprNode) []*ast.ColumnNameExpr {
	if expr == nil {
		return nil
	}
	c := &columnCollector{}
	expr.Accept(c)
	return c.cols
}

// addExprColumns resolves every column reference in expr against tables
// and appends a ColumnEntry per reference into t's bucket.
func addExprColumns(t *Tree, bucket string, expr ast.ExprNode, tables []parsing.TableRef) {
	for _, col := range collectColumnRefs(expr) {
		db, table, _ := parsing.ResolveColumnTable(col.Name.Table.O, tables)
		t.addColumn(bucket, ColumnEntry{DB: db, Table: table, Column: col.Name.Name.O})
	}
}
