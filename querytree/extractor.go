package querytree

import (
	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/parsing"
)

// Extractor builds a Tree for one statement (spec §4.7).
type Extractor struct {
	Expander *Expander
}

func New(expander *Expander) *Extractor {
	return &Extractor{Expander: expander}
}

// Extract dispatches on the statement's concrete AST type. Statement types
// outside the SELECT/INSERT/UPDATE/DELETE family (DDL, admin) produce a
// bare Tree with no tables/columns, since the extractor's bucket shapes are
// only defined for DML (spec §4.7).
func (x *Extractor) Extract(stmt ast.StmtNode, currentDB string) *Tree {
	switch n := stmt.(type) {
	case *ast.SelectStmt:
		t := newTree("SELECT")
		x.fillSelect(t, n, currentDB)
		return t
	case *ast.InsertStmt:
		sqlType := "INSERT"
		if n.IsReplace {
			sqlType = "REPLACE"
		}
		t := newTree(sqlType)
		x.fillInsert(t, n, currentDB)
		return t
	case *ast.UpdateStmt:
		t := newTree("UPDATE")
		x.fillUpdate(t, n, currentDB)
		return t
	case *ast.DeleteStmt:
		t := newTree("DELETE")
		x.fillDelete(t, n, currentDB)
		return t
	default:
		return newTree(sqlTypeName(stmt))
	}
}

func sqlTypeName(stmt ast.StmtNode) string {
	switch stmt.(type) {
	case *ast.CreateTableStmt:
		return "CREATE_TABLE"
	case *ast.AlterTableStmt:
		return "ALTER_TABLE"
	case *ast.DropTableStmt:
		return "DROP_TABLE"
	case *ast.CreateDatabaseStmt:
		return "CREATE_DATABASE"
	case *ast.DropDatabaseStmt:
		return "DROP_DATABASE"
	default:
		return "OTHER"
	}
}

func (x *Extractor) fillSelect(t *Tree, n *ast.SelectStmt, currentDB string) {
	var tables []parsing.TableRef
	if n.From != nil {
		tables = parsing.CollectTableRefs(n.From.TableRefs, currentDB)
	}
	for _, tr := range tables {
		typ := "read"
		t.addTable(TableEntry{DB: tr.DB, Table: tr.Table, Alias: tr.Alias, Type: typ})
	}

	if n.Fields != nil {
		for _, f := range n.Fields.Fields {
			if f.WildCard != nil {
				x.Expander.expandWildcard(t, "select", f.WildCard.Table.O, tables)
				continue
			}
			addExprColumns(t, "select", f.Expr, tables)
		}
	}

	addExprColumns(t, "where", n.Where, tables)

	if n.From != nil {
		for _, on := range collectJoinConditions(n.From.TableRefs) {
			addExprColumns(t, "join", on, tables)
		}
	}

	if n.GroupBy != nil {
		for _, item := range n.GroupBy.Items {
			addExprColumns(t, "group_by", item.Expr, tables)
		}
	}
	if n.OrderBy != nil {
		for _, item := range n.OrderBy.Items {
			addExprColumns(t, "order_by", item.Expr, tables)
		}
	}
	if n.Having != nil {
		addExprColumns(t, "having", n.Having.Expr, tables)
	}

	// Subqueries nested in the WHERE/HAVING/field list are walked by the
	// generic column collector already (it descends into SubqueryExpr's
	// inner SelectStmt via Accept); their own FROM tables are folded in
	// here so the outer "tables" list covers the whole statement.
	for _, sub := range collectSubqueries(n) {
		subTree := newTree("SELECT")
		x.fillSelect(subTree, sub, currentDB)
		for _, te := range subTree.Tables {
			t.addTable(te)
		}
		for bucket, cols := range subTree.Columns {
			t.Columns[bucket] = append(t.Columns[bucket], cols...)
		}
	}
}

func (x *Extractor) fillInsert(t *Tree, n *ast.InsertStmt, currentDB string) {
	var tables []parsing.TableRef
	if n.Table != nil {
		tables = parsing.CollectTableRefs(n.Table.TableRefs, currentDB)
	}
	for _, tr := range tables {
		t.addTable(TableEntry{DB: tr.DB, Table: tr.Table, Alias: tr.Alias, Type: "write"})
	}
	for _, col := range n.Columns {
		db, table, _ := parsing.ResolveColumnTable(col.Table.O, tables)
		if db == "" && table == "" && len(tables) == 1 {
			db, table = tables[0].DB, tables[0].Table
		}
		t.addColumn("insert_columns", ColumnEntry{DB: db, Table: table, Column: col.Name.O})
	}
	for _, assign := range n.Setlist {
		db, table, _ := parsing.ResolveColumnTable(assign.Column.Table.O, tables)
		t.addColumn("insert_columns", ColumnEntry{DB: db, Table: table, Column: assign.Column.Name.O})
		addExprColumns(t, "select", assign.Expr, tables)
	}
	for _, row := range n.Lists {
		for _, expr := range row {
			addExprColumns(t, "select", expr, tables)
		}
	}
	if sel, ok := n.Select.(*ast.SelectStmt); ok {
		x.fillSelect(t, sel, currentDB)
	} else if union, ok := n.Select.(*ast.UnionStmt); ok {
		for _, branch := range union.SelectList.Selects {
			x.fillSelect(t, branch, currentDB)
		}
	}
}

func (x *Extractor) fillUpdate(t *Tree, n *ast.UpdateStmt, currentDB string) {
	var tables []parsing.TableRef
	if n.TableRefs != nil {
		tables = parsing.CollectTableRefs(n.TableRefs.TableRefs, currentDB)
	}
	for _, tr := range tables {
		t.addTable(TableEntry{DB: tr.DB, Table: tr.Table, Alias: tr.Alias, Type: "write"})
	}
	for _, assign := range n.List {
		db, table, _ := parsing.ResolveColumnTable(assign.Column.Table.O, tables)
		t.addColumn("set", ColumnEntry{DB: db, Table: table, Column: assign.Column.Name.O})
		addExprColumns(t, "set_values", assign.Expr, tables)
	}
	addExprColumns(t, "where", n.Where, tables)
	if n.TableRefs != nil {
		for _, on := range collectJoinConditions(n.TableRefs.TableRefs) {
			addExprColumns(t, "join", on, tables)
		}
	}
}

func (x *Extractor) fillDelete(t *Tree, n *ast.DeleteStmt, currentDB string) {
	var tables []parsing.TableRef
	if n.TableRefs != nil {
		tables = parsing.CollectTableRefs(n.TableRefs.TableRefs, currentDB)
	}
	for _, tr := range tables {
		typ := "write"
		t.addTable(TableEntry{DB: tr.DB, Table: tr.Table, Alias: tr.Alias, Type: typ})
	}
	addExprColumns(t, "where", n.Where, tables)
	if n.TableRefs != nil {
		for _, on := range collectJoinConditions(n.TableRefs.TableRefs) {
			addExprColumns(t, "join", on, tables)
		}
	}
}

// collectJoinConditions walks a FROM clause and returns every ON-condition
// expression it finds, from every level of a multi-way join.
func collectJoinConditions(node ast.ResultSetNode) []ast.ExprNode {
	var out []ast.ExprNode
	switch n := node.(type) {
	case *ast.Join:
		if n.On != nil {
			out = append(out, n.On.Expr)
		}
		if n.Left != nil {
			out = append(out, collectJoinConditions(n.Left)...)
		}
		if n.Right != nil {
			out = append(out, collectJoinConditions(n.Right)...)
		}
	case *ast.TableSource:
		if rs, ok := n.Source.(ast.ResultSetNode); ok {
			out = append(out, collectJoinConditions(rs)...)
		}
	}
	return out
}

// subqueryCollector finds every SelectStmt nested inside a SubqueryExpr
// (spec §4.7 "Subqueries are walked in depth").
type subqueryCollector struct {
	selects []*ast.SelectStmt
	root    *ast.SelectStmt
}

func (c *subqueryCollector) Enter(n ast.Node) (ast.Node, bool) {
	if sub, ok := n.(*ast.SubqueryExpr); ok {
		if sel, ok := sub.Query.(*ast.SelectStmt); ok {
			c.selects = append(c.selects, sel)
		}
		return n, true // don't descend further here; fillSelect recurses per subquery
	}
	return n, false
}

func (c *subqueryCollector) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

func collectSubqueries(n *ast.SelectStmt) []*ast.SelectStmt {
	c := &subqueryCollector{root: n}
	if n.Where != nil {
		n.Where.Accept(c)
	}
	if n.Having != nil {
		n.Having.Accept(c)
	}
	if n.Fields != nil {
		for _, f := range n.Fields.Fields {
			if f.Expr != nil {
				f.Expr.Accept(c)
			}
		}
	}
	return c.selects
}
