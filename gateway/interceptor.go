package gateway

import (
	"strings"

	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/marker"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// Intercept implements the interception layer (spec §4.2) for one
// successfully parsed statement in an active session.
func (g *Gateway) Intercept(ctx *session.Context, rt *runtime, node ast.StmtNode, originalText string) error {
	if isPassthrough(node) {
		return nil
	}

	if use, ok := node.(*ast.UseStmt); ok {
		ctx.SetCurrentDB(use.DBName)
	}

	switch ctx.Mode {
	case marker.ModeSplit:
		if rt != nil && rt.split != nil {
			rt.split.Feed(ctx, node, originalText)
		}
		return nil
	case marker.ModeQueryTree:
		if rt == nil || rt.tree == nil {
			return nil
		}
		tree := rt.tree.Extract(node, ctx.GetCurrentDB())
		doc, err := tree.JSON()
		if err != nil {
			return err
		}
		ctx.AppendTree(&session.TreeRecord{
			ID:   len(ctx.Trees) + 1,
			SQL:  originalText,
			Tree: doc,
		})
		return nil
	default:
		stmt := ctx.NextStatement(originalText)
		if rt == nil || rt.engine == nil {
			return nil
		}
		rt.engine.Audit(ctx, stmt, node, ctx.GetCurrentDB(), ctx.Profile)
		switch node.(type) {
		case *ast.UseStmt, *ast.SetStmt:
			stmt.Stage = session.StageRerun
		default:
			stmt.Stage = session.StageChecked
		}
		return nil
	}
}

// isPassthrough reports whether the statement is the self-probing
// SELECT DATABASE() statement, which falls through to normal execution
// (spec §4.2 step 1). Empty queries are not matched here.
func isPassthrough(node ast.StmtNode) bool {
	sel, ok := node.(*ast.SelectStmt)
	if !ok || sel.Fields == nil || len(sel.Fields.Fields) != 1 {
		return false
	}
	call, ok := sel.Fields.Fields[0].Expr.(*ast.FuncCallExpr)
	return ok && strings.EqualFold(call.FnName.O, "database") && len(call.Args) == 0
}
