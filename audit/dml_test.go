package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

func auditSQL(t *testing.T, e *Engine, sql string) *session.Statement {
	t.Helper()
	p := parsing.New()
	node, err := p.ParseOne(sql)
	require.NoError(t, err)

	ctx := session.NewContext(1)
	stmt := ctx.NextStatement(sql)
	e.Audit(ctx, stmt, node, "test_db", session.Profile{})
	return stmt
}

func TestAuditDeleteWithoutWhereRaisesBoth(t *testing.T) {
	rules := config.DefaultRules()
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "DELETE FROM t")
	assert.Equal(t, session.LevelError, stmt.ErrLevel)
	assert.Len(t, stmt.Messages, 2)
	assert.Equal(t, "t", stmt.TableName)
}

func TestAuditUpdateWithLimitAndOrderBy(t *testing.T) {
	rules := config.DefaultRules()
	rules.DMLWithLimit = config.Warn
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "UPDATE t SET x=1 WHERE id=1 ORDER BY id LIMIT 1")
	assert.Equal(t, session.LevelWarning, stmt.ErrLevel)
}

func TestAuditInsertRequiresColumnList(t *testing.T) {
	rules := config.DefaultRules()
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "INSERT INTO t VALUES (1, 2)")
	assert.Equal(t, session.LevelError, stmt.ErrLevel)
}

func TestAuditInsertDuplicateColumn(t *testing.T) {
	rules := config.DefaultRules()
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "INSERT INTO t (a, a) VALUES (1, 2)")
	assert.Equal(t, session.LevelError, stmt.ErrLevel)
}

func TestAuditInsertColumnValueMismatch(t *testing.T) {
	rules := config.DefaultRules()
	rules.InsertColumnValueMismatch = config.Error
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "INSERT INTO t (a, b) VALUES (1)")
	assert.Equal(t, session.LevelError, stmt.ErrLevel)
}

func TestAuditSelectStarAndOrderByRand(t *testing.T) {
	rules := config.DefaultRules()
	rules.ForbidSelectStar = config.Warn
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "SELECT * FROM t ORDER BY RAND()")
	assert.Equal(t, session.LevelWarning, stmt.ErrLevel)
	assert.GreaterOrEqual(t, len(stmt.Messages), 2)
}

func TestAuditSelectCleanStatementStaysOK(t *testing.T) {
	rules := config.DefaultRules()
	rules.ForbidSelectStar = config.Off
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "SELECT id FROM t WHERE id = 1")
	assert.Equal(t, session.LevelOK, stmt.ErrLevel)
}

func TestInClauseCapReportsOnlyWhenExceeded(t *testing.T) {
	rules := config.DefaultRules()
	rules.MaxInElements = 2
	e := New(&rules, nil)

	stmt := auditSQL(t, e, "SELECT id FROM t WHERE id IN (1, 2, 3)")
	assert.Equal(t, session.LevelWarning, stmt.ErrLevel)

	stmt2 := auditSQL(t, e, "SELECT id FROM t WHERE id IN (1, 2)")
	assert.Equal(t, session.LevelOK, stmt2.ErrLevel)
}

func TestSetTargetNameSkipsDerivedTables(t *testing.T) {
	stmt := &session.Statement{}
	setTargetName(stmt, []parsing.TableRef{
		{Alias: "dt", Derived: true},
		{DB: "shop", Table: "orders", Alias: "orders"},
	})
	assert.Equal(t, "orders", stmt.TableName)
}

// sanity check that the IN-clause walker only flags bare lists, not
// subquery-based IN (... SELECT ...), which PatternInExpr.Sel covers.
func TestInClauseWalkerIgnoresSubquery(t *testing.T) {
	rules := config.DefaultRules()
	rules.MaxInElements = 1
	e := New(&rules, nil)
	stmt := auditSQL(t, e, "SELECT id FROM t WHERE id IN (SELECT id FROM u)")
	assert.Equal(t, session.LevelOK, stmt.ErrLevel)
}
