package querytree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanchuanchuan/goinception-gateway/parsing"
)

func TestExtractSimpleSelect(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("SELECT id, name FROM users WHERE id = 1")
	require.NoError(t, err)

	x := New(nil)
	tree := x.Extract(stmt, "shop")

	assert.Equal(t, "SELECT", tree.SQLType)
	require.Len(t, tree.Tables, 1)
	assert.Equal(t, "shop", tree.Tables[0].DB)
	assert.Equal(t, "users", tree.Tables[0].Table)

	require.Len(t, tree.Columns["select"], 2)
	assert.Equal(t, "id", tree.Columns["select"][0].Column)
	assert.Equal(t, "users", tree.Columns["select"][0].Table)

	require.Len(t, tree.Columns["where"], 1)
	assert.Equal(t, "id", tree.Columns["where"][0].Column)
}

func TestExtractJoinBucket(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne(
		"SELECT o.id FROM orders o JOIN customers c ON o.customer_id = c.id WHERE c.active = 1")
	require.NoError(t, err)

	x := New(nil)
	tree := x.Extract(stmt, "shop")

	assert.Len(t, tree.Tables, 2)
	require.Len(t, tree.Columns["join"], 2)
	require.Len(t, tree.Columns["where"], 1)
	assert.Equal(t, "customers", tree.Columns["where"][0].Table)
}

func TestExtractUpdateSetAndSetValues(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("UPDATE users SET name = 'bob' WHERE id = 1")
	require.NoError(t, err)

	x := New(nil)
	tree := x.Extract(stmt, "shop")

	assert.Equal(t, "UPDATE", tree.SQLType)
	require.Len(t, tree.Columns["set"], 1)
	assert.Equal(t, "name", tree.Columns["set"][0].Column)
	require.Len(t, tree.Columns["where"], 1)
}

func TestExtractInsertColumns(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("INSERT INTO users (id, name) VALUES (1, 'bob')")
	require.NoError(t, err)

	x := New(nil)
	tree := x.Extract(stmt, "shop")

	assert.Equal(t, "INSERT", tree.SQLType)
	require.Len(t, tree.Columns["insert_columns"], 2)
}

func TestExtractDeleteWhere(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("DELETE FROM users WHERE id = 1")
	require.NoError(t, err)

	x := New(nil)
	tree := x.Extract(stmt, "shop")

	assert.Equal(t, "DELETE", tree.SQLType)
	require.Len(t, tree.Columns["where"], 1)
}

func TestExtractWildcardWithoutExpanderOmitsExpanded(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("SELECT * FROM users")
	require.NoError(t, err)

	x := New(nil)
	tree := x.Extract(stmt, "shop")

	require.Len(t, tree.Columns["select"], 1)
	assert.Nil(t, tree.Columns["select"][0].Expanded)
}

func TestExtractDDLHasNoColumns(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("CREATE TABLE t (id INT)")
	require.NoError(t, err)

	x := New(nil)
	tree := x.Extract(stmt, "shop")
	assert.Equal(t, "CREATE_TABLE", tree.SQLType)
	assert.Empty(t, tree.Tables)
}
