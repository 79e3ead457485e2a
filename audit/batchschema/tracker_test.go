package batchschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanchuanchuan/goinception-gateway/session"
)

func TestCreateAndTrackTable(t *testing.T) {
	b := session.NewBatchSchema()
	require.NoError(t, CreateTable(b, "shop", "orders", []string{"ID", "Name"}))
	assert.True(t, Tracked(b, "shop", "orders"))

	err := CreateTable(b, "shop", "orders", nil)
	assert.Error(t, err)
}

func TestAddDropColumn(t *testing.T) {
	b := session.NewBatchSchema()
	require.NoError(t, CreateTable(b, "shop", "orders", []string{"id"}))

	require.NoError(t, AddColumn(b, "shop", "orders", "Status"))
	has, tracked := HasColumn(b, "shop", "orders", "status")
	assert.True(t, has)
	assert.True(t, tracked)

	assert.Error(t, AddColumn(b, "shop", "orders", "status"))

	require.NoError(t, DropColumn(b, "shop", "orders", "status"))
	assert.Error(t, DropColumn(b, "shop", "orders", "status"))
}

func TestUntrackedTableIsNoOp(t *testing.T) {
	b := session.NewBatchSchema()
	assert.NoError(t, AddColumn(b, "shop", "missing", "x"))
	_, tracked := HasColumn(b, "shop", "missing", "x")
	assert.False(t, tracked)
}

func TestCreateDatabase(t *testing.T) {
	b := session.NewBatchSchema()
	require.NoError(t, CreateDatabase(b, "Shop"))
	assert.True(t, DatabaseTracked(b, "shop"))
	assert.Error(t, CreateDatabase(b, "shop"))
}

func TestMarkAltered(t *testing.T) {
	b := session.NewBatchSchema()
	assert.False(t, MarkAltered(b, "shop", "orders"))
	assert.True(t, MarkAltered(b, "shop", "orders"))
}
