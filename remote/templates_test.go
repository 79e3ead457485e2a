package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShowDatabasesLikeEscapesQuote(t *testing.T) {
	q := ShowDatabasesLike("o'brien")
	assert.Equal(t, `SHOW DATABASES LIKE 'o\'brien'`, q)
}

func TestColumnExistsQueryShape(t *testing.T) {
	q := ColumnExistsQuery("shop", "orders", "status")
	assert.Contains(t, q, "TABLE_SCHEMA='shop'")
	assert.Contains(t, q, "TABLE_NAME='orders'")
	assert.Contains(t, q, "COLUMN_NAME='status'")
}

func TestKillQuery(t *testing.T) {
	assert.Equal(t, "KILL 42", KillQuery(42))
}

func TestUseDatabaseQuotesIdentifier(t *testing.T) {
	assert.Equal(t, "USE `shop`", UseDatabase("shop"))
}
