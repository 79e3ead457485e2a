// Package batchschema implements the batch-schema tracker (spec §4.4): a
// virtual (db, table) -> columns overlay built from CREATE/ALTER statements
// audited earlier in the same batch, so later statements in the batch don't
// need a remote round trip to see tables/columns the batch itself created.
package batchschema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hanchuanchuan/goinception-gateway/session"
)

func key(db, table string) string {
	return fmt.Sprintf("%s.%s", db, table)
}

// CreateTable registers a new table. Returns an error if the table is
// already tracked (pre-existing in the batch).
func CreateTable(b *session.BatchSchema, db, table string, columns []string) error {
	k := key(db, table)
	if _, ok := b.Tables[k]; ok {
		return errors.Errorf("table %s already exists in this batch", k)
	}
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[lower(c)] = true
	}
	b.Tables[k] = cols
	return nil
}

// Tracked reports whether (db, table) was created earlier in this batch —
// when true, the audit engine skips the remote existence probe entirely.
func Tracked(b *session.BatchSchema, db, table string) bool {
	_, ok := b.Tables[key(db, table)]
	return ok
}

// AddColumn implements ALTER ... ADD COLUMN against the virtual schema.
func AddColumn(b *session.BatchSchema, db, table, column string) error {
	cols, ok := b.Tables[key(db, table)]
	if !ok {
		return nil // not tracked: caller falls back to a remote probe
	}
	lc := lower(column)
	if cols[lc] {
		return errors.Errorf("column %s already exists in table %s.%s (this batch)", column, db, table)
	}
	cols[lc] = true
	return nil
}

// DropColumn implements ALTER ... DROP COLUMN against the virtual schema.
func DropColumn(b *session.BatchSchema, db, table, column string) error {
	cols, ok := b.Tables[key(db, table)]
	if !ok {
		return nil
	}
	lc := lower(column)
	if !cols[lc] {
		return errors.Errorf("column %s does not exist in table %s.%s (this batch)", column, db, table)
	}
	delete(cols, lc)
	return nil
}

// HasColumn reports whether a tracked table has a given column, and
// whether the table is tracked at all.
func HasColumn(b *session.BatchSchema, db, table, column string) (hasColumn, tracked bool) {
	cols, ok := b.Tables[key(db, table)]
	if !ok {
		return false, false
	}
	return cols[lower(column)], true
}

// DropTable erases a tracked table's entry.
func DropTable(b *session.BatchSchema, db, table string) {
	delete(b.Tables, key(db, table))
}

// CreateDatabase registers a new database, erroring if it was already
// created earlier in the batch.
func CreateDatabase(b *session.BatchSchema, db string) error {
	if b.Databases[lower(db)] {
		return errors.Errorf("database %s already exists in this batch", db)
	}
	b.Databases[lower(db)] = true
	return nil
}

// DatabaseTracked reports whether db was created earlier in this batch.
func DatabaseTracked(b *session.BatchSchema, db string) bool {
	return b.Databases[lower(db)]
}

// MarkAltered records that (db, table) was the target of an ALTER TABLE
// earlier in the batch, used by the merge-alter warning.
func MarkAltered(b *session.BatchSchema, db, table string) bool {
	k := key(db, table)
	already := b.Altered[k]
	b.Altered[k] = true
	return already
}

func lower(s string) string {
	return strings.ToLower(s)
}
