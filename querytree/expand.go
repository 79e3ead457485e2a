package querytree

import (
	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/remote"
)

// Expander resolves `*` and `t.*` against the remote target's
// information_schema.COLUMNS, in ordinal order (spec §4.7 "* expansion").
// A nil Expander (or any probe failure) simply omits Expanded, per spec.
type Expander struct {
	Prober *remote.Prober
}

func (e *Expander) expand(db, table string) []string {
	if e == nil || e.Prober == nil || db == "" || table == "" {
		return nil
	}
	cols, err := e.Prober.ColumnList(db, table)
	if err != nil {
		return nil
	}
	return cols
}

// expandWildcard handles SELECT * (no qualifier: one entry per non-derived
// FROM table) and SELECT t.* (qualifier resolved through tables).
func (e *Expander) expandWildcard(t *Tree, bucket, qualifier string, tables []parsing.TableRef) {
	if qualifier != "" {
		db, table, ok := parsing.ResolveColumnTable(qualifier, tables)
		if !ok {
			t.addColumn(bucket, ColumnEntry{Column: "*"})
			return
		}
		t.addColumn(bucket, ColumnEntry{DB: db, Table: table, Column: "*", Expanded: e.expand(db, table)})
		return
	}
	for _, tr := range tables {
		if tr.Derived {
			continue
		}
		t.addColumn(bucket, ColumnEntry{DB: tr.DB, Table: tr.Table, Column: "*", Expanded: e.expand(tr.DB, tr.Table)})
	}
}
