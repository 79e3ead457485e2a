package audit

import (
	"strings"

	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/mysql"

	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// indexFacts is the subset of an ast.Constraint the index rule group needs.
type indexFacts struct {
	Name     string
	Unique   bool
	Primary  bool
	Columns  []indexColumn
}

type indexColumn struct {
	Name   string
	Prefix int // 0 = no prefix length given
}

func collectIndexFacts(c *ast.Constraint) indexFacts {
	f := indexFacts{Name: c.Name}
	switch c.Tp {
	case ast.ConstraintPrimaryKey:
		f.Primary = true
		f.Unique = true
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		f.Unique = true
	}
	for _, k := range c.Keys {
		f.Columns = append(f.Columns, indexColumn{Name: k.Column.Name.O, Prefix: k.Length})
	}
	return f
}

// checkIndexNaming implements "UNIQUE key name must start uniq_; non-unique
// must start idx_" (spec §4.3 "Index").
func (e *Engine) checkIndexNaming(stmt *session.Statement, f indexFacts) {
	if f.Primary || f.Name == "" {
		return
	}
	if f.Unique {
		if !strings.HasPrefix(f.Name, e.Rules.UniqueKeyPrefix) {
			report(stmt, e.Rules.KeyNamePrefix, "Unique key %q must start with %q.", f.Name, e.Rules.UniqueKeyPrefix)
		}
	} else if !strings.HasPrefix(f.Name, e.Rules.NonUniqueKeyPrefix) {
		report(stmt, e.Rules.KeyNamePrefix, "Index %q must start with %q.", f.Name, e.Rules.NonUniqueKeyPrefix)
	}
}

// checkIndexColumnBytes implements the per-column and total key-byte caps
// (spec: "Per-column key bytes cap (W, 767); total index key bytes cap
// (W, 3072)"). byteWidth resolves each indexed column's effective key
// width from the CREATE TABLE's own column list (4 bytes/char for
// utf8mb4, the widest whitelisted charset, as a conservative estimate).
func (e *Engine) checkIndexColumnBytes(stmt *session.Statement, f indexFacts, widthOf func(col string) int) {
	total := 0
	for _, col := range f.Columns {
		width := widthOf(col.Name)
		if col.Prefix > 0 {
			width = col.Prefix * 4 // utf8mb4 worst case, prefix length is in characters
		}
		if width > e.Rules.MaxKeyPartBytes {
			report(stmt, config.Warn, "Index %q: column %q key part is %d bytes, exceeding the cap of %d.", f.Name, col.Name, width, e.Rules.MaxKeyPartBytes)
		}
		total += width
	}
	if total > e.Rules.MaxIndexTotalBytes {
		report(stmt, config.Warn, "Index %q total key length %d bytes exceeds the cap of %d.", f.Name, total, e.Rules.MaxIndexTotalBytes)
	}
}

// checkBlobTextIndexPrefix implements "BLOB/TEXT in index must have prefix
// length (E)".
func (e *Engine) checkBlobTextIndexPrefix(stmt *session.Statement, f indexFacts, tpOf func(col string) byte) {
	for _, col := range f.Columns {
		tp := tpOf(col.Name)
		if isBlobTextJSON(tp) && col.Prefix == 0 {
			report(stmt, e.Rules.BlobTextIndexNeedsPrefix, "Index %q: BLOB/TEXT column %q requires a prefix length.", f.Name, col.Name)
		}
	}
}

// checkForeignKey implements "Foreign keys disallowed (O) and
// disallowed-on-tidb (E)".
func (e *Engine) checkForeignKey(stmt *session.Statement, isFK bool, profile session.Profile) {
	if !isFK {
		return
	}
	report(stmt, e.Rules.ForbidForeignKeys, "Foreign keys are disallowed.")
	if profile.IsTiDB {
		report(stmt, e.Rules.TiDBForbidForeignKey, "TiDB does not support foreign keys.")
	}
}

// checkRedundantIndexes implements "Redundant/prefix-matched index
// detection within the same CREATE", gated by e.Rules.RedundantIndex
// (Warn by default).
func (e *Engine) checkRedundantIndexes(stmt *session.Statement, indexes []indexFacts) {
	if e.Rules.RedundantIndex == config.Off {
		return
	}
	for i, a := range indexes {
		for j, b := range indexes {
			if i == j || a.Primary {
				continue
			}
			if indexIsPrefixOf(a, b) {
				report(stmt, e.Rules.RedundantIndex, "Index %q is a prefix of index %q and is redundant.", a.Name, b.Name)
			}
		}
	}
}

func indexIsPrefixOf(a, b indexFacts) bool {
	if len(a.Columns) == 0 || len(a.Columns) > len(b.Columns) {
		return false
	}
	for i, col := range a.Columns {
		if !strings.EqualFold(col.Name, b.Columns[i].Name) {
			return false
		}
	}
	return true
}

// checkIndexCaps implements "Index count cap (W, 16); index-parts cap
// (W, 5); PK-parts cap (W, 5)".
func (e *Engine) checkIndexCaps(stmt *session.Statement, indexes []indexFacts) {
	nonPK := 0
	for _, idx := range indexes {
		if idx.Primary {
			if e.Rules.MaxPrimaryKeyParts > 0 && len(idx.Columns) > e.Rules.MaxPrimaryKeyParts {
				report(stmt, config.Warn, "Primary key has %d parts, exceeding the cap of %d.", len(idx.Columns), e.Rules.MaxPrimaryKeyParts)
			}
			continue
		}
		nonPK++
		if e.Rules.MaxIndexParts > 0 && len(idx.Columns) > e.Rules.MaxIndexParts {
			report(stmt, config.Warn, "Index %q has %d parts, exceeding the cap of %d.", idx.Name, len(idx.Columns), e.Rules.MaxIndexParts)
		}
	}
	if e.Rules.MaxIndexCount > 0 && nonPK > e.Rules.MaxIndexCount {
		report(stmt, config.Warn, "Table has %d indexes, exceeding the cap of %d.", nonPK, e.Rules.MaxIndexCount)
	}
}

func bitWidthOf(tp byte) int {
	switch tp {
	case mysql.TypeTiny:
		return 1
	case mysql.TypeShort:
		return 2
	case mysql.TypeInt24:
		return 3
	case mysql.TypeLong:
		return 4
	case mysql.TypeLonglong:
		return 8
	default:
		return 8
	}
}
