package audit

import (
	"strings"

	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/audit/batchschema"
	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// remoteProfile is the (flavor, major, minor) tuple the TiDB-specific rule
// group and the algorithm predictor both need.
type remoteProfile = session.Profile

// auditAlterTable implements the ALTER TABLE rule family (spec §4.3
// "Object existence", "Column attributes", "Index", TiDB-specific group)
// plus the sub_type/algorithm prediction (§4.3 "Algorithm prediction"),
// grounded on `audit_alter_table()` in
// `original_source/sql/inception/inception_audit.cc`.
func (e *Engine) auditAlterTable(ctx *session.Context, stmt *session.Statement, n *ast.AlterTableStmt, currentDB string, profile remoteProfile) {
	db := parsing.ResolveDB(n.Table.Schema.O, currentDB)
	table := n.Table.Name.O
	stmt.DBName, stmt.TableName = db, table
	stmt.SubType = resolveSubType(n)
	stmt.DDLAlgorithm = predictAlgorithm(n, profile.Major)

	inBatch := batchKeyExists(ctx, db, table)
	if !inBatch {
		if exists, ok := e.probeTableExists(stmt, db, table); ok && !exists {
			report(stmt, config.Error, "Table %q.%q does not exist.", db, table)
		}
	}

	if profile.IsTiDB && len(n.Specs) > 1 {
		report(stmt, e.Rules.TiDBForbidMultipleAlterOps, "TiDB does not support multiple operations in a single ALTER TABLE; split into separate statements.")
	}

	if batchschema.MarkAltered(ctx.Batch, db, table) {
		// Merging a second ALTER onto the same table within one batch is
		// allowed but worth flagging so reviewers notice the accumulation.
		report(stmt, config.Warn, "Table %q.%q was already ALTERed earlier in this batch.", db, table)
	}

	e.recommendOSC(stmt, db, table)

	rowsAffected := int64(0)
	for _, spec := range n.Specs {
		switch spec.Tp {
		case ast.AlterTableAddColumns:
			for _, col := range spec.NewColumns {
				e.checkAddColumn(ctx, stmt, db, table, col, profile)
			}
		case ast.AlterTableDropColumn:
			e.checkDropColumn(ctx, stmt, db, table, spec.OldColumnName.Name.O)
		case ast.AlterTableModifyColumn, ast.AlterTableChangeColumn:
			if len(spec.NewColumns) > 0 {
				e.checkModifyColumn(ctx, stmt, db, table, spec, profile)
			}
		case ast.AlterTableAddConstraint:
			if spec.Constraint != nil {
				idx := collectIndexFacts(spec.Constraint)
				e.checkIndexNaming(stmt, idx)
				e.checkForeignKey(stmt, spec.Constraint.Tp == ast.ConstraintForeignKey, profile)
			}
		case ast.AlterTableDropIndex, ast.AlterTableDropPrimaryKey:
			indexName := spec.Name
			if exists, ok := e.probeIndexExists(stmt, db, table, indexName); ok && !exists {
				report(stmt, config.Error, "Index %q does not exist on %q.%q.", indexName, db, table)
			}
		}
	}
	stmt.AffectedRows = rowsAffected
}

func (e *Engine) checkAddColumn(ctx *session.Context, stmt *session.Statement, db, table string, col *ast.ColumnDef, profile remoteProfile) {
	name := col.Name.Name.O
	hasCol, tracked := batchschema.HasColumn(ctx.Batch, db, table, name)
	if tracked {
		if hasCol {
			report(stmt, config.Error, "Column %q already exists on %q.%q (this batch).", name, db, table)
		}
	} else if exists, ok := e.probeColumnExists(stmt, db, table, name); ok && exists {
		report(stmt, config.Error, "Column %q already exists on %q.%q.", name, db, table)
	}

	f := collectColumnFacts(col)
	e.checkColumnAttributes(stmt, f, profile.Major, profile.Minor)
	e.autoIncrementChecks(stmt, f)

	if stmt.ErrLevel != session.LevelError {
		_ = batchschema.AddColumn(ctx.Batch, db, table, name)
	}
}

func (e *Engine) checkDropColumn(ctx *session.Context, stmt *session.Statement, db, table, name string) {
	hasCol, tracked := batchschema.HasColumn(ctx.Batch, db, table, name)
	if tracked {
		if !hasCol {
			report(stmt, config.Error, "Column %q does not exist on %q.%q (this batch).", name, db, table)
		}
	} else if exists, ok := e.probeColumnExists(stmt, db, table, name); ok && !exists {
		report(stmt, config.Error, "Column %q does not exist on %q.%q.", name, db, table)
	}
	_ = batchschema.DropColumn(ctx.Batch, db, table, name)
}

// checkModifyColumn implements MODIFY/CHANGE COLUMN (spec "DROP/MODIFY
// COLUMN c: missing in batch or remote (E)" plus the VARCHAR-shrink,
// integer-narrowing and decimal-change warnings; spec §4.4 says batch
// tracking "requires presence; skip type-narrowing checks (no pre-ALTER
// type info available locally for synthetic tables)" — so those warnings
// only fire when the column's prior shape is known from the remote).
func (e *Engine) checkModifyColumn(ctx *session.Context, stmt *session.Statement, db, table string, spec *ast.AlterTableSpec, profile remoteProfile) {
	newCol := spec.NewColumns[0]
	newName := newCol.Name.Name.O
	oldName := newName
	if spec.OldColumnName != nil {
		oldName = spec.OldColumnName.Name.O
	}

	hasCol, tracked := batchschema.HasColumn(ctx.Batch, db, table, oldName)
	if tracked && !hasCol {
		report(stmt, config.Error, "Column %q does not exist on %q.%q (this batch).", oldName, db, table)
	}
	if !tracked {
		if exists, ok := e.probeColumnExists(stmt, db, table, oldName); ok && !exists {
			report(stmt, config.Error, "Column %q does not exist on %q.%q.", oldName, db, table)
		} else if ok {
			e.checkColumnNarrowing(stmt, db, table, oldName, newCol, profile)
		}
	}

	f := collectColumnFacts(newCol)
	e.checkColumnAttributes(stmt, f, profile.Major, profile.Minor)

	if tracked && !strings.EqualFold(oldName, newName) {
		_ = batchschema.DropColumn(ctx.Batch, db, table, oldName)
		_ = batchschema.AddColumn(ctx.Batch, db, table, newName)
	}
}

// checkColumnNarrowing implements the VARCHAR-shrink, integer-narrowing and
// DECIMAL precision/scale-change warnings by comparing the new column
// definition against the remote's current column shape (spec "Column
// attributes" group). Grounded only when a remote Prober is available;
// otherwise these rules are silently skipped rather than guessed at.
func (e *Engine) checkColumnNarrowing(stmt *session.Statement, db, table, column string, newCol *ast.ColumnDef, profile remoteProfile) {
	if e.Prober == nil || newCol.Tp == nil {
		return
	}
	info, err := e.Prober.ColumnInfo(db, table, column)
	if err != nil {
		return
	}
	switch strings.ToUpper(info.DataType) {
	case "VARCHAR":
		if info.CharMaxLength.Valid && int64(newCol.Tp.Flen) < info.CharMaxLength.Int64 {
			report(stmt, e.Rules.VarcharShrink, "Column %q: VARCHAR length shrinks from %d to %d.", column, info.CharMaxLength.Int64, newCol.Tp.Flen)
			if profile.IsTiDB {
				report(stmt, e.Rules.TiDBForbidVarcharShrink, "TiDB disallows shrinking a VARCHAR column.")
			}
		}
	case "DECIMAL":
		if info.NumPrecision.Valid && info.NumScale.Valid &&
			(int64(newCol.Tp.Flen) != info.NumPrecision.Int64 || int64(newCol.Tp.Decimal) != info.NumScale.Int64) {
			report(stmt, e.Rules.DecimalPrecisionScaleChange, "Column %q: DECIMAL precision/scale changes from (%d,%d) to (%d,%d).",
				column, info.NumPrecision.Int64, info.NumScale.Int64, newCol.Tp.Flen, newCol.Tp.Decimal)
			if profile.IsTiDB {
				report(stmt, e.Rules.TiDBForbidDecimalChange, "TiDB disallows changing DECIMAL precision/scale.")
			}
		}
	case "INT", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT":
		if isNarrowerIntType(info.DataType, newCol.Tp.Tp) {
			report(stmt, e.Rules.IntegerNarrowing, "Column %q: integer type narrows from %s.", column, info.DataType)
			if profile.IsTiDB {
				report(stmt, e.Rules.TiDBForbidLossyNarrowing, "TiDB disallows lossy integer narrowing.")
			}
		}
	}
}

// recommendOSC implements the supplemented OSC (online schema change)
// recommendation: an ALTER against a table whose row count crosses
// RecommendOSCRowThreshold gets a cheap advisory message, the same way
// `inception_audit.cc` flags large tables for gh-ost/pt-osc without
// invoking either tool itself. Nil-safe on a missing Prober.
func (e *Engine) recommendOSC(stmt *session.Statement, db, table string) {
	if e.Prober == nil || e.Rules.RecommendOSCRowThreshold <= 0 {
		return
	}
	rows, err := e.Prober.TableRowsFallback(db, table)
	if err != nil || rows <= int64(e.Rules.RecommendOSCRowThreshold) {
		return
	}
	report(stmt, config.Warn, "Table %q.%q has an estimated %d rows; consider gh-ost/pt-osc for this ALTER.", db, table, rows)
}

func isNarrowerIntType(oldType string, newTp byte) bool {
	width := map[string]int{"TINYINT": 1, "SMALLINT": 2, "MEDIUMINT": 3, "INT": 4, "BIGINT": 8}
	newBytes := bitWidthOf(newTp)
	oldBytes, ok := width[strings.ToUpper(oldType)]
	if !ok {
		return false
	}
	return newBytes < oldBytes // storage size in bytes, old vs. new
}
