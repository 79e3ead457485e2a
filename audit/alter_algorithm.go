package audit

import (
	"strings"

	"github.com/pingcap/parser/ast"

	"github.com/hanchuanchuan/goinception-gateway/session"
)

// predictAlgorithm implements "Algorithm prediction for ALTER TABLE" (spec
// §4.3): combine every spec in the statement into a single worst-case
// label, grounded on `predict_alter_algorithm()` in
// `original_source/sql/inception/inception_audit.cc`, which walks the same
// per-operation flag set and keeps the max severity across operations.
func predictAlgorithm(n *ast.AlterTableStmt, major int) session.DDLAlgorithm {
	is80 := major >= 8
	worst := session.AlgorithmInstant

	raise := func(level session.DDLAlgorithm) {
		if level > worst {
			worst = level
		}
	}

	for _, spec := range n.Specs {
		switch spec.Tp {
		case ast.AlterTableAddColumns:
			if is80 {
				raise(session.AlgorithmInstant)
			} else {
				raise(session.AlgorithmInplace)
			}
		case ast.AlterTableDropColumn:
			raise(session.AlgorithmInplace)
		case ast.AlterTableModifyColumn, ast.AlterTableChangeColumn:
			raise(session.AlgorithmCopy)
		case ast.AlterTableAlterColumn:
			// SET/DROP DEFAULT only: INSTANT.
			raise(session.AlgorithmInstant)
		case ast.AlterTableAddConstraint:
			if spec.Constraint != nil && spec.Constraint.Tp == ast.ConstraintForeignKey {
				raise(session.AlgorithmCopy)
			} else {
				raise(session.AlgorithmInplace)
			}
		case ast.AlterTableDropPrimaryKey, ast.AlterTableDropIndex, ast.AlterTableDropForeignKey:
			raise(session.AlgorithmInplace)
		case ast.AlterTableRenameIndex:
			raise(session.AlgorithmInplace)
		case ast.AlterTableIndexInvisible:
			raise(session.AlgorithmInplace)
		case ast.AlterTableRenameTable:
			raise(session.AlgorithmInstant)
		case ast.AlterTableOption:
			raise(alterOptionAlgorithm(spec))
		case ast.AlterTableForce:
			raise(session.AlgorithmCopy)
		case ast.AlterTableAddPartitions, ast.AlterTableDropPartition,
			ast.AlterTableCoalescePartitions, ast.AlterTableReorganizePartition,
			ast.AlterTableTruncatePartition, ast.AlterTableRemovePartitioning:
			raise(session.AlgorithmCopy)
		case ast.AlterTableDiscardTablespace, ast.AlterTableImportTablespace:
			raise(session.AlgorithmInplace)
		case ast.AlterTableLock, ast.AlterTableAlgorithm:
			// Pure hints, no algorithm implication of their own.
		default:
			// Unrecognized operation: be conservative, per the original's
			// "can't always tell statically" comment on MODIFY/CHANGE.
			raise(session.AlgorithmInplace)
		}
	}
	return worst
}

// alterOptionAlgorithm classifies an OPTIONS spec: an ENGINE change forces
// a COPY rebuild, everything else (COMMENT/CHARSET-only) is INSTANT.
func alterOptionAlgorithm(spec *ast.AlterTableSpec) session.DDLAlgorithm {
	for _, opt := range spec.Options {
		if opt.Tp == ast.TableOptionEngine {
			return session.AlgorithmCopy
		}
	}
	return session.AlgorithmInstant
}

// resolveSubType renders the ".SUB_TYPE" result column component (spec
// §4.9 "sql_type: base type plus .SUB_TYPE"), grounded on
// `resolve_alter_sub_type()` in the original.
func resolveSubType(n *ast.AlterTableStmt) string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, spec := range n.Specs {
		switch spec.Tp {
		case ast.AlterTableAddColumns:
			add("ADD_COLUMN")
		case ast.AlterTableDropColumn:
			add("DROP_COLUMN")
		case ast.AlterTableModifyColumn:
			add("MODIFY_COLUMN")
		case ast.AlterTableChangeColumn:
			add("CHANGE_COLUMN")
		case ast.AlterTableAlterColumn:
			add("ALTER_COLUMN")
		case ast.AlterTableAddConstraint:
			add(constraintSubType(spec))
		case ast.AlterTableDropPrimaryKey:
			add("DROP_PRIMARY_KEY")
		case ast.AlterTableDropIndex:
			add("DROP_INDEX")
		case ast.AlterTableDropForeignKey:
			add("DROP_FOREIGN_KEY")
		case ast.AlterTableRenameIndex:
			add("RENAME_INDEX")
		case ast.AlterTableIndexInvisible:
			add("INDEX_VISIBILITY")
		case ast.AlterTableRenameTable:
			add("RENAME")
		case ast.AlterTableOption:
			add("OPTIONS")
		case ast.AlterTableForce:
			add("FORCE")
		case ast.AlterTableAddPartitions:
			add("ADD_PARTITION")
		case ast.AlterTableDropPartition:
			add("DROP_PARTITION")
		case ast.AlterTableDiscardTablespace, ast.AlterTableImportTablespace:
			add("TABLESPACE")
		default:
			add("OTHER")
		}
	}
	if len(names) == 0 {
		return "OTHER"
	}
	return strings.Join(names, ",")
}

func constraintSubType(spec *ast.AlterTableSpec) string {
	if spec.Constraint == nil {
		return "ADD_CONSTRAINT"
	}
	switch spec.Constraint.Tp {
	case ast.ConstraintPrimaryKey:
		return "ADD_PRIMARY_KEY"
	case ast.ConstraintForeignKey:
		return "ADD_FOREIGN_KEY"
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		return "ADD_UNIQUE_INDEX"
	default:
		return "ADD_INDEX"
	}
}
