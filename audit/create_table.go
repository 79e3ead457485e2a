package audit

import (
	"strings"

	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/mysql"

	"github.com/hanchuanchuan/goinception-gateway/audit/batchschema"
	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// auditCreateTable implements the CREATE TABLE rule family (spec §4.3
// "Object existence", "Structural", "Column attributes", "Index"),
// grounded on `audit_create_table()` in
// `original_source/sql/inception/inception_audit.cc`.
func (e *Engine) auditCreateTable(ctx *session.Context, stmt *session.Statement, n *ast.CreateTableStmt, currentDB string) {
	db := parsing.ResolveDB(n.Table.Schema.O, currentDB)
	table := n.Table.Name.O
	stmt.DBName, stmt.TableName = db, table

	if len(table) > e.Rules.MaxTableNameLength {
		report(stmt, config.Warn, "Table name %q exceeds the maximum length of %d.", table, e.Rules.MaxTableNameLength)
	}
	if e.Rules.IdentifierFormat != config.Off && !identifierFormatOK(table) {
		report(stmt, e.Rules.IdentifierFormat, "Table name %q does not match [a-z_][a-z0-9_]*.", table)
	}

	// Object existence: pre-existing in batch-schema (E, always) or on
	// remote (E, always).
	inBatch := batchKeyExists(ctx, db, table)
	if inBatch {
		report(stmt, config.Error, "Table %q.%q already exists in this batch.", db, table)
	} else if exists, ok := e.probeTableExists(stmt, db, table); ok && exists {
		report(stmt, config.Error, "Table %q.%q already exists.", db, table)
	}

	if n.Select != nil {
		report(stmt, e.Rules.ForbidCreateTableAsSelect, "CREATE TABLE ... SELECT is disallowed.")
	}

	hasPK := false
	for _, c := range n.Constraints {
		if c.Tp == ast.ConstraintPrimaryKey {
			hasPK = true
		}
	}
	for _, col := range n.Cols {
		for _, opt := range col.Options {
			if opt.Tp == ast.ColumnOptionPrimaryKey {
				hasPK = true
			}
		}
	}
	if !hasPK {
		report(stmt, e.Rules.RequirePrimaryKey, "Table %q must have a PRIMARY KEY.", table)
	}

	engine, charset, comment, autoIncInitial, hasAutoIncInitial := createTableOptions(n)
	if comment == "" {
		report(stmt, e.Rules.RequireTableComment, "Table %q must have a COMMENT.", table)
	}
	if engine != "" && !strings.EqualFold(engine, "InnoDB") {
		report(stmt, e.Rules.RequireInnodbEngine, "Table %q engine must be InnoDB, got %s.", table, engine)
	}
	if charset != "" && !charsetAllowed(e.Rules, charset) {
		report(stmt, config.Error, "Charset %q is not in the allowed charset list.", charset)
	}
	if n.Partition != nil {
		report(stmt, e.Rules.DiscouragePartitioned, "Table %q is partitioned.", table)
	}
	e.checkAutoIncrementInitialValue(stmt, autoIncInitial, hasAutoIncInitial)

	if e.Rules.MaxColumnCount > 0 && len(n.Cols) > e.Rules.MaxColumnCount {
		report(stmt, config.Warn, "Table %q has %d columns, exceeding the cap of %d.", table, len(n.Cols), e.Rules.MaxColumnCount)
	}

	var facts []columnFacts
	widths := make(map[string]int)
	types := make(map[string]byte)
	for _, col := range n.Cols {
		f := collectColumnFacts(col)
		facts = append(facts, f)
		e.checkColumnAttributes(stmt, f, ctx.Profile.Major, ctx.Profile.Minor)
		e.autoIncrementChecks(stmt, f)
		widths[strings.ToLower(f.Name)] = keyByteWidth(f)
		types[strings.ToLower(f.Name)] = f.Tp
	}
	e.checkRequiredColumns(stmt, facts)

	var indexes []indexFacts
	for _, c := range n.Constraints {
		idx := collectIndexFacts(c)
		indexes = append(indexes, idx)
		e.checkIndexNaming(stmt, idx)
		e.checkIndexColumnBytes(stmt, idx, func(col string) int { return widths[strings.ToLower(col)] })
		e.checkBlobTextIndexPrefix(stmt, idx, func(col string) byte { return types[strings.ToLower(col)] })
		e.checkForeignKey(stmt, c.Tp == ast.ConstraintForeignKey, ctx.Profile)
	}
	e.checkIndexCaps(stmt, indexes)
	e.checkRedundantIndexes(stmt, indexes)

	if stmt.ErrLevel != session.LevelError {
		cols := make([]string, len(n.Cols))
		for i, c := range n.Cols {
			cols[i] = c.Name.Name.O
		}
		_ = batchschema.CreateTable(ctx.Batch, db, table, cols)
	}
}

func createTableOptions(n *ast.CreateTableStmt) (engine, charset, comment string, autoIncInitial uint64, hasAutoIncInitial bool) {
	for _, opt := range n.Options {
		switch opt.Tp {
		case ast.TableOptionEngine:
			engine = opt.StrValue
		case ast.TableOptionCharset:
			charset = opt.StrValue
		case ast.TableOptionComment:
			comment = opt.StrValue
		case ast.TableOptionAutoIncrement:
			autoIncInitial = opt.UintValue
			hasAutoIncInitial = true
		}
	}
	return
}

// keyByteWidth estimates a column's per-row key byte width for the
// index-byte caps (spec "Per-column key bytes cap"), using utf8mb4's
// 4-bytes/char worst case for string types and the type's storage size
// otherwise.
func keyByteWidth(f columnFacts) int {
	switch f.Tp {
	case mysql.TypeVarchar, mysql.TypeString, mysql.TypeVarString:
		if f.Flen > 0 {
			return f.Flen * 4
		}
		return 4
	case mysql.TypeTiny, mysql.TypeShort, mysql.TypeInt24, mysql.TypeLong, mysql.TypeLonglong:
		return bitWidthOf(f.Tp)
	case mysql.TypeFloat:
		return 4
	case mysql.TypeDouble:
		return 8
	case mysql.TypeNewDecimal, mysql.TypeDecimal:
		return f.Flen + 2
	case mysql.TypeDate, mysql.TypeNewDate:
		return 3
	case mysql.TypeDatetime, mysql.TypeTimestamp:
		return 8
	default:
		return 8
	}
}
