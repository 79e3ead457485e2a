package audit

import (
	"regexp"
	"strings"

	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/mysql"

	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// columnFacts is the subset of a ColumnDef the column-attribute rule group
// needs, collected once per column so every rule reads the same snapshot
// instead of re-walking Options.
type columnFacts struct {
	Name          string
	TypeName      string // mysql.TypeStr(Tp) upper-cased, e.g. "VARCHAR"
	Tp            byte
	Unsigned      bool
	Nullable      bool // true unless an explicit NOT NULL option is present
	HasDefault    bool
	HasComment    bool
	Comment       string
	AutoIncrement bool
	PrimaryKey    bool
	Flen          int
	Decimal       int
	Charset       string
	ExplicitCharset bool
}

func isBlobTextJSON(tp byte) bool {
	switch tp {
	case mysql.TypeBlob, mysql.TypeTinyBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob,
		mysql.TypeJSON:
		return true
	default:
		return false
	}
}

func isTextLike(tp byte) bool {
	// An actual BLOB/TEXT/JSON column (VARCHAR/CHAR are not counted): the
	// spec groups these for the "nullable unless JSON/BLOB/TEXT" family of
	// warnings.
	return isBlobTextJSON(tp)
}

func collectColumnFacts(col *ast.ColumnDef) columnFacts {
	f := columnFacts{
		Name:     col.Name.Name.O,
		Nullable: true,
	}
	if col.Tp != nil {
		f.Tp = col.Tp.Tp
		f.TypeName = strings.ToUpper(mysql.TypeToStr(col.Tp.Tp, col.Tp.Charset))
		f.Unsigned = mysql.HasUnsignedFlag(col.Tp.Flag)
		f.Flen = col.Tp.Flen
		f.Decimal = col.Tp.Decimal
		f.Charset = col.Tp.Charset
	}
	for _, opt := range col.Options {
		switch opt.Tp {
		case ast.ColumnOptionNotNull:
			f.Nullable = false
		case ast.ColumnOptionNull:
			f.Nullable = true
		case ast.ColumnOptionDefaultValue:
			f.HasDefault = true
		case ast.ColumnOptionAutoIncrement:
			f.AutoIncrement = true
		case ast.ColumnOptionPrimaryKey:
			f.PrimaryKey = true
		case ast.ColumnOptionComment:
			f.HasComment = opt.Expr != nil
			f.Comment = exprStringValue(opt.Expr)
		case ast.ColumnOptionCollate:
			f.ExplicitCharset = true
		}
	}
	return f
}

// exprStringValue best-effort extracts a literal string value from an
// expression (used for COMMENT '...' text); returns "" for anything else.
func exprStringValue(e ast.ExprNode) string {
	if v, ok := e.(ast.ValueExpr); ok {
		if s, ok := v.GetValue().(string); ok {
			return s
		}
	}
	return ""
}

// checkColumnAttributes runs the column-attribute rule group (spec §4.3
// "Column attributes") against one column of a CREATE TABLE or an
// ADD/MODIFY/CHANGE COLUMN spec. major/minor (the remote version) gate the
// JSON-forbidden-before-5.7 rule.
func (e *Engine) checkColumnAttributes(stmt *session.Statement, f columnFacts, major, minor int) {
	if !f.HasComment {
		report(stmt, e.Rules.RequireColumnComment, "Column %q must have a COMMENT.", f.Name)
	}

	textLike := isTextLike(f.Tp)
	if f.Nullable && !textLike {
		report(stmt, e.Rules.NullableWarning, "Column %q is nullable; consider NOT NULL.", f.Name)
	}
	if !f.Nullable && !f.HasDefault && !textLike && !f.AutoIncrement && !f.PrimaryKey {
		report(stmt, e.Rules.NotNullWithoutDefault, "Column %q is NOT NULL without a DEFAULT.", f.Name)
	}
	if !f.HasDefault && !textLike && !f.AutoIncrement {
		report(stmt, e.Rules.DefaultRequiredOnNewColumn, "Column %q has no DEFAULT.", f.Name)
	}

	switch f.Tp {
	case mysql.TypeBlob, mysql.TypeTinyBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob:
		report(stmt, e.Rules.BlobTextEnumSetBitJSONWarn, "Column %q is BLOB/TEXT.", f.Name)
	case mysql.TypeEnum:
		report(stmt, e.Rules.BlobTextEnumSetBitJSONWarn, "Column %q is ENUM.", f.Name)
	case mysql.TypeSet:
		report(stmt, e.Rules.BlobTextEnumSetBitJSONWarn, "Column %q is SET.", f.Name)
	case mysql.TypeBit:
		report(stmt, e.Rules.BlobTextEnumSetBitJSONWarn, "Column %q is BIT.", f.Name)
	case mysql.TypeJSON:
		report(stmt, e.Rules.BlobTextEnumSetBitJSONWarn, "Column %q is JSON.", f.Name)
		if f.HasDefault {
			report(stmt, e.Rules.JSONDefaultDisallowed, "Column %q: JSON columns may not have a DEFAULT.", f.Name)
		}
		if major < 5 || (major == 5 && minor < 7) {
			report(stmt, e.Rules.JSONForbiddenBeforeMySQL57, "Column %q: JSON is not supported before MySQL 5.7.", f.Name)
		}
	case mysql.TypeTimestamp:
		if !f.HasDefault {
			report(stmt, e.Rules.TimestampWithoutDefault, "Column %q is TIMESTAMP without a DEFAULT.", f.Name)
		}
	case mysql.TypeString, mysql.TypeVarchar:
		if f.Tp == mysql.TypeString && f.Flen > e.Rules.MaxCharWidth {
			report(stmt, e.Rules.BlobTextEnumSetBitJSONWarn, "Column %q: CHAR(%d) exceeds %d, consider VARCHAR.", f.Name, f.Flen, e.Rules.MaxCharWidth)
		}
	}

	if f.ExplicitCharset {
		report(stmt, e.Rules.ExplicitColumnCharset, "Column %q declares an explicit charset/collation.", f.Name)
	}

	if len(f.Name) > e.Rules.MaxColumnNameLength {
		report(stmt, config.Warn, "Column name %q exceeds the maximum length of %d.", f.Name, e.Rules.MaxColumnNameLength)
	}
	if e.Rules.IdentifierFormat != config.Off && !identifierFormatOK(f.Name) {
		report(stmt, e.Rules.IdentifierFormat, "Column name %q does not match [a-z_][a-z0-9_]*.", f.Name)
	}
}

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func identifierFormatOK(name string) bool {
	return identifierRe.MatchString(name)
}

// autoIncrementChecks validates the AUTO_INCREMENT column family rule
// (spec §4.3 "AUTO_INCREMENT must be INT/BIGINT UNSIGNED ... must be
// named id ... initial value must be 1").
func (e *Engine) autoIncrementChecks(stmt *session.Statement, f columnFacts) {
	if !f.AutoIncrement {
		return
	}
	switch f.Tp {
	case mysql.TypeLong, mysql.TypeLonglong:
		if !f.Unsigned {
			report(stmt, e.Rules.AutoIncrementMustBeIntUnsigned, "AUTO_INCREMENT column %q must be UNSIGNED.", f.Name)
		}
	default:
		report(stmt, e.Rules.AutoIncrementMustBeIntUnsigned, "AUTO_INCREMENT column %q must be INT/BIGINT UNSIGNED.", f.Name)
	}
	if !strings.EqualFold(f.Name, "id") {
		report(stmt, e.Rules.AutoIncrementMustBeNamedID, "AUTO_INCREMENT column %q should be named \"id\".", f.Name)
	}
}

// checkAutoIncrementInitialValue validates the table-level
// AUTO_INCREMENT=N option (spec "initial value must be 1").
func (e *Engine) checkAutoIncrementInitialValue(stmt *session.Statement, initial uint64, hasInitial bool) {
	if hasInitial && initial != 1 {
		report(stmt, e.Rules.AutoIncrementInitialValueMustBeOne, "AUTO_INCREMENT initial value should be 1, got %d.", initial)
	}
}

// requiredColumnSpec is one parsed requirement from the semicolon-separated
// "must-have columns" knob (spec §4.3): `name TYPE [UNSIGNED] [NOT NULL]
// [AUTO_INCREMENT] [COMMENT]`.
type requiredColumnSpec struct {
	Name          string
	Type          string
	Unsigned      bool
	NotNull       bool
	AutoIncrement bool
	RequireComment bool
}

// parseRequiredColumns parses config.Rules.RequiredColumns.
func parseRequiredColumns(spec string) []requiredColumnSpec {
	var out []requiredColumnSpec
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		rc := requiredColumnSpec{Name: fields[0], Type: strings.ToUpper(fields[1])}
		for _, tok := range fields[2:] {
			switch strings.ToUpper(tok) {
			case "UNSIGNED":
				rc.Unsigned = true
			case "NOT", "NULL":
				rc.NotNull = true
			case "AUTO_INCREMENT":
				rc.AutoIncrement = true
			case "COMMENT":
				rc.RequireComment = true
			}
		}
		out = append(out, rc)
	}
	return out
}

// checkRequiredColumns implements the "must-have columns" spec rule (spec
// §4.3): each absent requirement is reported; a present column with a
// mismatching type/unsigned/null/auto/comment is also reported.
func (e *Engine) checkRequiredColumns(stmt *session.Statement, cols []columnFacts) {
	specs := parseRequiredColumns(e.Rules.RequiredColumns)
	if len(specs) == 0 {
		return
	}
	byName := make(map[string]columnFacts, len(cols))
	for _, c := range cols {
		byName[strings.ToLower(c.Name)] = c
	}
	for _, rc := range specs {
		got, ok := byName[strings.ToLower(rc.Name)]
		if !ok {
			report(stmt, config.Error, "Required column %q is missing.", rc.Name)
			continue
		}
		if !strings.EqualFold(got.TypeName, rc.Type) {
			report(stmt, config.Error, "Required column %q must be type %s, got %s.", rc.Name, rc.Type, got.TypeName)
		}
		if rc.Unsigned && !got.Unsigned {
			report(stmt, config.Error, "Required column %q must be UNSIGNED.", rc.Name)
		}
		if rc.NotNull && got.Nullable {
			report(stmt, config.Error, "Required column %q must be NOT NULL.", rc.Name)
		}
		if rc.AutoIncrement && !got.AutoIncrement {
			report(stmt, config.Error, "Required column %q must be AUTO_INCREMENT.", rc.Name)
		}
		if rc.RequireComment && !got.HasComment {
			report(stmt, config.Error, "Required column %q must have a COMMENT.", rc.Name)
		}
	}
}
