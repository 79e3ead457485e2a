package config

// Rules holds every audit rule knob from spec §4.3/§6.5. Every knob is
// observed per-statement; nothing here is cached by the audit engine.
type Rules struct {
	// --- Object existence (most are fixed-severity per spec; the few with
	// a configurable knob are listed here) ---
	DropDatabaseMissing Severity // (W) + DDLSeverity, spec combines both

	// --- Structural ---
	RequirePrimaryKey      Severity
	RequireTableComment    Severity
	RequireInnodbEngine    Severity
	ForbidCreateTableAsSelect Severity
	IdentifierFormat       Severity
	ReservedKeywordCollision Severity
	MaxTableNameLength     int
	MaxColumnNameLength    int
	MaxDatabaseNameLength  int
	MaxColumnCount         int // 0 = off
	MaxIndexCount          int
	MaxIndexParts          int
	MaxPrimaryKeyParts     int
	AllowedCharsets        []string // empty = no whitelist enforcement
	DiscouragePartitioned  Severity
	AutoIncrementMustBeIntUnsigned Severity
	AutoIncrementMustBeNamedID     Severity
	AutoIncrementInitialValueMustBeOne Severity

	// --- Column attributes ---
	RequireColumnComment        Severity
	NullableWarning             Severity
	NotNullWithoutDefault       Severity
	DefaultRequiredOnNewColumn  Severity
	BlobTextEnumSetBitJSONWarn  Severity
	JSONDefaultDisallowed       Severity
	JSONForbiddenBeforeMySQL57  Severity
	ExplicitColumnCharset       Severity
	MaxCharWidth                int // above this, recommend VARCHAR
	TimestampWithoutDefault     Severity
	DecimalPrecisionScaleChange Severity
	IntegerNarrowing            Severity
	VarcharShrink               Severity
	RequiredColumns             string // semicolon-separated "name TYPE [UNSIGNED] [NOT NULL] [AUTO_INCREMENT] [COMMENT]"

	// --- Index ---
	UniqueKeyPrefix       string
	NonUniqueKeyPrefix    string
	KeyNamePrefix         Severity
	ForbidForeignKeys     Severity
	BlobTextIndexNeedsPrefix Severity
	MaxKeyPartBytes       int
	MaxIndexTotalBytes    int
	RedundantIndex        Severity

	// --- DML ---
	DeleteSeverity            Severity
	ForbidDMLWithoutWhere     Severity
	DMLWithLimit              Severity
	DMLWithOrderBy            Severity
	InsertMustListColumns     Severity
	InsertColumnValueMismatch Severity
	InsertDuplicateColumn    Severity
	InsertColumnExistsInTarget Severity
	InsertSelectWithoutWhere Severity
	MaxInElements            int // 0 = off
	ForbidSelectStar         Severity
	OrderByRand              Severity
	MaxRowsEstimate          int

	// --- TiDB-specific (applied only when the remote profile is TiDB) ---
	TiDBForbidMultipleAlterOps Severity
	TiDBForbidVarcharShrink    Severity
	TiDBForbidDecimalChange    Severity
	TiDBForbidLossyNarrowing   Severity
	TiDBForbidForeignKey       Severity

	// --- Supplemented (SPEC_FULL.md) ---
	RecommendOSCRowThreshold int    // rows above which an ALTER is flagged for OSC tooling
	DefaultCharset           string // per-database default charset/collation knob
}

// DefaultRules mirrors the defaults spelled out in spec §4.3, choosing a
// sensible value wherever the spec leaves a knob's default unstated.
func DefaultRules() Rules {
	return Rules{
		DropDatabaseMissing: Warn,

		RequirePrimaryKey:         Error,
		RequireTableComment:       Error,
		RequireInnodbEngine:       Error,
		ForbidCreateTableAsSelect: Off,
		IdentifierFormat:          Off,
		ReservedKeywordCollision:  Off,
		MaxTableNameLength:        64,
		MaxColumnNameLength:       64,
		MaxDatabaseNameLength:     64,
		MaxColumnCount:            0,
		MaxIndexCount:             16,
		MaxIndexParts:             5,
		MaxPrimaryKeyParts:        5,
		AllowedCharsets:           nil,
		DiscouragePartitioned:     Warn,
		AutoIncrementMustBeIntUnsigned:     Warn,
		AutoIncrementMustBeNamedID:         Off,
		AutoIncrementInitialValueMustBeOne: Warn,

		RequireColumnComment:        Error,
		NullableWarning:             Warn,
		NotNullWithoutDefault:       Off,
		DefaultRequiredOnNewColumn:  Off,
		BlobTextEnumSetBitJSONWarn:  Off,
		JSONDefaultDisallowed:       Error,
		JSONForbiddenBeforeMySQL57:  Error,
		ExplicitColumnCharset:       Off,
		MaxCharWidth:                20,
		TimestampWithoutDefault:     Warn,
		DecimalPrecisionScaleChange: Off,
		IntegerNarrowing:            Warn,
		VarcharShrink:               Warn,
		RequiredColumns:             "",

		UniqueKeyPrefix:          "uniq_",
		NonUniqueKeyPrefix:       "idx_",
		KeyNamePrefix:            Warn,
		ForbidForeignKeys:        Off,
		BlobTextIndexNeedsPrefix: Error,
		MaxKeyPartBytes:          767,
		MaxIndexTotalBytes:       3072,
		RedundantIndex:           Warn,

		DeleteSeverity:             Warn,
		ForbidDMLWithoutWhere:      Error,
		DMLWithLimit:               Off,
		DMLWithOrderBy:             Warn,
		InsertMustListColumns:      Error,
		InsertColumnValueMismatch:  Error,
		InsertDuplicateColumn:      Error,
		InsertColumnExistsInTarget: Error,
		InsertSelectWithoutWhere:   Error,
		MaxInElements:              0,
		ForbidSelectStar:           Off,
		OrderByRand:                Warn,
		MaxRowsEstimate:            10000,

		TiDBForbidMultipleAlterOps: Error,
		TiDBForbidVarcharShrink:    Error,
		TiDBForbidDecimalChange:    Error,
		TiDBForbidLossyNarrowing:   Error,
		TiDBForbidForeignKey:       Error,

		RecommendOSCRowThreshold: 100000,
		DefaultCharset:           "utf8mb4",
	}
}
