package remote

import "fmt"

// Templates implements spec §6.3's fixed SQL templates verbatim. These are
// issued against information_schema/SHOW on the remote target; the
// identifiers they carry come from the parsed AST, not from the end user's
// raw text, matching the original's fixed-template approach.

func ShowDatabasesLike(db string) string {
	return fmt.Sprintf("SHOW DATABASES LIKE '%s'", escapeLike(db))
}

func UseDatabase(db string) string {
	return fmt.Sprintf("USE `%s`", db)
}

func ShowTablesLike(table string) string {
	return fmt.Sprintf("SHOW TABLES LIKE '%s'", escapeLike(table))
}

func ColumnExistsQuery(db, table, column string) string {
	return fmt.Sprintf(
		"SELECT 1 FROM information_schema.COLUMNS WHERE TABLE_SCHEMA='%s' AND TABLE_NAME='%s' AND COLUMN_NAME='%s'",
		escapeLiteral(db), escapeLiteral(table), escapeLiteral(column))
}

func IndexExistsQuery(db, table, index string) string {
	return fmt.Sprintf(
		"SELECT 1 FROM information_schema.STATISTICS WHERE TABLE_SCHEMA='%s' AND TABLE_NAME='%s' AND INDEX_NAME='%s' LIMIT 1",
		escapeLiteral(db), escapeLiteral(table), escapeLiteral(index))
}

func RowEstimateQuery(db, table string) string {
	return fmt.Sprintf(
		"SELECT TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA='%s' AND TABLE_NAME='%s'",
		escapeLiteral(db), escapeLiteral(table))
}

func ColumnInfoQuery(db, table, column string) string {
	return fmt.Sprintf(
		"SELECT DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE FROM information_schema.COLUMNS WHERE TABLE_SCHEMA='%s' AND TABLE_NAME='%s' AND COLUMN_NAME='%s'",
		escapeLiteral(db), escapeLiteral(table), escapeLiteral(column))
}

func ColumnListQuery(db, table string) string {
	return fmt.Sprintf(
		"SELECT COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA='%s' AND TABLE_NAME='%s' ORDER BY ORDINAL_POSITION",
		escapeLiteral(db), escapeLiteral(table))
}

const ShowWarningsQuery = "SHOW WARNINGS"

const ShowThreadsRunningQuery = "SHOW GLOBAL STATUS LIKE 'Threads_running'"

const ShowSlaveStatusQuery = "SHOW SLAVE STATUS"

const ReadOnlyQuery = "SELECT @@GLOBAL.read_only"

func KillQuery(remoteThreadID uint32) string {
	return fmt.Sprintf("KILL %d", remoteThreadID)
}

func escapeLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '\\':
			out = append(out, '\\', s[i])
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

func escapeLike(s string) string {
	return escapeLiteral(s)
}
