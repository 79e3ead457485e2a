package remote

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Prober implements the existence checks and row-count estimation of spec
// §4.3 against a Pool's primary connection.
type Prober struct {
	pool *Pool
}

func NewProber(pool *Pool) *Prober {
	return &Prober{pool: pool}
}

// ColumnInfo is the shape returned by ColumnInfoQuery.
type ColumnInfo struct {
	DataType      string
	CharMaxLength sql.NullInt64
	NumPrecision  sql.NullInt64
	NumScale      sql.NullInt64
}

func (p *Prober) db() (*sql.DB, error) {
	gdb, err := p.pool.Primary()
	if err != nil {
		return nil, err
	}
	return gdb.DB(), nil
}

func existsQuery(db *sql.DB, query string) (bool, error) {
	rows, err := db.Query(query)
	if err != nil {
		return false, errors.Wrap(err, "existence probe")
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

// DatabaseExists probes the remote target for db (spec §4.3 "Existence checks").
func (p *Prober) DatabaseExists(db string) (bool, error) {
	conn, err := p.db()
	if err != nil {
		return false, err
	}
	return existsQuery(conn, ShowDatabasesLike(db))
}

// TableExists probes for table within db. It issues USE db itself before
// the SHOW TABLES LIKE query, since that template is unqualified.
func (p *Prober) TableExists(dbName, table string) (bool, error) {
	conn, err := p.db()
	if err != nil {
		return false, err
	}
	if _, err := conn.Exec(UseDatabase(dbName)); err != nil {
		return false, errors.Wrapf(err, "use database %s", dbName)
	}
	return existsQuery(conn, ShowTablesLike(table))
}

func (p *Prober) ColumnExists(dbName, table, column string) (bool, error) {
	conn, err := p.db()
	if err != nil {
		return false, err
	}
	return existsQuery(conn, ColumnExistsQuery(dbName, table, column))
}

func (p *Prober) IndexExists(dbName, table, index string) (bool, error) {
	conn, err := p.db()
	if err != nil {
		return false, err
	}
	return existsQuery(conn, IndexExistsQuery(dbName, table, index))
}

// ColumnInfo fetches the declared type/length/precision of a single column,
// used by the MODIFY/CHANGE COLUMN narrowing checks (VARCHAR length,
// DECIMAL precision/scale, integer width).
func (p *Prober) ColumnInfo(dbName, table, column string) (ColumnInfo, error) {
	conn, err := p.db()
	if err != nil {
		return ColumnInfo{}, err
	}
	var ci ColumnInfo
	row := conn.QueryRow(ColumnInfoQuery(dbName, table, column))
	if err := row.Scan(&ci.DataType, &ci.CharMaxLength, &ci.NumPrecision, &ci.NumScale); err != nil {
		return ColumnInfo{}, errors.Wrapf(err, "column info %s.%s.%s", dbName, table, column)
	}
	return ci, nil
}

// ColumnList returns every column of (db, table) in declared order, used to
// expand `SELECT *` in the query-tree extractor (spec §4.7).
func (p *Prober) ColumnList(dbName, table string) ([]string, error) {
	conn, err := p.db()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ColumnListQuery(dbName, table))
	if err != nil {
		return nil, errors.Wrapf(err, "column list %s.%s", dbName, table)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// TableRowsFallback reads information_schema.TABLES.TABLE_ROWS, used when
// EstimateRows cannot get a row estimate from EXPLAIN and by the ALTER
// OSC recommendation (spec §4.3 "Row-count estimation").
func (p *Prober) TableRowsFallback(dbName, table string) (int64, error) {
	conn, err := p.db()
	if err != nil {
		return 0, err
	}
	var n sql.NullInt64
	row := conn.QueryRow(RowEstimateQuery(dbName, table))
	if err := row.Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "table rows fallback %s.%s", dbName, table)
	}
	return n.Int64, nil
}

// EstimateRows runs EXPLAIN against explainSQL and sums the engine's own row
// estimate column (spec §4.3): MySQL's `rows` column across every plan row,
// TiDB's single `estRows` row. On any scan/parse failure it falls back to
// TableRowsFallback.
func (p *Prober) EstimateRows(dbName, table string, profile Profile, explainSQL string) (int64, error) {
	conn, err := p.db()
	if err != nil {
		return 0, err
	}
	rows, err := conn.Query("EXPLAIN " + explainSQL)
	if err != nil {
		return p.TableRowsFallback(dbName, table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return p.TableRowsFallback(dbName, table)
	}
	targetCol := "rows"
	if profile.IsTiDB {
		targetCol = "estRows"
	}
	idx := -1
	for i, c := range cols {
		if strings.EqualFold(c, targetCol) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p.TableRowsFallback(dbName, table)
	}

	var total int64
	found := false
	for rows.Next() {
		dest := make([]interface{}, len(cols))
		raw := make([]sql.RawBytes, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return p.TableRowsFallback(dbName, table)
		}
		v := string(raw[idx])
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		total += int64(n)
		found = true
		if profile.IsTiDB {
			break
		}
	}
	if err := rows.Err(); err != nil || !found {
		return p.TableRowsFallback(dbName, table)
	}
	return total, nil
}
