// Package querytree implements the query-tree extractor (spec §4.7): one
// JSON dataflow document per statement, describing referenced tables and
// the columns used in each clause bucket.
package querytree

import "encoding/json"

// TableEntry is one row of a Tree's "tables" array.
type TableEntry struct {
	DB    string `json:"db"`
	Table string `json:"table"`
	Alias string `json:"alias"`
	Type  string `json:"type"` // "read" or "write"
}

// ColumnEntry is one row of a Tree's per-bucket "columns" array.
type ColumnEntry struct {
	DB       string   `json:"db"`
	Table    string   `json:"table"`
	Column   string   `json:"column"`
	Expanded []string `json:"expanded,omitempty"`
}

// Tree is the top-level JSON shape spec §4.7 describes.
type Tree struct {
	SQLType string                   `json:"sql_type"`
	Tables  []TableEntry             `json:"tables"`
	Columns map[string][]ColumnEntry `json:"columns"`
}

func newTree(sqlType string) *Tree {
	return &Tree{SQLType: sqlType, Columns: make(map[string][]ColumnEntry)}
}

func (t *Tree) addColumn(bucket string, c ColumnEntry) {
	t.Columns[bucket] = append(t.Columns[bucket], c)
}

func (t *Tree) addTable(e TableEntry) {
	for _, existing := range t.Tables {
		if existing.DB == e.DB && existing.Table == e.Table && existing.Alias == e.Alias && existing.Type == e.Type {
			return
		}
	}
	t.Tables = append(t.Tables, e)
}

// JSON renders the tree document (spec §4.7 "Top-level shape").
func (t *Tree) JSON() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
