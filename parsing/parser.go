// Package parsing wraps the SQL parser assumed available by the core
// pipeline (spec §6.4): a standards-conformant MySQL 8.0 parser exposing
// tagged AST nodes. The gateway uses the teacher's own parser dependency,
// github.com/pingcap/parser, directly rather than inventing a shim type —
// its ast.StmtNode tree already satisfies the §6.4 contract (table lists,
// create/alter flags, column/index lists, expression trees).
package parsing

import (
	"sync"

	"github.com/pingcap/parser"
	"github.com/pingcap/parser/ast"
	_ "github.com/pingcap/tidb/types/parser_driver" // registers literal/value expression driver
	"github.com/pkg/errors"
)

// Parser parses one statement at a time. github.com/pingcap/parser.Parser is
// not safe for concurrent use, so every ParseOne call is serialized by the
// Parser's own mutex; sessions sharing one Parser never parse concurrently
// with each other.
type Parser struct {
	mu sync.Mutex
	p  *parser.Parser
}

func New() *Parser {
	return &Parser{p: parser.New()}
}

// ParseOne parses exactly one statement. The caller is expected to have
// already split multi-statement batches on `;` the way the session state
// machine's parse-error recovery does (spec §4.1).
func (ps *Parser) ParseOne(sql string) (ast.StmtNode, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	stmt, err := ps.p.ParseOneStmt(sql, "", "")
	if err != nil {
		return nil, errors.Wrap(err, "parse statement")
	}
	return stmt, nil
}
