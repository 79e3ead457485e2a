package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hanchuanchuan/goinception-gateway/gateway"
	"github.com/hanchuanchuan/goinception-gateway/resultset"
)

// runStdio is a line-delimited stand-in for the out-of-scope MySQL
// wire-protocol front-end (spec §1 "assumed to deliver statement text to
// the core and accept result rows from it"). Each non-empty input line is
// one statement; a bare `;` on its own line is not required. It exists
// only to exercise Gateway end to end from a terminal; it is not a MySQL
// server and never will be.
func runStdio(gw *gateway.Gateway, in io.Reader, out io.Writer) {
	const connID = 1
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handleLine(gw, connID, line, out)
	}
}

func handleLine(gw *gateway.Gateway, connID uint64, text string, out io.Writer) {
	outcome, err := gw.BeforeStatement(connID, text)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return
	}

	switch outcome.Signal {
	case gateway.ResultReady:
		printResultSet(out, outcome.ResultSet)
		return
	case gateway.Acked:
		fmt.Fprintln(out, "OK")
		return
	}

	node, perr := gw.Parser.ParseOne(text)
	if perr != nil {
		gw.AfterParseError(connID, text, perr)
		fmt.Fprintln(out, "OK, more results follow")
		return
	}
	if err := gw.AfterParseOk(connID, node, text); err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK")
}

func printResultSet(out io.Writer, rs *resultset.ResultSet) {
	if rs == nil {
		fmt.Fprintln(out, "OK")
		return
	}
	fmt.Fprintln(out, strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Fprintln(out, strings.Join(cells, "\t"))
	}
}
