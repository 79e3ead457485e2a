// Package admin implements the `inception <verb> <args>` command
// dispatcher (spec §4.10): a small case-insensitive lexer over four verbs
// (show, set, get, kill),
// run outside the marker bracket so none of them need magic_start.
package admin

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/marker"
	"github.com/hanchuanchuan/goinception-gateway/resultset"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// Prefix is the case-insensitive literal every admin command starts with
// (spec §4.1 "begins with the literal prefix `inception `").
const Prefix = "inception "

// IsCommand reports whether text is an admin command (spec §4.1).
func IsCommand(text string) bool {
	return len(text) >= len(Prefix) && strings.EqualFold(text[:len(Prefix)], Prefix)
}

// Killer aborts a session's in-flight execution, wired by the gateway to
// the session's execution engine so that a force kill also issues a
// remote KILL against the thread currently serving the batch (spec §4.6
// "Cancellation", §4.10 "kill <tid> [force]"). Left unset (nil), `kill`
// falls back to only setting the session's cooperative flag.
type Killer interface {
	Kill(ctx *session.Context, force bool) error
}

// Dispatcher routes admin commands against the process-wide session store
// and config (spec §4.10, §5 "blocking on the context mutex during an
// admin command write").
type Dispatcher struct {
	Store  *session.Store
	Config *config.Config
	Killer Killer
}

func New(store *session.Store, cfg *config.Config) *Dispatcher {
	return &Dispatcher{Store: store, Config: cfg}
}

// Dispatch parses and runs one admin command, returning the result set to
// send back to the client (spec §4.9).
func (d *Dispatcher) Dispatch(text string) (*resultset.ResultSet, error) {
	body := strings.TrimSpace(text[len(Prefix):])
	body = strings.TrimSuffix(body, ";")
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, errors.New("empty inception command")
	}

	verb := strings.ToLower(fields[0])
	switch verb {
	case "show":
		return d.dispatchShow(fields[1:])
	case "set":
		return d.dispatchSet(fields[1:])
	case "get":
		return d.dispatchGet(body, fields[1:])
	case "kill":
		return d.dispatchKill(fields[1:])
	default:
		return nil, errors.Errorf("unknown inception command %q", verb)
	}
}

func (d *Dispatcher) dispatchShow(args []string) (*resultset.ResultSet, error) {
	if len(args) == 0 {
		return nil, errors.New("show requires a sub-command")
	}
	switch strings.ToLower(args[0]) {
	case "sessions":
		return resultset.Sessions(d.Store.All()), nil
	case "variables":
		return d.showVariables(args[1:])
	default:
		return nil, errors.Errorf("unknown show sub-command %q", args[0])
	}
}

// showVariables implements the supplemented `inception show variables
// [like '...']` verb, returning the current rule-knob table (SPEC_FULL.md
// SUPPLEMENTED FEATURES).
func (d *Dispatcher) showVariables(rest []string) (*resultset.ResultSet, error) {
	like := ""
	if len(rest) >= 2 && strings.EqualFold(rest[0], "like") {
		like = strings.ToLower(strings.Trim(rest[1], "'\""))
	}
	rs := &resultset.ResultSet{Columns: []string{"variable_name", "value"}}
	for _, kv := range ruleKnobs(&d.Config.Rules) {
		if like != "" && !strings.Contains(strings.ToLower(kv.name), like) {
			continue
		}
		rs.Rows = append(rs.Rows, []interface{}{kv.name, kv.value})
	}
	return rs, nil
}

// dispatchSet implements `set sleep <tid> <ms>` (spec §4.10).
func (d *Dispatcher) dispatchSet(args []string) (*resultset.ResultSet, error) {
	if len(args) != 3 || strings.ToLower(args[0]) != "sleep" {
		return nil, errors.New("usage: set sleep <tid> <ms>")
	}
	tid, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid thread id")
	}
	ms, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, errors.Wrap(err, "invalid sleep value")
	}
	ctx, ok := d.Store.ByConnectionID(tid)
	if !ok {
		return nil, errors.Errorf("no such session %d", tid)
	}
	ctx.SetSleepMs(ms)
	return &resultset.ResultSet{Columns: []string{"result"}, Rows: [][]interface{}{{"OK"}}}, nil
}

// dispatchGet implements `get sqltypes` and `get encrypt_password '<plain>'`
// (spec §4.9, §4.10).
func (d *Dispatcher) dispatchGet(body string, args []string) (*resultset.ResultSet, error) {
	if len(args) == 0 {
		return nil, errors.New("get requires a sub-command")
	}
	switch strings.ToLower(args[0]) {
	case "sqltypes":
		return resultset.SQLTypes(), nil
	case "encrypt_password":
		plain, err := encryptPasswordArg(body)
		if err != nil {
			return nil, err
		}
		return resultset.EncryptPassword(marker.EncryptPassword(plain, d.Config.Remote.AESKey)), nil
	default:
		return nil, errors.Errorf("unknown get sub-command %q", args[0])
	}
}

// encryptPasswordArg extracts the single-quoted plaintext argument from
// "get encrypt_password '<plain>'", tolerating embedded spaces the Fields
// split above would have broken apart.
func encryptPasswordArg(body string) (string, error) {
	start := strings.IndexByte(body, '\'')
	if start < 0 {
		return "", errors.New("usage: get encrypt_password '<plain>'")
	}
	end := strings.LastIndexByte(body, '\'')
	if end <= start {
		return "", errors.New("usage: get encrypt_password '<plain>'")
	}
	return body[start+1 : end], nil
}

// dispatchKill implements `kill <tid> [force]` (spec §4.10, §5).
func (d *Dispatcher) dispatchKill(args []string) (*resultset.ResultSet, error) {
	if len(args) == 0 {
		return nil, errors.New("usage: kill <tid> [force]")
	}
	tid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid thread id")
	}
	force := len(args) > 1 && strings.EqualFold(args[1], "force")
	ctx, ok := d.Store.ByConnectionID(tid)
	if !ok {
		return nil, errors.Errorf("no such session %d", tid)
	}
	if d.Killer != nil {
		if err := d.Killer.Kill(ctx, force); err != nil {
			return nil, err
		}
	} else {
		ctx.SetKilled(force)
	}
	return &resultset.ResultSet{Columns: []string{"result"}, Rows: [][]interface{}{{"OK"}}}, nil
}
