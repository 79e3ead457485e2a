// Package gateway wires the session state machine (spec §4.1) and the
// interception layer (spec §4.2) over the session/audit/execution/
// querytree/split/remote packages. It is the glue the teacher's own
// `server/mysql_handler.go` plays for connection lifecycle, generalized
// from "route bytes to a sharded backend" to "route statements through an
// audit/execute pipeline."
package gateway

import (
	"strings"
	"sync"

	"github.com/pingcap/parser/ast"
	"github.com/pkg/errors"

	"github.com/hanchuanchuan/goinception-gateway/admin"
	"github.com/hanchuanchuan/goinception-gateway/audit"
	"github.com/hanchuanchuan/goinception-gateway/auditlog"
	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/execution"
	"github.com/hanchuanchuan/goinception-gateway/logging"
	"github.com/hanchuanchuan/goinception-gateway/marker"
	"github.com/hanchuanchuan/goinception-gateway/metrics"
	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/querytree"
	"github.com/hanchuanchuan/goinception-gateway/remote"
	"github.com/hanchuanchuan/goinception-gateway/resultset"
	"github.com/hanchuanchuan/goinception-gateway/session"
	"github.com/hanchuanchuan/goinception-gateway/split"
)

var logger = logging.GetLogger("gateway")

// Signal is the outcome before_statement (spec §4.1) hands back to the
// front-end.
type Signal int

const (
	NotHandled Signal = iota // run the normal parser
	Acked                    // intercepted, already ACKed, nothing more to send
	ResultReady               // intercepted, ResultSet carries the commit result set
)

// Outcome is the before_statement return value.
type Outcome struct {
	Signal    Signal
	ResultSet *resultset.ResultSet
}

// runtime holds the per-connection infrastructure handles that the pure
// data model in session.Context deliberately excludes: the remote pool,
// the prober built on it, and the stateful helpers each need one instance
// of per active batch.
type runtime struct {
	pool   *remote.Pool
	prober *remote.Prober
	engine *audit.Engine
	exec   *execution.Engine
	tree   *querytree.Extractor
	split  *split.Grouper
}

// Gateway is the process-wide glue object (spec §5 "process-wide"
// mappings): one session store, one config, one parser, one audit log
// writer, plus the per-connection runtime map it owns.
type Gateway struct {
	Store    *session.Store
	Config   *config.Config
	Parser   *parsing.Parser
	AuditLog *auditlog.Writer
	Admin    *admin.Dispatcher

	mu       sync.Mutex
	runtimes map[uint64]*runtime
}

func New(cfg *config.Config, store *session.Store, auditLog *auditlog.Writer) *Gateway {
	g := &Gateway{
		Store:    store,
		Config:   cfg,
		Parser:   parsing.New(),
		AuditLog: auditLog,
		Admin:    admin.New(store, cfg),
		runtimes: make(map[uint64]*runtime),
	}
	g.Admin.Killer = g
	return g
}

// Kill implements admin.Killer: it delegates to the target session's
// execution engine so a force kill issues a remote KILL against the
// thread currently serving its batch, falling back to only flipping the
// cooperative flag when no execute-mode runtime exists for the session
// (spec §4.6 "Cancellation").
func (g *Gateway) Kill(ctx *session.Context, force bool) error {
	rt := g.runtimeFor(ctx.ConnectionID)
	if rt == nil || rt.exec == nil {
		ctx.SetKilled(force)
		return nil
	}
	return rt.exec.Kill(ctx, force)
}

func (g *Gateway) runtimeFor(connID uint64) *runtime {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runtimes[connID]
}

func (g *Gateway) setRuntime(connID uint64, r *runtime) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runtimes[connID] = r
}

func (g *Gateway) dropRuntime(connID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.runtimes[connID]; ok && r.pool != nil {
		r.pool.Close()
	}
	delete(g.runtimes, connID)
}

// BeforeStatement implements spec §4.1's before_statement entry point.
func (g *Gateway) BeforeStatement(connID uint64, text string) (*Outcome, error) {
	if admin.IsCommand(text) {
		rs, err := g.Admin.Dispatch(text)
		if err != nil {
			return nil, err
		}
		return &Outcome{Signal: ResultReady, ResultSet: rs}, nil
	}

	ctx := g.Store.GetOrCreate(connID)
	body, _, hasComment := marker.LeadingComment(text)
	if hasComment && marker.IsMagicStart(body) {
		return g.startBatch(ctx, connID, body)
	}
	if hasComment && marker.IsMagicCommit(body) {
		return g.commitBatch(ctx, connID)
	}
	if !ctx.Active {
		return &Outcome{Signal: NotHandled}, nil
	}
	return &Outcome{Signal: NotHandled}, nil
}

// startBatch implements the idle --magic_start--> active transition. A
// second magic_start while already active is an error (spec §4.1 "There
// is no nesting").
func (g *Gateway) startBatch(ctx *session.Context, connID uint64, body string) (*Outcome, error) {
	if ctx.Active {
		return nil, errors.New("magic_start received while already active")
	}
	def := marker.Defaults{
		User:     g.Config.Remote.DefaultUser,
		Password: g.Config.Remote.DefaultPassword,
		DecryptPassword: func(cipherBase64 string) (string, error) {
			return marker.DecryptPassword(cipherBase64, g.Config.Remote.AESKey)
		},
	}
	opt, err := marker.ParseStart(body, def)
	if err != nil {
		return nil, err
	}
	ctx.Start(opt)

	pool := remote.New(
		remote.Endpoint{Host: opt.Host, Port: opt.Port},
		remote.Credentials{User: opt.User, Password: opt.Password},
		secondsToDuration(g.Config.Exec.ConnectTimeoutAudit),
		secondsToDuration(g.Config.Exec.IOTimeoutAudit),
	)
	prober := remote.NewProber(pool)
	g.setRuntime(connID, &runtime{
		pool:   pool,
		prober: prober,
		engine: audit.New(&g.Config.Rules, prober),
		exec:   execution.New(pool, &g.Config.Exec),
		tree:   querytree.New(&querytree.Expander{Prober: prober}),
		split:  split.New(),
	})

	if profile, perr := pool.DetectProfile(); perr == nil {
		ctx.Profile = session.Profile{IsTiDB: profile.IsTiDB, Major: profile.Major, Minor: profile.Minor}
	} else {
		logger.Warnw("profile detection failed", "error", perr)
	}

	metrics.SessionsActive.Inc()
	return &Outcome{Signal: Acked}, nil
}

// commitBatch implements the active --magic_commit--> idle (finalize)
// transition: assembles the mode-specific result set, logs the session
// record, and resets the context (spec §4.1, §5 "Resource release").
func (g *Gateway) commitBatch(ctx *session.Context, connID uint64) (*Outcome, error) {
	var rs *resultset.ResultSet
	switch ctx.Mode {
	case marker.ModeSplit:
		rs = resultset.Split(ctx)
	case marker.ModeQueryTree:
		rs = resultset.Tree(ctx)
	default:
		if ctx.Mode == marker.ModeExecute {
			g.runExecute(ctx, connID)
		}
		rs = resultset.Audit(ctx)
	}

	if g.AuditLog != nil {
		g.logSession(ctx)
	}

	ctx.Reset()
	g.dropRuntime(connID)
	metrics.SessionsActive.Dec()
	return &Outcome{Signal: ResultReady, ResultSet: rs}, nil
}

// runExecute drives the execution engine (spec §4.6) over the audited
// batch just before the commit result set is assembled. Errors from Run
// itself (batch blocked by the force/ignore_warnings gate, primary connect
// failure) are not fatal to the commit: the statements' own Stage/ErrLevel
// already carry the outcome the client sees in the result set.
func (g *Gateway) runExecute(ctx *session.Context, connID uint64) {
	rt := g.runtimeFor(connID)
	if rt == nil || rt.exec == nil {
		return
	}
	if err := rt.exec.Run(ctx); err != nil {
		logger.Warnw("execution run ended early", "error", err)
	}
}

func (g *Gateway) logSession(ctx *session.Context) {
	errs := 0
	for _, s := range ctx.Statements {
		if s.ErrLevel == session.LevelError {
			errs++
		}
	}
	rec := auditlog.SessionRecord{
		User:       ctx.User,
		ClientHost: "",
		Target:     hostPort(ctx.Host, ctx.Port),
		TargetUser: ctx.User,
		Mode:       ctx.Mode.String(),
		Statements: len(ctx.Statements),
		Errors:     errs,
		DurationMs: durationSince(ctx).Milliseconds(),
	}
	if err := g.AuditLog.WriteSession(rec); err != nil {
		logger.Warnw("audit log write failed", "error", err)
	}
	if ctx.Mode != marker.ModeExecute {
		return
	}
	for _, s := range ctx.Statements {
		result := "OK"
		if s.ErrLevel == session.LevelError {
			result = "ERROR"
		}
		stmtRec := auditlog.StatementRecord{
			User:         ctx.User,
			Target:       hostPort(ctx.Host, ctx.Port),
			ID:           s.ID,
			SQL:          s.OriginalText,
			Result:       result,
			AffectedRows: s.AffectedRows,
			ExecuteTime:  s.ExecuteTime.Seconds(),
		}
		if err := g.AuditLog.WriteStatement(stmtRec); err != nil {
			logger.Warnw("audit log write failed", "error", err)
		}
	}
}

// AfterParseError implements spec §4.1's after_parse_error entry point.
func (g *Gateway) AfterParseError(connID uint64, text string, parseErr error) {
	ctx := g.Store.GetOrCreate(connID)
	if !ctx.Active {
		return
	}
	truncated := text
	if idx := strings.IndexByte(text, ';'); idx >= 0 {
		truncated = text[:idx]
	}
	stmt := ctx.NextStatement(truncated)
	stmt.Raise(session.LevelError, parseErr.Error())
	stmt.Stage = session.StageChecked
}

// AfterParseOk implements spec §4.1's after_parse_ok entry point,
// delegating to the interceptor (spec §4.2).
func (g *Gateway) AfterParseOk(connID uint64, node ast.StmtNode, originalText string) error {
	ctx := g.Store.GetOrCreate(connID)
	if !ctx.Active {
		return nil
	}
	return g.Intercept(ctx, g.runtimeFor(connID), node, originalText)
}

func hostPort(host string, port int) string {
	if host == "" {
		return ""
	}
	return host + ":" + portString(port)
}
