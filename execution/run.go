package execution

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/hanchuanchuan/goinception-gateway/logging"
	"github.com/hanchuanchuan/goinception-gateway/marker"
	"github.com/hanchuanchuan/goinception-gateway/metrics"
	"github.com/hanchuanchuan/goinception-gateway/remote"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// Run executes every statement of ctx.Statements in order against the
// primary connection (spec §4.6 "Sequential execution loop"). A statement
// whose ErrLevel is already LevelError (from the audit pass) is marked
// StageSkipped and never sent. Any other statement that fails on send is
// marked LevelError, StageSkipped is applied to everything after it unless
// ctx.Force is set, matching the original's force/skip-rest semantics.
// ErrBatchBlocked is returned when the pre-scan finds a statement whose
// severity would violate the batch's force/ignore_warnings gate (spec §4.6
// step 3): every statement's Stage stays StageChecked, nothing executes.
var ErrBatchBlocked = errors.New("batch blocked: audit errors or warnings present")

func (e *Engine) Run(ctx *session.Context) error {
	if ctx.IsKilled() {
		for _, stmt := range ctx.Statements {
			stmt.Stage = session.StageSkipped
			stmt.StageStatus = "Killed by user"
		}
		return nil
	}
	if blocked(ctx) {
		return ErrBatchBlocked
	}
	if e.Pool != nil {
		db, err := e.Pool.Primary()
		if err != nil {
			for _, stmt := range ctx.Statements {
				stmt.Raise(session.LevelError, err.Error())
				stmt.Stage = session.StageSkipped
			}
			return err
		}
		captureRemoteThreadID(ctx, db)
	}
	if err := e.Preflight(); err != nil {
		return err
	}

	replicas := e.openReplicas(ctx)
	defer e.closeReplicas(replicas)

	stopRest := false
	for _, stmt := range ctx.Statements {
		if ctx.IsKilled() {
			stmt.Stage = session.StageSkipped
			stmt.StageStatus = "Killed by user"
			continue
		}
		if stmt.ErrLevel == session.LevelError {
			stmt.Stage = session.StageSkipped
			stmt.StageStatus = "Skipped: audit error"
			continue
		}
		if stopRest {
			stmt.Stage = session.StageSkipped
			stmt.StageStatus = "Skipped: previous statement failed"
			continue
		}

		if err := e.WaitForReady(ctx, replicas); err != nil {
			if err == ErrKilled {
				stmt.Stage = session.StageSkipped
				stmt.StageStatus = "Killed by user"
				continue
			}
			stmt.Raise(session.LevelError, err.Error())
			stmt.Stage = session.StageSkipped
			stmt.StageStatus = "Execute failed"
			if !ctx.Force {
				stopRest = true
			}
			continue
		}

		if ctx.GetSleepMs() > 0 {
			time.Sleep(time.Duration(ctx.GetSleepMs()) * time.Millisecond)
		}

		if err := e.execOne(ctx, stmt); err != nil {
			stmt.Raise(session.LevelError, err.Error())
			stmt.Stage = session.StageSkipped
			stmt.StageStatus = "Execute failed"
			metrics.StatementsExecuted.WithLabelValues("failed").Inc()
			if !ctx.Force {
				stopRest = true
			}
			continue
		}
		stmt.Stage = session.StageExecuted
		metrics.StatementsExecuted.WithLabelValues("ok").Inc()
	}
	ctx.SetRemoteThreadID(0)
	return nil
}

// openReplicas opens one connection per configured replica for the
// duration of this execute phase (spec §4.5, §4.6 step 4), best-effort:
// a replica that fails to connect is skipped, not fatal to the batch.
func (e *Engine) openReplicas(ctx *session.Context) []*remote.ReplicaConn {
	if len(ctx.Replicas) == 0 {
		return nil
	}
	creds := remote.Credentials{User: ctx.User, Password: ctx.Password}
	connectTimeout, ioTimeout := 10*time.Second, 30*time.Second
	if e.Cfg != nil {
		connectTimeout = time.Duration(e.Cfg.ConnectTimeoutExec) * time.Second
		ioTimeout = time.Duration(e.Cfg.IOTimeoutAudit) * time.Second
	}
	conns := make([]*remote.ReplicaConn, 0, len(ctx.Replicas))
	for _, hp := range ctx.Replicas {
		conn, err := remote.OpenReplica(creds, remote.Endpoint{Host: hp.Host, Port: hp.Port}, connectTimeout, ioTimeout)
		if err != nil {
			logger.Warnw("replica connect failed", "host", hp.Host, "port", hp.Port, "error", err)
			continue
		}
		conns = append(conns, conn)
	}
	return conns
}

// closeReplicas releases every replica connection opened for this execute
// phase (spec §4.6 step 9 "close replicas, close primary").
func (e *Engine) closeReplicas(conns []*remote.ReplicaConn) {
	for _, c := range conns {
		if err := c.Close(); err != nil {
			logger.Warnw("replica close failed", "error", err)
		}
	}
}

// blocked implements the pre-scan gate (spec §4.6 step 3): any statement at
// error severity blocks the batch unless force is set; any statement at
// warning severity blocks it unless ignore_warnings is set.
func blocked(ctx *session.Context) bool {
	for _, stmt := range ctx.Statements {
		if stmt.ErrLevel == session.LevelError && !ctx.Force {
			return true
		}
		if stmt.ErrLevel == session.LevelWarning && !ctx.IgnoreWarnings {
			return true
		}
	}
	return false
}

func (e *Engine) execOne(ctx *session.Context, stmt *session.Statement) error {
	db, err := e.Pool.Primary()
	if err != nil {
		reconn, rerr := e.Pool.Reconnect()
		if rerr != nil {
			return errors.Wrap(err, "primary connection lost and reconnect failed")
		}
		db = reconn
	}

	start := time.Now()
	result, err := db.DB().Exec(stripLeadingMarkerComment(stmt.OriginalText))
	stmt.ExecuteTime = time.Since(start)
	stmt.SequenceToken = sequenceToken(start, ctx.ConnectionID, stmt.ID)
	metrics.ExecuteDuration.Observe(stmt.ExecuteTime.Seconds())
	if err != nil {
		return err
	}
	if result != nil {
		if n, aerr := result.RowsAffected(); aerr == nil {
			if n == -1 {
				n = 0 // the all-ones sentinel means "unknown", treated as 0
			}
			stmt.AffectedRows = n
		}
	}

	if ctx.Backup {
		backupDBID, berr := e.Backup.Generate(stmt)
		if berr != nil {
			logging.GetLogger("execution").Warnw("backup generation failed", "error", berr)
		}
		stmt.BackupDBID = backupDBID
	}

	if !ctx.IgnoreWarnings {
		if n, werr := warningCount(db); werr == nil && n > 0 {
			stmt.Raise(session.LevelWarning, "statement produced warnings on the remote target")
		}
	}

	return nil
}

// captureRemoteThreadID records the remote connection's thread id as soon as
// the primary connection is obtained, before any statement runs, so a
// concurrent force-kill can always reach the remote target (spec §4.6
// "Cancellation", scenario S5) even while the first statement is still
// executing.
func captureRemoteThreadID(ctx *session.Context, db *gorm.DB) {
	var tid uint32
	if row := db.DB().QueryRow("SELECT CONNECTION_ID()"); row != nil {
		_ = row.Scan(&tid)
		ctx.SetRemoteThreadID(tid)
	}
}

// stripLeadingMarkerComment removes a leading magic_start marker comment
// still attached to the first statement's text (spec §4.6 step 6: "with the
// magic-start comment stripped if still present on the first statement").
// Any other statement never carries one, so this is a no-op for it.
func stripLeadingMarkerComment(sql string) string {
	body, rest, ok := marker.LeadingComment(sql)
	if !ok || !marker.IsMagicStart(body) {
		return sql
	}
	return rest
}

// sequenceToken builds the '<unix>_<conn-id>_<stmt-id>' token spec §4.6
// step 6 attaches to every executed statement.
func sequenceToken(at time.Time, connID uint64, stmtID int) string {
	return fmt.Sprintf("%d_%d_%d", at.Unix(), connID, stmtID)
}

func warningCount(db *gorm.DB) (int, error) {
	rows, err := db.DB().Query(remote.ShowWarningsQuery)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}
