// Package execution implements the execution engine (spec §4.6): the
// preflight read-only gate, the wait-for-ready throttle loop, the
// sequential per-statement execution loop with skip-on-error, and
// cooperative/force cancellation.
package execution

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/logging"
	"github.com/hanchuanchuan/goinception-gateway/metrics"
	"github.com/hanchuanchuan/goinception-gateway/remote"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

var logger = logging.GetLogger("execution")

// ErrReadOnly is returned by Preflight when the remote target is in
// read-only mode (spec §4.6 "Preflight: read-only gate").
var ErrReadOnly = errors.New("remote target is read-only")

// ErrKilled is returned mid-batch when the session's killed flag was
// observed between statements (spec §4.6 "Cancellation").
var ErrKilled = errors.New("execution killed by user")

// BackupGenerator produces a rollback artifact for one statement after it
// has executed successfully (spec §4.6 "Backup"). NoopBackup is the default: this
// gateway's remote-backup story is out of scope (§1 Non-goals), but the
// execution loop still calls through the interface at the point the
// original generates one, so a real implementation can be dropped in later
// without touching the engine.
type BackupGenerator interface {
	Generate(stmt *session.Statement) (backupDBID string, err error)
}

// NoopBackup implements BackupGenerator by doing nothing.
type NoopBackup struct{}

func (NoopBackup) Generate(stmt *session.Statement) (string, error) {
	return "", nil
}

// Engine runs the execute phase for one session against one remote pool.
type Engine struct {
	Pool    *remote.Pool
	Cfg     *config.Exec
	Backup  BackupGenerator
}

func New(pool *remote.Pool, cfg *config.Exec) *Engine {
	return &Engine{Pool: pool, Cfg: cfg, Backup: NoopBackup{}}
}

// Preflight runs the read-only gate (spec §4.6): if CheckReadOnly is set,
// SELECT @@GLOBAL.read_only must return 0 or execution is refused outright.
func (e *Engine) Preflight() error {
	if e.Cfg == nil || !e.Cfg.CheckReadOnly {
		return nil
	}
	db, err := e.Pool.Primary()
	if err != nil {
		return err
	}
	var ro int
	row := db.DB().QueryRow(remote.ReadOnlyQuery)
	if err := row.Scan(&ro); err != nil {
		return errors.Wrap(err, "read @@GLOBAL.read_only")
	}
	if ro != 0 {
		return ErrReadOnly
	}
	return nil
}

// WaitForReady blocks until Threads_running and the replica delay are both
// under the configured thresholds, refreshing ctx.Snapshot on each poll
// (spec §4.6 "Wait-for-ready throttle"). It returns early with ErrKilled if
// the session is killed while waiting.
func (e *Engine) WaitForReady(ctx *session.Context, replicas []*remote.ReplicaConn) error {
	if e.Cfg == nil {
		return nil
	}
	for {
		if ctx.IsKilled() {
			return ErrKilled
		}
		start := time.Now()
		threads, err := e.threadsRunning()
		if err != nil {
			return err
		}
		delay, err := e.maxReplicationDelay(replicas)
		if err != nil {
			return err
		}
		ctx.Snapshot = session.Snapshot{ThreadsRunning: threads, MaxReplicationDelay: delay}
		metrics.WaitForReadyDuration.Observe(time.Since(start).Seconds())

		overThreads := e.Cfg.MaxThreadsRunning > 0 && threads > e.Cfg.MaxThreadsRunning
		overDelay := e.Cfg.MaxReplicationDelay > 0 && (delay < 0 || delay > e.Cfg.MaxReplicationDelay)
		if !overThreads && !overDelay {
			return nil
		}
		time.Sleep(time.Second)
	}
}

func (e *Engine) threadsRunning() (int, error) {
	db, err := e.Pool.Primary()
	if err != nil {
		return 0, err
	}
	var varName string
	var val int
	row := db.DB().QueryRow(remote.ShowThreadsRunningQuery)
	if err := row.Scan(&varName, &val); err != nil {
		return 0, errors.Wrap(err, "read Threads_running")
	}
	return val, nil
}

// maxReplicationDelay returns 0 when there are no replicas configured, -1
// (unknown/NULL, treated as exceeding any threshold) when the slave status
// can't be read, else the maximum Seconds_Behind_Master across replicas.
func (e *Engine) maxReplicationDelay(replicas []*remote.ReplicaConn) (int, error) {
	if len(replicas) == 0 {
		return 0, nil
	}
	max := -1
	for _, r := range replicas {
		delay, err := readSecondsBehindMaster(r.DB())
		if err != nil {
			return -1, err
		}
		if delay < 0 {
			return -1, nil
		}
		if delay > max {
			max = delay
		}
	}
	return max, nil
}

func readSecondsBehindMaster(db *sql.DB) (int, error) {
	rows, err := db.Query(remote.ShowSlaveStatusQuery)
	if err != nil {
		return -1, errors.Wrap(err, "SHOW SLAVE STATUS")
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return -1, err
	}
	idx := -1
	for i, c := range cols {
		if c == "Seconds_Behind_Master" {
			idx = i
			break
		}
	}
	if idx < 0 || !rows.Next() {
		return -1, nil
	}
	dest := make([]interface{}, len(cols))
	raw := make([]sql.RawBytes, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return -1, err
	}
	if raw[idx] == nil {
		return -1, nil
	}
	n, err := strconv.Atoi(string(raw[idx]))
	if err != nil {
		return -1, nil
	}
	return n, nil
}
