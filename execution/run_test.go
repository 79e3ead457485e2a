package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hanchuanchuan/goinception-gateway/session"
)

func TestNoopBackupGeneratesNothing(t *testing.T) {
	var b NoopBackup
	id, err := b.Generate(&session.Statement{})
	assert.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestRunBlocksWholeBatchOnAuditError(t *testing.T) {
	ctx := session.NewContext(1)
	stmt := ctx.NextStatement("DROP TABLE missing")
	stmt.Raise(session.LevelError, "table does not exist")
	stmt.Stage = session.StageChecked // as the interceptor leaves it after audit

	e := &Engine{Pool: nil, Cfg: nil, Backup: NoopBackup{}}
	// Preflight is a no-op with a nil Cfg, and the pre-scan gate trips
	// before Run ever touches e.Pool.
	err := e.Run(ctx)
	assert.Equal(t, ErrBatchBlocked, err)
	assert.Equal(t, session.StageChecked, stmt.Stage)
}

func TestBlockedHonorsForceAndIgnoreWarnings(t *testing.T) {
	ctx := session.NewContext(1)
	stmt := ctx.NextStatement("DROP TABLE missing")
	stmt.Raise(session.LevelError, "table does not exist")
	assert.True(t, blocked(ctx))

	ctx.Force = true
	assert.False(t, blocked(ctx))

	ctx.Force = false
	stmt.ErrLevel = session.LevelWarning
	assert.True(t, blocked(ctx))

	ctx.IgnoreWarnings = true
	assert.False(t, blocked(ctx))
}

func TestStripLeadingMarkerComment(t *testing.T) {
	withComment := "/*magic_start user=root;password=x;host=127.0.0.1;port=3306;enable_execute;*/\nUPDATE t SET x=1"
	stripped := stripLeadingMarkerComment(withComment)
	assert.Equal(t, "UPDATE t SET x=1", stripped)
	assert.Equal(t, "UPDATE t SET x=1", stripLeadingMarkerComment("UPDATE t SET x=1"))
}

func TestSequenceToken(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "1700000000_7_3", sequenceToken(at, 7, 3))
}

func TestRunSkipsWhenSessionKilled(t *testing.T) {
	ctx := session.NewContext(1)
	stmt := ctx.NextStatement("UPDATE t SET x=1")
	ctx.SetKilled(false)

	e := &Engine{Pool: nil, Cfg: nil, Backup: NoopBackup{}}
	err := e.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, session.StageSkipped, stmt.Stage)
	assert.Equal(t, "Killed by user", stmt.StageStatus)
}
