package execution

import (
	"github.com/pkg/errors"

	"github.com/hanchuanchuan/goinception-gateway/remote"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// Kill implements the cooperative/force cancellation of spec §4.6 and the
// `inception kill [force]` admin verb (§4.10). A plain kill sets the
// session's killed flag, which Run/WaitForReady observe between statements
// (spec "cancellation only takes effect between statements, never mid-exec
// unless force is given"). A force kill additionally issues KILL against
// the remote target's thread id to interrupt whatever statement is running.
func (e *Engine) Kill(ctx *session.Context, force bool) error {
	ctx.SetKilled(force)
	if !force {
		return nil
	}
	tid := ctx.GetRemoteThreadID()
	if tid == 0 {
		return nil
	}
	db, err := e.Pool.Primary()
	if err != nil {
		return err
	}
	if _, err := db.DB().Exec(remote.KillQuery(tid)); err != nil {
		return errors.Wrapf(err, "KILL %d on remote target", tid)
	}
	return nil
}
