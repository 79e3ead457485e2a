package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hanchuanchuan/goinception-gateway/config"
)

func TestPreflightSkippedWhenCheckDisabled(t *testing.T) {
	cfg := config.DefaultExec()
	cfg.CheckReadOnly = false
	e := &Engine{Pool: nil, Cfg: &cfg}
	assert.NoError(t, e.Preflight())
}

func TestPreflightNoConfigIsNoop(t *testing.T) {
	e := &Engine{Pool: nil, Cfg: nil}
	assert.NoError(t, e.Preflight())
}
