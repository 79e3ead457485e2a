package gateway

import (
	"strconv"
	"time"

	"github.com/hanchuanchuan/goinception-gateway/session"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func durationSince(ctx *session.Context) time.Duration {
	if ctx.StartedAt.IsZero() {
		return 0
	}
	return time.Since(ctx.StartedAt)
}

func portString(port int) string {
	return strconv.Itoa(port)
}
