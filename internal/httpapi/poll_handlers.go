package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/poll"
)

type PollHandler struct {
	Runner *poll.Runner
	CfgVal *atomic.Value // stores config.Config
}

func (h PollHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Runner.Status())
}

func (h PollHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Runner.Status().Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	go func() {
		cfg := h.CfgVal.Load().(config.Config)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		_, _ = h.Runner.RunOnce(ctx, cfg)
	}()

	writeJSON(w, map[string]any{"ok": true})
}
