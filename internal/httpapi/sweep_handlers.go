package httpapi

import (
	"net/http"

	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/lifecycle"
)

type SweepHandler struct {
	Sweeper *lifecycle.Sweeper
	Hub     *events.Hub
}

func (h SweepHandler) Run(w http.ResponseWriter, r *http.Request) {
	swept, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "sweep_failed", err.Error())
		return
	}

	if swept > 0 {
		reqID := RequestIDFrom(r.Context())
		h.Hub.Publish(events.MakeEvent(reqID, events.TypeJobsSwept, map[string]any{"swept": swept}))
	}
	writeJSON(w, map[string]any{"swept": swept})
}
