package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/lifecycle"
)

type JobsHandler struct {
	Consumer *lifecycle.Service
	CfgVal   *atomic.Value // stores config.Config
}

// Next returns the oldest NEW jobs without changing their state. Callers
// acknowledge with POST /jobs/consume once they have durably handled them.
// Without a limit parameter the configured consumer.fetch_limit applies.
func (h JobsHandler) Next(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	if limit == 0 && h.CfgVal != nil {
		if cfg, ok := h.CfgVal.Load().(config.Config); ok {
			limit = cfg.Consumer.FetchLimit
		}
	}

	jobs, err := h.Consumer.FetchNew(r.Context(), limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}
	if jobs == nil {
		jobs = []*domain.StoredJob{}
	}
	writeJSON(w, map[string]any{"jobs": jobs})
}

type consumeReq struct {
	IDs []string `json:"ids"`
}

func (h JobsHandler) Consume(w http.ResponseWriter, r *http.Request) {
	var req consumeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := h.Consumer.MarkConsumed(r.Context(), req.IDs)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			WriteError(w, r, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		WriteError(w, r, http.StatusInternalServerError, "consume_failed", err.Error())
		return
	}
	writeJSON(w, res)
}
