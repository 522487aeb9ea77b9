package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/ingest"
)

type IngestHandler struct {
	Reconciler *ingest.Reconciler
	Hub        *events.Hub
}

type ingestReq struct {
	Postings []domain.JobPosting `json:"postings"`
}

func (h IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := h.Reconciler.Ingest(r.Context(), req.Postings)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			WriteError(w, r, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		WriteError(w, r, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}

	if res.InsertedNew > 0 || res.UpdatedExisting > 0 {
		reqID := RequestIDFrom(r.Context())
		h.Hub.Publish(events.MakeEvent(reqID, events.TypeJobsIngested, res))
	}
	writeJSON(w, res)
}
