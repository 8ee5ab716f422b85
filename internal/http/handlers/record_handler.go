package handlers

import (
	"net/http"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/service"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type RecordHandler struct {
	service service.SiteAnalyzer
	log     *log.Logger
}

func NewRecordHandler(service service.SiteAnalyzer, log *log.Logger) *RecordHandler {
	return &RecordHandler{service: service, log: log}
}

func (h *RecordHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, `id`)
	if id == `` {
		sendError(w, `analysis id is required`, nil, http.StatusBadRequest)
		return
	}

	record, err := h.service.Record(r.Context(), id)
	if err != nil {
		if errors.Is(err, adaptors.ErrNotFound) {
			sendError(w, `analysis not found`, err, http.StatusNotFound)
			return
		}
		sendError(w, `failed to load analysis`, err, http.StatusInternalServerError)
		return
	}

	if err := sendJSON(w, http.StatusOK, record); err != nil {
		h.log.WithError(err).Error(`failed to encode response`)
	}
}
