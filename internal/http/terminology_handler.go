package httpapi

import (
	"errors"
	"net/http"

	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/anukritich/AyushSetu/internal/icd"
	"github.com/anukritich/AyushSetu/internal/logger"
	"github.com/anukritich/AyushSetu/internal/service"
	"go.uber.org/zap"
)

// TerminologyHandler 术语检索 Handler
type TerminologyHandler struct {
	svc    service.TerminologyService
	logger *zap.Logger
}

func NewTerminologyHandler(svc service.TerminologyService, log *zap.Logger) *TerminologyHandler {
	return &TerminologyHandler{svc: svc, logger: logger.OrNop(log)}
}

// Systems GET /api/v1/terminology/systems
func (h *TerminologyHandler) Systems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.Systems()))
}

// Search GET /api/v1/terminology/search?system=ayurveda&q=fever&limit=10
func (h *TerminologyHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := searchRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Search(r.Context(), req)
	if err != nil {
		h.fail(w, "Search", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// SearchBySymptom GET /api/v1/terminology/symptom?system=ayurveda&q=dry+cough
func (h *TerminologyHandler) SearchBySymptom(w http.ResponseWriter, r *http.Request) {
	req, ok := searchRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.SearchBySymptom(r.Context(), req)
	if err != nil {
		h.fail(w, "SearchBySymptom", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetTerm GET /api/v1/terminology/terms/{system}/{id}
func (h *TerminologyHandler) GetTerm(w http.ResponseWriter, r *http.Request, system, termID string) {
	detail, err := h.svc.GetTerm(r.Context(), system, termID)
	if err != nil {
		h.fail(w, "GetTerm", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

// SuggestICD GET /api/v1/terminology/icd/{system}/{id}
func (h *TerminologyHandler) SuggestICD(w http.ResponseWriter, r *http.Request, system, termID string) {
	suggestion, err := h.svc.SuggestICD(r.Context(), system, termID)
	if err != nil {
		h.fail(w, "SuggestICD", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(suggestion))
}

func searchRequest(w http.ResponseWriter, r *http.Request) (service.SearchRequest, bool) {
	q := r.URL.Query()
	req := service.SearchRequest{
		System: q.Get("system"),
		Query:  q.Get("q"),
		Limit:  parseInt(q.Get("limit"), 0),
	}
	if req.System == "" {
		writeJSON(w, http.StatusOK, Fail("system is required"))
		return req, false
	}
	if req.Query == "" {
		writeJSON(w, http.StatusOK, Fail("q is required"))
		return req, false
	}
	return req, true
}

// fail 业务错误返回 Fail(message)；未预期错误记录日志，不向调用方暴露细节
func (h *TerminologyHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnrecognizedSystem),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, service.ErrInvalidArgument):
		writeJSON(w, http.StatusOK, Fail(err.Error()))
	case errors.Is(err, icd.ErrNotConfigured):
		writeJSON(w, http.StatusOK, Fail("icd mapping is not configured"))
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("internal error"))
	}
}
