package handlers

import (
	"net/http"

	"github.com/corpgraph/CorpRisk-Insight/internal/application/scenario"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

// AnalysisHandler exposes the six analysis scenarios plus the combined run.
type AnalysisHandler struct {
	svc *scenario.Service
	log logging.Logger
}

func NewAnalysisHandler(svc *scenario.Service, log logging.Logger) *AnalysisHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AnalysisHandler{svc: svc, log: log.Named("analysis")}
}

// analysisRequest is the request body for every scenario endpoint: an
// optional scope plus the per-request option overrides. Keys the scenario
// does not consume are ignored.
type analysisRequest struct {
	CompanyNumbers []string `json:"company_numbers,omitempty"`
	Periods        []string `json:"periods,omitempty"`
	scenario.Options
}

func (req *analysisRequest) scope() graphtypes.Scope {
	return graphtypes.Scope{
		CompanyNumbers: req.CompanyNumbers,
		Periods:        req.Periods,
	}
}

func (h *AnalysisHandler) FraudRank(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	res, err := h.svc.FraudRank(r.Context(), req.scope(), req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, res)
}

func (h *AnalysisHandler) CircularTrade(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	res, err := h.svc.CircularTrade(r.Context(), req.scope(), req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, res)
}

func (h *AnalysisHandler) Collusion(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	res, err := h.svc.Collusion(r.Context(), req.scope(), req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, res)
}

func (h *AnalysisHandler) ShellCompany(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	res, err := h.svc.ShellCompany(r.Context(), req.scope(), req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, res)
}

func (h *AnalysisHandler) ExternalRiskRank(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	res, err := h.svc.ExternalRiskRank(r.Context(), req.scope(), req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, res)
}

func (h *AnalysisHandler) PerformRisk(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	res, err := h.svc.PerformRisk(r.Context(), req.scope(), req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, res)
}

func (h *AnalysisHandler) RunAll(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	res, err := h.svc.RunAll(r.Context(), req.scope(), req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, res)
}
