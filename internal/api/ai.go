package api

import (
	"net/http"
	"strings"

	"github.com/resumate-app/resumate/internal/ai"
	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/request"
	"github.com/resumate-app/resumate/internal/web/response"
)

type jobRequest struct {
	Resume         domain.ResumeValues `json:"resume"`
	JobDescription string              `json:"jobDescription" validate:"notblank"`
}

type describeRequest struct {
	Description string `json:"description" validate:"min=20"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// charge admits one AI call for the current user. It renders the failure
// and reports false when the call must not go ahead.
func (a *API) charge(w http.ResponseWriter, r *http.Request) bool {
	if err := a.svc.Billing.Charge(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		a.fail(w, r, err)
		return false
	}
	return true
}

func (a *API) decodeJob(w http.ResponseWriter, r *http.Request) (*jobRequest, bool) {
	var req jobRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	if err := validation.Struct(req); err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return &req, true
}

func (a *API) decodeDescription(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req describeRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return "", false
	}
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(req); err != nil {
		a.fail(w, r, err)
		return "", false
	}
	return req.Description, true
}

func (a *API) analyzeResume(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeJob(w, r)
	if !ok || !a.charge(w, r) {
		return
	}
	response.OK(w, a.svc.Assistant.AnalyzeResume(r.Context(), req.Resume, req.JobDescription))
}

func (a *API) optimizeResume(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeJob(w, r)
	if !ok || !a.charge(w, r) {
		return
	}
	response.OK(w, a.svc.Assistant.OptimizeResume(r.Context(), req.Resume, req.JobDescription))
}

func (a *API) generateSummary(w http.ResponseWriter, r *http.Request) {
	var in ai.SummaryInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if !a.charge(w, r) {
		return
	}
	summary, err := a.svc.Assistant.GenerateSummary(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, summaryResponse{Summary: summary})
}

func (a *API) generateWorkExperience(w http.ResponseWriter, r *http.Request) {
	description, ok := a.decodeDescription(w, r)
	if !ok || !a.charge(w, r) {
		return
	}
	entry, err := a.svc.Assistant.GenerateWorkExperience(r.Context(), description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, entry)
}

func (a *API) generateProject(w http.ResponseWriter, r *http.Request) {
	description, ok := a.decodeDescription(w, r)
	if !ok || !a.charge(w, r) {
		return
	}
	entry, err := a.svc.Assistant.GenerateProject(r.Context(), description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, entry)
}
