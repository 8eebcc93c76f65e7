package api

import (
	"net/http"

	"github.com/resumate-app/resumate/internal/coverletter"
	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/request"
	"github.com/resumate-app/resumate/internal/web/response"
	"github.com/resumate-app/resumate/internal/web/router"
)

func (a *API) listCoverLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := a.svc.CoverLetters.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if letters == nil {
		letters = []domain.CoverLetter{}
	}
	response.OK(w, letters)
}

func (a *API) createCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req coverletter.Request
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	letter, err := a.svc.CoverLetters.Generate(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.Created(w, letter)
}

func (a *API) showCoverLetter(w http.ResponseWriter, r *http.Request) {
	id, err := router.PathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	letter, err := a.svc.CoverLetters.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, letter)
}

func (a *API) updateCoverLetter(w http.ResponseWriter, r *http.Request) {
	id, err := router.PathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	letter, err := a.svc.CoverLetters.UpdateContent(r.Context(), middleware.GetUserID(r.Context()), id, req.Content)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, letter)
}

func (a *API) deleteCoverLetter(w http.ResponseWriter, r *http.Request) {
	id, err := router.PathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.CoverLetters.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		a.fail(w, r, err)
		return
	}
	response.NoContent(w)
}
