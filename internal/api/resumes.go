package api

import (
	"bytes"
	"net/http"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/resume"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/request"
	"github.com/resumate-app/resumate/internal/web/response"
	"github.com/resumate-app/resumate/internal/web/router"
)

const resumeMaxPhotoSize = resume.MaxPhotoSize

func (a *API) listResumes(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Resumes.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if list == nil {
		list = []domain.ResumeSummary{}
	}
	response.OK(w, list)
}

func (a *API) showResume(w http.ResponseWriter, r *http.Request) {
	id, err := router.PathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	values, err := a.svc.Resumes.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, values)
}

func (a *API) createResume(w http.ResponseWriter, r *http.Request) {
	var values domain.ResumeValues
	if err := request.DecodeJSON(w, r, &values); err != nil {
		a.fail(w, r, err)
		return
	}
	// Creation never updates; an id in the body is ignored.
	values.ID = ""
	saved, err := a.svc.Resumes.Save(r.Context(), middleware.GetUserID(r.Context()), values)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.Created(w, saved)
}

func (a *API) updateResume(w http.ResponseWriter, r *http.Request) {
	id, err := router.PathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var values domain.ResumeValues
	if err := request.DecodeJSON(w, r, &values); err != nil {
		a.fail(w, r, err)
		return
	}
	values.ID = id
	saved, err := a.svc.Resumes.Save(r.Context(), middleware.GetUserID(r.Context()), values)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, saved)
}

func (a *API) deleteResume(w http.ResponseWriter, r *http.Request) {
	id, err := router.PathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Resumes.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		a.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

type photoResponse struct {
	PhotoURL string `json:"photoUrl"`
}

func (a *API) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := router.PathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	file, err := a.photos.GetFile(w, r, "photo")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	url, err := a.svc.Resumes.UploadPhoto(r.Context(), middleware.GetUserID(r.Context()), id,
		bytes.NewReader(file.Data), file.Size, file.ContentType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, photoResponse{PhotoURL: url})
}
