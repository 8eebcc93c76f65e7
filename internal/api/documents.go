package api

import (
	"net/http"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/editor"
	"github.com/resumate-app/resumate/internal/textextract"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/response"
	"github.com/resumate-app/resumate/internal/web/router"
)

const documentMaxSize = textextract.MaxSize

type extractResponse struct {
	Text string `json:"text"`
}

func (a *API) extractDocument(w http.ResponseWriter, r *http.Request) {
	file, err := a.files.GetFile(w, r, "file")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	text, err := textextract.Extract(textextract.DetectType(file.ContentType, file.Filename, file.Data), file.Data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, extractResponse{Text: text})
}

// editorSocket upgrades to the autosaving editor protocol. Without a
// resumeId the session edits a new resume, created on the first save.
func (a *API) editorSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var initial domain.ResumeValues
	if raw := r.URL.Query().Get("resumeId"); raw != "" {
		id, err := router.ParseID(raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		values, err := a.svc.Resumes.Get(r.Context(), userID, id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		initial = *values
	}

	client, err := a.upgrader.Upgrade(w, r, userID)
	if err != nil {
		return
	}
	editor.Start(client, a.svc.Resumes, initial, a.config.AutosaveDelay, a.logger)
}
