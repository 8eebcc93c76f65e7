package api

import (
	"net/http"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/web/auth"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/request"
	"github.com/resumate-app/resumate/internal/web/response"
)

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.svc.Accounts.Register(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.Created(w, registerResponse{
		Message: "Account created. Check your email to verify your address.",
		User:    user,
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	session, err := a.svc.Accounts.Login(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, session)
}

func (a *API) verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Accounts.Verify(r.Context(), req.Token); err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, messageResponse{Message: "Email verified"})
}

// requestReset answers 202 whether or not the address has an account
func (a *API) requestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Accounts.RequestReset(r.Context(), req.Email); err != nil {
		a.fail(w, r, err)
		return
	}
	response.Accepted(w, messageResponse{Message: "If an account exists for this email, a reset link has been sent"})
}

func (a *API) newPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.NewPasswordRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Accounts.ResetPassword(r.Context(), req); err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, messageResponse{Message: "Password updated"})
}

func (a *API) googleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := a.svc.Accounts.GoogleLoginURL(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (a *API) googleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		response.RenderBadRequest(w, "Google sign-in was cancelled: "+reason)
		return
	}
	session, err := a.svc.Accounts.GoogleCallback(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, session)
}

type meResponse struct {
	*domain.User
	IsSubscribed bool                 `json:"isSubscribed"`
	Credits      int                  `json:"credits"`
	Subscription *domain.Subscription `json:"subscription,omitempty"`
}

func (a *API) currentUser(r *http.Request) (*domain.User, error) {
	return a.svc.Users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status, err := a.svc.Billing.Status(r.Context(), user.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, meResponse{
		User:         user,
		IsSubscribed: status.IsSubscribed,
		Credits:      status.Credits,
		Subscription: status.Subscription,
	})
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	var req auth.SettingsRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.svc.Accounts.UpdateSettings(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, user)
}
