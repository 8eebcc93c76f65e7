package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/billing"
	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/request"
	"github.com/resumate-app/resumate/internal/web/response"
)

// verifyResponse is the body checkout clients expect from payment verification
type verifyResponse struct {
	Message string `json:"message"`
	IsOK    bool   `json:"isOk"`
}

type creditResponse struct {
	Success          bool `json:"success"`
	RemainingCredits int  `json:"remainingCredits"`
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subscription domain.Plan `json:"subscription"`
	}
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.currentUser(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	checkout, err := a.svc.Billing.CreateOrder(r.Context(), user, req.Subscription)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.Created(w, checkout)
}

func (a *API) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req billing.VerifyRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		a.fail(w, r, err)
		return
	}

	_, err := a.svc.Billing.Verify(r.Context(), req)
	switch {
	case err == nil:
		response.OK(w, verifyResponse{Message: "Payment verified successfully", IsOK: true})
	case errors.Is(err, billing.ErrVerificationFailed):
		response.JSON(w, http.StatusBadRequest, verifyResponse{Message: err.Error()})
	default:
		a.logger.Error("payment activation failed",
			zap.String("user_id", middleware.GetUserID(r.Context())),
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		response.JSON(w, http.StatusInternalServerError, verifyResponse{Message: "Database update failed"})
	}
}

func (a *API) subscription(w http.ResponseWriter, r *http.Request) {
	status, err := a.svc.Billing.Status(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, status)
}

func (a *API) useCredit(w http.ResponseWriter, r *http.Request) {
	remaining, err := a.svc.Billing.UseCredit(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.OK(w, creditResponse{Success: true, RemainingCredits: remaining})
}
