package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/billing"
	"github.com/resumate-app/resumate/internal/textextract"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/auth"
	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/response"
)

// classify maps service errors the response package does not know about
func classify(err error) *response.HTTPError {
	switch {
	case errors.Is(err, auth.ErrEmailNotVerified):
		return response.NewHTTPError(http.StatusForbidden, err.Error()).WithCode("email_not_verified").Wrap(err)
	case errors.Is(err, auth.ErrGoogleDisabled):
		return response.NewHTTPError(http.StatusNotFound, err.Error()).WithCode("google_disabled").Wrap(err)
	case errors.Is(err, billing.ErrUnknownPlan):
		return response.NewHTTPError(http.StatusBadRequest, err.Error()).WithCode("unknown_plan").Wrap(err)
	case errors.Is(err, billing.ErrVerificationFailed):
		return response.NewHTTPError(http.StatusBadRequest, err.Error()).WithCode("verification_failed").Wrap(err)
	case errors.Is(err, textextract.ErrUnsupportedType):
		return response.NewHTTPError(http.StatusUnsupportedMediaType, err.Error()).Wrap(err)
	case errors.Is(err, textextract.ErrTooLarge):
		return response.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error()).Wrap(err)
	case errors.Is(err, textextract.ErrEmpty):
		return response.NewHTTPError(http.StatusBadRequest, err.Error()).Wrap(err)
	}
	return response.FromError(err)
}

// fail renders err and logs the ones that are the server's fault
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if verrs, ok := validation.As(err); ok {
		response.RenderValidationError(w, verrs)
		return
	}

	httpErr := classify(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	httpErr.Render(w)
}
