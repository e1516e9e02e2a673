package limitsapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/logger"
	"github.com/dmitrymomot/featurelimits/pkg/validator"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string                     `json:"error"`
	Fields []validator.ValidationError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are logged
// and reported without details.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "limits api request failed",
			logger.Error(err),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
	}

	body := errorResponse{Error: codeOf(err)}
	if ve := validator.ExtractValidationErrors(err); len(ve) > 0 {
		body.Fields = ve
	}
	writeJSON(w, status, body)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errMalformedBody), errors.Is(err, errInvalidUserID):
		return http.StatusBadRequest
	case errors.Is(err, limits.ErrInvalidLimitInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, limits.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, limits.ErrFeatureNotConfigured):
		return http.StatusNotFound
	case errors.Is(err, limits.ErrLimitExceeded):
		return http.StatusConflict
	case limits.IsCallerError(err):
		return http.StatusBadRequest
	case errors.Is(err, limits.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// codeOf returns the first known sentinel key in err.
func codeOf(err error) string {
	for _, sentinel := range []error{
		errMalformedBody,
		errInvalidUserID,
		limits.ErrInvalidLimitInput,
		limits.ErrInvalidFeatureKey,
		limits.ErrInvalidPlanType,
		limits.ErrInvalidAmount,
		limits.ErrUserNotFound,
		limits.ErrFeatureNotConfigured,
		limits.ErrLimitExceeded,
		limits.ErrStorage,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "limitsapi.errors.internal"
}

// decode reads a JSON body into v, rejecting unknown fields.
func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errMalformedBody, err)
	}
	return nil
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "userID")
	if err := validator.Apply(validator.ValidUUID("user_id", raw)); err != nil {
		return uuid.Nil, errors.Join(errInvalidUserID, err)
	}
	return uuid.MustParse(raw), nil
}

func featureParam(r *http.Request) (limits.FeatureKey, error) {
	return limits.ParseFeatureKey(chi.URLParam(r, "feature"))
}

func planParam(r *http.Request) (limits.PlanType, error) {
	return limits.ParsePlanType(chi.URLParam(r, "plan"))
}

// amountParam reads ?amount=, defaulting to 1.
func amountParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Join(limits.ErrInvalidAmount, err)
	}
	return n, nil
}

var (
	errMalformedBody = errors.New("limitsapi.errors.malformed_body")
	errInvalidUserID = errors.New("limitsapi.errors.invalid_user_id")
)
