package limitsapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

type accessResponse struct {
	FeatureKey limits.FeatureKey `json:"feature_key"`
	Access     bool              `json:"access"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type usageResponse struct {
	FeatureKey limits.FeatureKey `json:"feature_key"`
	Count      int64             `json:"count"`
}

type summaryResponse struct {
	UserID   uuid.UUID             `json:"user_id"`
	Features []limits.UsageSummary `json:"features"`
}

// userFeature parses the {userID} and {feature} path parameters.
func userFeature(r *http.Request) (uuid.UUID, limits.FeatureKey, error) {
	userID, err := userIDParam(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	feature, err := featureParam(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	return userID, feature, nil
}

// bodyAmount reads {"amount": N}. An empty body or a zero amount means 1.
func (a *api) bodyAmount(w http.ResponseWriter, r *http.Request) (int64, error) {
	var req amountRequest
	if err := a.decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if req.Amount == 0 {
		return 1, nil
	}
	return req.Amount, nil
}

func (a *api) check(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	amount, err := amountParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.svc.CanUseFeature(r.Context(), userID, feature, amount)
	a.metrics.observe("check", feature, res, err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) access(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{
		FeatureKey: feature,
		Access:     a.svc.HasFeatureAccess(r.Context(), userID, feature),
	})
}

func (a *api) recordUsage(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	amount, err := a.bodyAmount(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	count, err := a.svc.RecordUsage(r.Context(), userID, feature, amount)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{FeatureKey: feature, Count: count})
}

func (a *api) consume(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	amount, err := a.bodyAmount(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.svc.Consume(r.Context(), userID, feature, amount)
	a.metrics.observe("consume", feature, res, err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) release(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	amount, err := a.bodyAmount(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.svc.Release(r.Context(), userID, feature, amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) usageSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	summary, err := a.svc.GetUsageSummary(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if summary == nil {
		summary = []limits.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, summaryResponse{UserID: userID, Features: summary})
}
