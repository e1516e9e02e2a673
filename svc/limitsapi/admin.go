package limitsapi

import (
	"net/http"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

type limitsResponse struct {
	Limits []limits.FeatureLimit `json:"limits"`
}

type overridesResponse struct {
	Overrides []limits.FeatureOverride `json:"overrides"`
}

type seedResponse struct {
	Inserted int `json:"inserted"`
}

func (a *api) listLimits(w http.ResponseWriter, r *http.Request) {
	all, err := a.svc.GetAllFeatureLimits(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if all == nil {
		all = []limits.FeatureLimit{}
	}
	writeJSON(w, http.StatusOK, limitsResponse{Limits: all})
}

func (a *api) seedLimits(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.SeedDefaultLimits(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seedResponse{Inserted: n})
}

// upsertLimit takes plan and feature from the path; the same fields in the
// body are ignored.
func (a *api) upsertLimit(w http.ResponseWriter, r *http.Request) {
	plan, err := planParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	feature, err := featureParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var in limits.UpsertLimitInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	in.PlanType, in.FeatureKey = plan, feature

	limit, err := a.svc.UpsertFeatureLimit(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limit)
}

func (a *api) deleteLimit(w http.ResponseWriter, r *http.Request) {
	plan, err := planParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	feature, err := featureParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.svc.DeleteFeatureLimit(r.Context(), plan, feature); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) listOverrides(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	overrides, err := a.svc.ListOverrides(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if overrides == nil {
		overrides = []limits.FeatureOverride{}
	}
	writeJSON(w, http.StatusOK, overridesResponse{Overrides: overrides})
}

func (a *api) setOverride(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var in limits.SetOverrideInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	in.UserID, in.FeatureKey = userID, feature

	override, err := a.svc.SetOverride(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, override)
}

func (a *api) removeOverride(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.svc.RemoveOverride(r.Context(), userID, feature); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) resetUsage(w http.ResponseWriter, r *http.Request) {
	userID, feature, err := userFeature(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.svc.ResetUsage(r.Context(), userID, feature); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
