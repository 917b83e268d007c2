package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/edtriage/internal/patient"
	"github.com/linnemanlabs/edtriage/internal/triage"
)

// triageRequest is one front-door encounter. The optional policy section lets
// the charge nurse adjust cutoffs and red-flag thresholds for this decision
// without touching the deployment defaults.
type triageRequest struct {
	SessionID string           `json:"session_id,omitempty"`
	Patient   patient.Record   `json:"patient"`
	Policy    *policyOverrides `json:"policy,omitempty"`
}

// policyOverrides carries per-request policy adjustments. The bucket mapping
// is deployment configuration and cannot be overridden per request.
type policyOverrides struct {
	Cutoffs     *triage.CutoffConfig      `json:"cutoffs,omitempty"`
	RedFlags    *triage.RedFlagThresholds `json:"red_flags,omitempty"`
	RedFlagMode *bool                     `json:"red_flag_mode,omitempty"`
}

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	pol := a.svc.DefaultPolicy()
	if req.Policy != nil {
		if req.Policy.Cutoffs != nil {
			pol.Cutoffs = *req.Policy.Cutoffs
		}
		if req.Policy.RedFlags != nil {
			pol.RedFlags = *req.Policy.RedFlags
		}
		if req.Policy.RedFlagMode != nil {
			pol.RedFlagMode = *req.Policy.RedFlagMode
		}
		if err := pol.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid policy overrides: "+err.Error())
			return
		}
	}

	d, err := a.svc.Decide(r.Context(), &req.Patient, req.SessionID, pol)
	if err != nil {
		a.writeDecideError(w, r, err)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("edtriage.decision.id", d.ID),
		attribute.Int("edtriage.decision.level", d.Level),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(d)
}

func (a *API) writeDecideError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *patient.ValidationError
	switch {
	case errors.As(err, &verr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":  "invalid patient record",
			"issues": verr.Issues,
		})
	case errors.Is(err, triage.ErrOracleUnavailable), errors.Is(err, triage.ErrNotReady):
		a.logger.Warn(r.Context(), "decision unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "triage model unavailable, use manual triage")
	default:
		a.logger.Error(r.Context(), err, "triage decision failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
