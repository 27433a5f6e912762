package api

import (
	"net/http"

	"github.com/micro-nova/clockgen-go/internal/config"
)

func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status(r.Context()))
}

func (h *Handlers) getPlan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Plan())
}

// applyPlan replaces the running configuration. The plan is stored only
// if it applies cleanly.
func (h *Handlers) applyPlan(w http.ResponseWriter, r *http.Request) {
	var plan config.Plan
	if err := decodeBody(r, &plan); err != nil {
		writeError(w, err)
		return
	}
	status, appErr := h.ctrl.ApplyPlan(r.Context(), plan)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) resetPLL(w http.ResponseWriter, r *http.Request) {
	status, appErr := h.ctrl.ResetPLL(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
