package api

import (
	"net/http"

	"github.com/micro-nova/clockgen-go/internal/models"
)

func (h *Handlers) getPLL(w http.ResponseWriter, r *http.Request) {
	pll, err := pllParam(r, "pll")
	if err != nil {
		writeError(w, err)
		return
	}
	p, appErr := h.ctrl.GetPLL(pll)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) setPLL(w http.ResponseWriter, r *http.Request) {
	pll, err := pllParam(r, "pll")
	if err != nil {
		writeError(w, err)
		return
	}
	var req models.PLLRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, appErr := h.ctrl.SetPLL(r.Context(), pll, req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) setMultisynth(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	var req models.MultisynthRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, appErr := h.ctrl.SetMultisynth(r.Context(), ch, req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) getOutput(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	o, appErr := h.ctrl.GetOutput(ch)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) setOutput(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd models.OutputUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	status, appErr := h.ctrl.SetOutput(r.Context(), ch, upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
