// Package api implements the HTTP REST API of the clock daemon.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/micro-nova/clockgen-go/internal/config"
	"github.com/micro-nova/clockgen-go/internal/models"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
}

// Controller is the interface the handlers use to drive the clock generator.
// *controller.Controller implements it.
type Controller interface {
	Status(ctx context.Context) models.Status
	Plan() config.Plan
	ApplyPlan(ctx context.Context, plan config.Plan) (models.Status, *models.AppError)
	GetPLL(pll si5351.PLL) (models.PLL, *models.AppError)
	SetPLL(ctx context.Context, pll si5351.PLL, req models.PLLRequest) (models.Status, *models.AppError)
	ResetPLL(ctx context.Context) (models.Status, *models.AppError)
	SetMultisynth(ctx context.Context, ch si5351.Channel, req models.MultisynthRequest) (models.Status, *models.AppError)
	GetOutput(ch si5351.Channel) (models.Output, *models.AppError)
	SetOutput(ctx context.Context, ch si5351.Channel, upd models.OutputUpdate) (models.Status, *models.AppError)
}

// EventBus is the interface for subscribing to status snapshots.
type EventBus interface {
	Subscribe(id string) <-chan models.Status
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON AppError.
func writeError(w http.ResponseWriter, err error) {
	appErr := models.FromError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr)
}

// decodeBody decodes the JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// channelParam reads a clock output number from the path. Numbers past the
// last output are left for the controller to reject with a 404.
func channelParam(r *http.Request, name string) (si5351.Channel, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 8)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return si5351.Channel(n), nil
}

// pllParam reads a PLL name ("A", "B") from the path.
func pllParam(r *http.Request, name string) (si5351.PLL, error) {
	var p si5351.PLL
	if err := p.UnmarshalText([]byte(chi.URLParam(r, name))); err != nil {
		return 0, models.ErrNotFound("unknown PLL " + strconv.Quote(chi.URLParam(r, name)))
	}
	return p, nil
}
