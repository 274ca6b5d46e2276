package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/platterly/platterly-backend/api/middleware"
	"github.com/platterly/platterly-backend/api/responses"
	"github.com/platterly/platterly-backend/api/validators"
	"github.com/platterly/platterly-backend/internal/reconcile"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
	"github.com/platterly/platterly-backend/pkg/types"
)

type addonRequest struct {
	Items       []types.OrderItem `json:"items" validate:"required,min=1,dive"`
	Tax         int64             `json:"tax" validate:"min=0"`
	Ref         string            `json:"ref" validate:"omitempty,max=200"`
	RedirectURL string            `json:"redirect_url" validate:"omitempty,url"`
}

// RequestAddon mints a checkout for extra items on an open order. The items
// merge into the order when the gateway webhook confirms payment.
func RequestAddon(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req addonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.RequestAddon(r.Context(), reconcile.AddonInput{
			OrderID:     orderID,
			ActorID:     middleware.ActorIDFromContext(r.Context()),
			Ref:         req.Ref,
			Items:       req.Items,
			Tax:         req.Tax,
			RedirectURL: req.RedirectURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}
