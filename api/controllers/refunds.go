package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/platterly/platterly-backend/api/responses"
	"github.com/platterly/platterly-backend/api/validators"
	"github.com/platterly/platterly-backend/internal/reconcile"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
)

type refundRequest struct {
	RefundType string   `json:"refund_type" validate:"required,oneof=full partial"`
	Items      []string `json:"items" validate:"max=100"`
	Reason     string   `json:"reason" validate:"required,max=500"`
	Notes      *string  `json:"notes" validate:"omitempty,max=1000"`
}

// RequestRefund runs the owner-initiated refund flow against an order.
func RequestRefund(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.RequestRefund(r.Context(), reconcile.RefundInput{
			OrderID: orderID,
			Type:    reconcile.RefundType(req.RefundType),
			ItemIDs: req.Items,
			Reason:  req.Reason,
			Notes:   req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
