package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/platterly/platterly-backend/api/middleware"
	"github.com/platterly/platterly-backend/api/responses"
	"github.com/platterly/platterly-backend/api/validators"
	"github.com/platterly/platterly-backend/internal/splitpay"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
	"github.com/platterly/platterly-backend/pkg/types"
)

type splitSessionRequest struct {
	BusinessID   string            `json:"business_id" validate:"required,uuid"`
	Items        []types.OrderItem `json:"items" validate:"required,min=1,dive"`
	Tax          int64             `json:"tax" validate:"min=0"`
	Participants int               `json:"participants" validate:"required,min=2,max=20"`
	RedirectURL  string            `json:"redirect_url" validate:"omitempty,url"`
}

// CreateSplitSession divides a bill into shares, each with its own checkout.
func CreateSplitSession(svc splitpay.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "split service unavailable"))
			return
		}
		var req splitSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		businessID, err := validators.PathUUID(req.BusinessID, "business_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateSession(r.Context(), splitpay.CreateSessionInput{
			BusinessID:       businessID,
			InitiatorActorID: middleware.ActorIDFromContext(r.Context()),
			InitiatorKind:    middleware.ActorKindFromContext(r.Context()),
			Items:            req.Items,
			Tax:              req.Tax,
			Participants:     req.Participants,
			RedirectURL:      req.RedirectURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// GetSplitSession returns the live session so every participant can watch
// the shares settle.
func GetSplitSession(svc splitpay.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "split service unavailable"))
			return
		}
		sessionID, err := validators.PathUUID(chi.URLParam(r, "sessionID"), "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
