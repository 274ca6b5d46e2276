package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/api/responses"
	"github.com/platterly/platterly-backend/api/validators"
	"github.com/platterly/platterly-backend/internal/identity"
	pkgAuth "github.com/platterly/platterly-backend/pkg/auth"
	"github.com/platterly/platterly-backend/pkg/config"
	"github.com/platterly/platterly-backend/pkg/enums"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
)

type sessionRequest struct {
	Phone   string `json:"phone" validate:"required,min=10,max=20"`
	OrderID string `json:"order_id" validate:"omitempty,uuid"`
}

type sessionResponse struct {
	Token       string `json:"token"`
	ActorID     string `json:"actor_id"`
	ActorKind   string `json:"actor_kind"`
	Ref         string `json:"ref,omitempty"`
	TrackingURL string `json:"tracking_url,omitempty"`
}

// CreateSession resolves a phone number to its stable actor, mints a session
// token, and folds any leftover guest profile into the account when the
// resolved actor is a registered user.
func CreateSession(svc identity.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}
		var req sessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := svc.Resolve(r.Context(), req.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if resolved.ActorKind == enums.ActorKindUser {
			if err := svc.MigrateGuest(r.Context(), req.Phone, resolved.ActorID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		token, err := pkgAuth.MintSessionToken(cfg, time.Now(), pkgAuth.SessionTokenPayload{
			ActorID:   resolved.ActorID,
			ActorKind: resolved.ActorKind,
			Phone:     identity.CanonicalPhone(req.Phone),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token"))
			return
		}

		resp := sessionResponse{
			Token:     token,
			ActorID:   resolved.ActorID.String(),
			ActorKind: string(resolved.ActorKind),
		}
		if resolved.ActorKind == enums.ActorKindGuest {
			resp.Ref = identity.EncodeCapabilityRef(resolved.ActorID)
			// Client just placed an order: hand back the shareable link.
			if req.OrderID != "" {
				if orderID, err := uuid.Parse(req.OrderID); err == nil {
					resp.TrackingURL = svc.TrackingLink(orderID, token, resolved.ActorID)
				}
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}
