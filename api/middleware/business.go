package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/platterly/platterly-backend/api/responses"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
)

// BusinessContext resolves the {businessID} route param and seeds it for
// staff and dispatch handlers.
func BusinessContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, "businessID")
			businessID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "business context missing"))
				return
			}
			ctx := WithBusinessID(r.Context(), businessID)
			if logg != nil {
				ctx = logg.WithBusinessID(ctx, businessID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
