package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5/request"
	"github.com/templui/formdesk/internal/ctxkeys"
	"github.com/templui/formdesk/internal/model"
	"github.com/templui/formdesk/internal/response"
)

// TokenVerifier checks a bearer token and returns its admin claims.
type TokenVerifier interface {
	Verify(token string) (*model.AdminClaims, error)
}

// RequireAdmin rejects requests without a valid admin bearer token and adds
// the verified claims to the context.
func RequireAdmin(verifier TokenVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				if !errors.Is(err, request.ErrNoTokenInRequest) {
					slog.Debug("bearer token extraction failed", "error", err)
				}
				response.Error(w, http.StatusUnauthorized, "Unauthorized - No token provided")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next(w, r.WithContext(ctxkeys.WithAdmin(r.Context(), claims)))
		}
	}
}
