package middleware

import (
	"context"
	"net/http"
	"strings"

	"gauntlet/internal/common"
	"gauntlet/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const ParticipantIDCtxKey contextKey = "participantID"

func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		participantID, err := security.GetParticipantIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ParticipantIDCtxKey, participantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetParticipantIDFromContext(ctx context.Context) (string, bool) {
	participantID, ok := ctx.Value(ParticipantIDCtxKey).(string)
	return participantID, ok
}
