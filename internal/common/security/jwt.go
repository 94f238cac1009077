package security

import (
	"errors"
	"time"

	"gauntlet/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

// GenerateParticipantToken mints a token for an already-registered
// participant. Registration and login live outside this service; this is
// kept for tooling and tests.
func GenerateParticipantToken(participantID string) (string, error) {
	claims := jwt.MapClaims{
		"participant_id": participantID,
		"exp":            time.Now().Add(config.AppConfig.JWTExp).Unix(),
		"iat":            time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

func GetParticipantIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["participant_id"].(string)
	if !ok {
		return "", errors.New("participant_id claim is missing or not a string")
	}
	return id, nil
}
