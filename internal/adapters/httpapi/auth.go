package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const actorKey contextKey = "actor_id"

var errNoSecret = errors.New("jwt secret is not configured")

// IssueToken signs an HS256 bearer token whose subject is the actor's user id.
func IssueToken(secret string, actorID uint64, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errNoSecret
	}
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(actorID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

func (h *Handler) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID, err := h.authenticate(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actorID)))
	})
}

func (h *Handler) authenticate(r *http.Request) (uint64, error) {
	raw := bearerToken(r)
	if raw == "" {
		return 0, errors.New("missing bearer token")
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		if len(h.secret) == 0 {
			return nil, errNoSecret
		}
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	actorID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || actorID == 0 {
		return 0, errors.New("invalid subject")
	}
	return actorID, nil
}

// bearerToken reads the Authorization header, falling back to the access_token
// query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func actorFromContext(ctx context.Context) uint64 {
	id, _ := ctx.Value(actorKey).(uint64)
	return id
}
