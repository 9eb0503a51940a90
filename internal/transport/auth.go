package transport

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lancerkit/esign/internal/config"
	"github.com/lancerkit/esign/model"
)

// AdminAuth returns middleware that authenticates administrator requests
// with an HS256 bearer JWT. The token must carry the configured issuer and
// audience and a roles claim containing the admin role. Validated claims
// land in the request context for audit attribution.
func AdminAuth(cfg config.IdentityConfig, secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				WriteError(w, model.NewUnauthorizedError("Missing bearer token"))
				return
			}

			claims := jwt.MapClaims{}
			_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil {
				WriteError(w, model.NewUnauthorizedError("Invalid bearer token"))
				return
			}
			if !hasRole(claims, cfg.AdminRole) {
				WriteError(w, model.NewForbiddenError("Administrator role required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func hasRole(claims jwt.MapClaims, role string) bool {
	if role == "" {
		return true
	}
	raw, ok := claims["roles"].([]any)
	if !ok {
		return false
	}
	for _, v := range raw {
		if s, ok := v.(string); ok && s == role {
			return true
		}
	}
	return false
}
