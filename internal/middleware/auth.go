package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/tenant"
	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

// SessionCookie is the cookie the front end keeps the session token in.
const SessionCookie = "jp_session"

// SessionClaims is the payload of a session token. The username selects the
// tenant database.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

var errNoToken = errors.New("no session token")

// Tenant resolves the tenant of every request from its signed session token
// and stores it in the request context. Requests without a valid token are
// answered with 401.
func Tenant(secret, prefix string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := sessionToken(r)
			if err != nil {
				response.Unauthorized(w, "Sessão não encontrada")
				return
			}

			claims := &SessionClaims{}
			token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil || !token.Valid {
				log.WithError(err).WithField("path", r.URL.Path).Debug("Rejected session token")
				response.Unauthorized(w, "Sessão inválida ou expirada")
				return
			}

			t, err := tenant.New(prefix, claims.Username)
			if err != nil {
				response.Unauthorized(w, "Sessão sem usuário válido")
				return
			}

			noteTenant(r.Context(), t)
			next.ServeHTTP(w, r.WithContext(tenant.NewContext(r.Context(), t)))
		})
	}
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
		return "", errNoToken
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", errNoToken
	}
	return cookie.Value, nil
}
