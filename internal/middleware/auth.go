package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/iyunix/go-chatsync/internal/auth"
)

// NewIdentityMiddleware resolves the caller's identity from the auth_token cookie or a Bearer header.
// Requests without a valid token continue anonymously; the chat service answers them with 401.
func NewIdentityMiddleware(secretKey []byte, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.ValidateToken(token, secretKey)
			if err != nil {
				logger.Warn("invalid session token", "path", r.URL.Path, "error", err)
				if fromCookie {
					clearAuthCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token), false
		}
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil {
		return cookie.Value, true
	}
	return "", false
}

func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
