// File: internal/handlers/auth_handlers.go
package handlers

import (
	"net/http"
	"time"

	"github.com/iyunix/go-chatsync/internal/middleware"
)

// Logout clears the session cookie. Sign-in itself happens at the identity provider.
func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
