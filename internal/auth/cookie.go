package auth

import (
	"net/http"
	"time"

	sessiondomain "capturehub/backend/internal/session/domain"
)

// SetSessionCookie writes the session cookie for sess. The cookie expires with the session; the
// server remains the authority on expiry since activity slides it.
func SetSessionCookie(w http.ResponseWriter, name string, secure bool, sess *sessiondomain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie from the browser.
func ClearSessionCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
