package httpapi

import (
	"net/http"
	"time"

	"github.com/dkolesov/todovault/internal/server/services"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookieConfig controls the token cookies set on login and refresh.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func tokenCookie(name, value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func setTokenCookies(w http.ResponseWriter, pair *services.TokenPair, cc CookieConfig) {
	http.SetCookie(w, tokenCookie(accessTokenCookie, pair.AccessToken, int(cc.AccessTTL.Seconds()), cc.Secure))
	http.SetCookie(w, tokenCookie(refreshTokenCookie, pair.RefreshToken, int(cc.RefreshTTL.Seconds()), cc.Secure))
}

// MaxAge -1 tells the browser to drop the cookie immediately.
func clearTokenCookies(w http.ResponseWriter, cc CookieConfig) {
	http.SetCookie(w, tokenCookie(accessTokenCookie, "", -1, cc.Secure))
	http.SetCookie(w, tokenCookie(refreshTokenCookie, "", -1, cc.Secure))
}
