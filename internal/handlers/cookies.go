package handlers

import (
	"net/http"
	"time"
)

const (
	cookieAccessToken  = "accessToken"
	cookieRefreshToken = "refreshToken"
)

// CookieOptions controls the session cookies.
type CookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (o CookieOptions) set(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, o.cookie(cookieAccessToken, accessToken, o.AccessTTL))
	http.SetCookie(w, o.cookie(cookieRefreshToken, refreshToken, o.RefreshTTL))
}

func (o CookieOptions) clear(w http.ResponseWriter) {
	for _, name := range []string{cookieAccessToken, cookieRefreshToken} {
		c := o.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (o CookieOptions) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}
