package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"league-console/internal/model"
)

const (
	CookieAccessToken = "accessToken"
	CookieUserRole    = "userRole"
	CookieSessionID   = "console_sid"
)

// CookieMirror is the lightweight copy of the session that route
// interception reads before the durable record is loaded.
type CookieMirror interface {
	Mirror(accessToken string, role model.Role)
	Clear()
}

type CookieOptions struct {
	Secure bool
	TTL    time.Duration
}

func (o CookieOptions) ttl() time.Duration {
	if o.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return o.TTL
}

type HTTPCookies struct {
	w    http.ResponseWriter
	opts CookieOptions
}

func NewHTTPCookies(w http.ResponseWriter, opts CookieOptions) *HTTPCookies {
	return &HTTPCookies{w: w, opts: opts}
}

func (c *HTTPCookies) Mirror(accessToken string, role model.Role) {
	ttl := c.opts.ttl()
	http.SetCookie(c.w, c.cookie(CookieAccessToken, accessToken, ttl, true))
	if role == "" {
		http.SetCookie(c.w, c.cookie(CookieUserRole, "", -1, false))
		return
	}
	http.SetCookie(c.w, c.cookie(CookieUserRole, string(role), ttl, false))
}

func (c *HTTPCookies) Clear() {
	http.SetCookie(c.w, c.cookie(CookieAccessToken, "", -1, true))
	http.SetCookie(c.w, c.cookie(CookieUserRole, "", -1, false))
}

func (c *HTTPCookies) cookie(name string, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		return cookie
	}

	cookie.MaxAge = int(ttl.Seconds())
	cookie.Expires = time.Now().Add(ttl)
	return cookie
}

func SetSessionCookie(w http.ResponseWriter, sid string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSessionID,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(opts.ttl().Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenSubject reads the subject of an access token without verifying its
// signature; the backend is the only party that verifies tokens. It reports
// false for values that are not JWTs.
func TokenSubject(accessToken string) (string, bool) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return "", false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return "", false
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", false
	}

	return sub, true
}
