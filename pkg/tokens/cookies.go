package tokens

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Cookies builds the auth cookies set after a refresh and cleared on
// rejection. Secure follows SECURE_COOKIES so plain-HTTP development works.
type Cookies struct {
	Path   string
	Secure bool
}

func (c Cookies) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

func (c Cookies) Create(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.path(),
		Expires:  exp,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c Cookies) Delete(name string) *http.Cookie {
	ck := c.Create(name, "", time.Unix(0, 0))
	ck.MaxAge = -1
	return ck
}
