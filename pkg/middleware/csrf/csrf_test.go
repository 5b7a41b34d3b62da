package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/cart", ok)
	e.POST("/cart", ok)
	e.POST("/health/live", ok)
	return e
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	e := newServer(Config{SkipPaths: []string{"/health/live"}})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	tests := []struct {
		name     string
		path     string
		header   string
		bearer   bool
		origin   string
		wantCode int
	}{
		{name: "matching token", path: "/cart", header: token, origin: "http://example.com", wantCode: http.StatusOK},
		{name: "missing token", path: "/cart", origin: "http://example.com", wantCode: http.StatusForbidden},
		{name: "wrong token", path: "/cart", header: "nope", origin: "http://example.com", wantCode: http.StatusForbidden},
		{name: "foreign origin", path: "/cart", header: token, origin: "http://evil.test", wantCode: http.StatusForbidden},
		{name: "no origin or referer", path: "/cart", header: token, wantCode: http.StatusForbidden},
		{name: "bearer clients pass", path: "/cart", bearer: true, wantCode: http.StatusOK},
		{name: "skipped path", path: "/health/live", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			req.Host = "example.com"
			req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.bearer {
				req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestMiddleware_SameOriginByDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		wantCode int
	}{
		{name: "secure cookies only", cfg: Config{Secure: true, SkipPaths: []string{"/metrics"}}, wantCode: http.StatusForbidden},
		{name: "check disabled", cfg: Config{DisableSameOrigin: true}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newServer(tt.cfg)

			req := httptest.NewRequest(http.MethodPost, "/cart", nil)
			req.Host = "shop.example"
			req.Header.Set("Origin", "http://evil.test")
			req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "t0k"})
			req.Header.Set("X-CSRF-Token", "t0k")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestMiddleware_IssuesCookie(t *testing.T) {
	t.Parallel()
	e := newServer(Config{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "csrf_token", cookies[0].Name)
	assert.False(t, cookies[0].Secure)
	assert.Equal(t, rec.Header().Get("X-CSRF-Token"), cookies[0].Value)
}
