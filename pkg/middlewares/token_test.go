package middlewares

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	errprocess "realtime_chat_service/pkg/err"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, credential string) (string, error) {
	switch credential {
	case "good":
		return "member-1", nil
	case "old":
		return "", errprocess.ErrTokenExpired
	default:
		return "", errprocess.ErrUnauthenticated
	}
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(stubAuth{}), func(c *fiber.Ctx) error {
		return c.SendString(MemberID(c))
	})
	return app
}

func TestJWTMiddlewareSources(t *testing.T) {
	app := newApp()

	cases := []struct {
		name  string
		build func() *http.Request
	}{
		{"bearer", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.Header.Set("Authorization", "Bearer good")
			return r
		}},
		{"query token", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/me?token=good", nil) }},
		{"query auth", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/me?auth=good", nil) }},
		{"cookie", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.AddCookie(&http.Cookie{Name: CookieToken, Value: "good"})
			return r
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(tc.build())
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "member-1", string(body))
		})
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	app := newApp()

	cases := []struct {
		name string
		url  string
		code errprocess.Code
	}{
		{"missing", "/me", errprocess.CodeUnauthenticated},
		{"expired", "/me?token=old", errprocess.CodeTokenExpired},
		{"invalid", "/me?token=bad", errprocess.CodeUnauthenticated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.url, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, string(tc.code), body["error"])
		})
	}
}

func TestErrorHandlerMapsFiberErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/big", func(c *fiber.Ctx) error { return fiber.ErrRequestEntityTooLarge })
	app.Get("/gone", func(c *fiber.Ctx) error { return errprocess.New(errprocess.ErrNotFound, "conversation not found") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/big", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, string(errprocess.CodePayloadTooLarge), body["error"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body = map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "conversation not found", body["detail"])

	// 沒有 route 時 fiber 回的 404
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
