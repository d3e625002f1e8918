package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/ambulanz_backend/pkg/reqctx"
)

func TestRequestIDReachesContext(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString(reqctx.RequestIDFromContext(c.Context()))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(HeaderRequestID))

	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "abc-123", string(body[:n]))

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(HeaderRequestID), 36)
}

func limitedApp(rdb *redis.Client, perMinute int) *fiber.App {
	app := fiber.New()
	app.Use(NewLimiter(rdb, perMinute))
	app.Get("/", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func hit(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestLimiterInMemory(t *testing.T) {
	app := limitedApp(nil, 2)
	assert.Equal(t, fiber.StatusOK, hit(t, app))
	assert.Equal(t, fiber.StatusOK, hit(t, app))
	assert.Equal(t, fiber.StatusTooManyRequests, hit(t, app))
}

func TestLimiterSharedThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	first := limitedApp(rdb, 2)
	second := limitedApp(rdb, 2)

	assert.Equal(t, fiber.StatusOK, hit(t, first))
	assert.Equal(t, fiber.StatusOK, hit(t, second))
	assert.Equal(t, fiber.StatusTooManyRequests, hit(t, first))
}
