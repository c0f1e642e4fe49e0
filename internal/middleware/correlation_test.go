package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDEchoesIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = GetCorrelationID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "corr-123", seen)
	require.Equal(t, "corr-123", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDGeneratedWhenAbsent(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestContextWithCorrelationRoundTrip(t *testing.T) {
	ctx := ContextWithCorrelation(context.Background(), "corr-456")
	require.Equal(t, "corr-456", CorrelationIDFromContext(ctx))

	unchanged := ContextWithCorrelation(context.Background(), "  ")
	require.Empty(t, CorrelationIDFromContext(unchanged))

	require.Equal(t, "corr-789", CorrelationIDFromContext(ContextWithCorrelation(nil, "corr-789")))
}
