package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/observability"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

func newMiddlewareApp(timeout time.Duration) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), timeout)
	return app
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	require.NotNil(t, out.Error)
	return out.Error
}

func TestRenderErrors_PanicIsInternalError(t *testing.T) {
	app := newMiddlewareApp(time.Second)
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("nil roster")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	body := decodeEnvelope(t, resp.Body)
	assert.Equal(t, apperrors.CodeInternalError, body["code"])
	assert.NotContains(t, body["message"], "nil roster")
}

func TestRenderErrors_DetailsOnlyWhenPresent(t *testing.T) {
	app := newMiddlewareApp(time.Second)
	app.Get("/busy", func(c *fiber.Ctx) error {
		return apperrors.NewConflictCode(apperrors.CodeStaffNotEligible, "staff not eligible", map[string]any{"reason": "busy"})
	})
	app.Get("/gone", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("booking", nil)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/busy", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body := decodeEnvelope(t, resp.Body)
	assert.Equal(t, apperrors.CodeStaffNotEligible, body["code"])
	assert.Equal(t, map[string]any{"reason": "busy"}, body["details"])

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/gone", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body = decodeEnvelope(t, resp.Body)
	_, hasDetails := body["details"]
	assert.False(t, hasDetails)
}

func TestRenderErrors_UnknownRoute(t *testing.T) {
	app := newMiddlewareApp(0)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/nowhere", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperrors.CodeNotFound, decodeEnvelope(t, resp.Body)["code"])
}

func TestRequestID_EchoesCallerValue(t *testing.T) {
	app := newMiddlewareApp(time.Second)
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString(requestID(c))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/ok", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get(fiber.HeaderXRequestID))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "req-42", string(raw))
}

func TestDeadline_ExpiredRequestIsTimeout(t *testing.T) {
	app := newMiddlewareApp(20 * time.Millisecond)
	app.Get("/slow", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		<-ctx.Done()
		return apperrors.MapError(ctx.Err())
	})
	app.Get("/slow-invalid", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return apperrors.NewValidationError("validation failed", nil)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/slow", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, apperrors.CodeRequestTimeout, decodeEnvelope(t, resp.Body)["code"])

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/slow-invalid", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, apperrors.CodeValidationFailed, decodeEnvelope(t, resp.Body)["code"])
}

func TestDeadline_ZeroTimeoutLeavesContextOpen(t *testing.T) {
	app := newMiddlewareApp(0)
	app.Get("/ctx", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"deadline": ok})
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ctx", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out["deadline"])
}
