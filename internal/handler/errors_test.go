package handler

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-backend/internal/apperror"
)

func statusOf(t *testing.T, err error) (int, string) {
	t.Helper()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, err)
	})

	resp, reqErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, reqErr)
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	return resp.StatusCode, string(body)
}

func TestRespondError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperror.NotFound("whiteboard", 1), fiber.StatusNotFound},
		{"validation", apperror.ValidationFailed("title", "title is required"), fiber.StatusBadRequest},
		{"empty", apperror.Empty("cannot export an empty whiteboard"), fiber.StatusBadRequest},
		{"forbidden", apperror.Forbidden("not a collaborator"), fiber.StatusForbidden},
		{"read only", apperror.ReadOnly("whiteboard", 1), fiber.StatusForbidden},
		{"conflict", apperror.Conflict("whiteboard", 1), fiber.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := statusOf(t, tc.err)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestRespondError_InternalErrorsStayOpaque(t *testing.T) {
	status, body := statusOf(t, errors.New("pq: connection refused"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.NotContains(t, body, "connection refused")
}

func TestRespondError_ValidationIncludesField(t *testing.T) {
	status, body := statusOf(t, apperror.ValidationFailed("direction", "unknown reorder direction"))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, `"field":"direction"`)
	assert.Contains(t, body, "unknown reorder direction")
}
