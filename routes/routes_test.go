package routes

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/komunitas/platform/handlers"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "routes-secret"

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func bearer(t *testing.T, role string) string {
	return "Bearer " + token(t, role)
}

func TestGuards(t *testing.T) {
	hub := websocket.NewHub(zerolog.Nop())
	defer hub.Close()

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	Setup(app, handlers.New(zerolog.Nop()), Options{JWTSecret: secret, Hub: hub})

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"orders need a token", "GET", "/api/v1/orders", "", fiber.StatusBadRequest},
		{"admin needs a token", "GET", "/api/v1/admin/orders", "", fiber.StatusBadRequest},
		{"admin rejects members", "GET", "/api/v1/admin/orders", bearer(t, models.RoleMember), fiber.StatusForbidden},
		{"admin rejects forged tokens", "GET", "/api/v1/admin/whitelist", "Bearer forged", fiber.StatusUnauthorized},
		{"websocket needs a query token", "GET", "/api/v1/ws", bearer(t, models.RoleMember), fiber.StatusBadRequest},
		{"websocket needs an upgrade", "GET", "/api/v1/ws?token=" + token(t, models.RoleMember), "", fiber.StatusUpgradeRequired},
		{"unknown route", "GET", "/api/v1/nope", "", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
