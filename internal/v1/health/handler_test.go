package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct{ rooms int }

func (f fakeRegistry) RoomCount() int { return f.rooms }

func TestLiveness_AlwaysOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	handler.Liveness(c)

	require.Equal(t, http.StatusOK, w.Code)

	var body LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
}

func TestReadiness_NilRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	handler.Readiness(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 0, body.Rooms)
}

func TestReadiness_ReportsRoomCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(fakeRegistry{rooms: 3})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	handler.Readiness(c)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 3, body.Rooms)
	require.Equal(t, "ready", body.Status)
}
