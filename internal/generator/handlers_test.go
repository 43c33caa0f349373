package generator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fraudwatch/internal/transaction"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(New(WithSeed(99), WithClock(fixedClock(12)))).RegisterRoutes(r.Group("/v1"))
	return r
}

func doGET(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler_GenerateTransactions(t *testing.T) {
	r := setupRouter(t)

	w := doGET(r, "/v1/transactions/generate?count=5")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Transactions []transaction.Transaction `json:"transactions"`
		Count        int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Count)
	assert.Len(t, body.Transactions, 5)
}

func TestHandler_GenerateTransactions_DefaultCount(t *testing.T) {
	r := setupRouter(t)
	w := doGET(r, "/v1/transactions/generate")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":10`)
}

func TestHandler_GenerateTransactions_WithProfile(t *testing.T) {
	r := setupRouter(t)
	w := doGET(r, "/v1/transactions/generate?count=3&profile=business_user")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"profile":"business_user"`)
}

func TestHandler_GenerateTransactions_BadInput(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name string
		path string
		code string
	}{
		{"non-numeric", "/v1/transactions/generate?count=abc", "invalid_count"},
		{"negative", "/v1/transactions/generate?count=-1", "invalid_count"},
		{"too large", "/v1/transactions/generate?count=5000", "invalid_count"},
		{"unknown profile", "/v1/transactions/generate?profile=whale", "unknown_profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGET(r, tt.path)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestHandler_GenerateSession(t *testing.T) {
	r := setupRouter(t)

	w := doGET(r, "/v1/sessions/heavy_user?length=4")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SessionID    string                    `json:"session_id"`
		Transactions []transaction.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Transactions, 4)
	assert.Len(t, body.SessionID, 8)
	for _, tx := range body.Transactions {
		assert.Equal(t, body.SessionID, tx.SessionID)
		assert.NotNil(t, tx.Timestamp)
	}
}

func TestHandler_GenerateSession_UnknownProfile(t *testing.T) {
	r := setupRouter(t)
	w := doGET(r, "/v1/sessions/ghost_user")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown user profile")
}

func TestHandler_MerchantStats(t *testing.T) {
	r := setupRouter(t)
	w := doGET(r, "/v1/merchants/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats MerchantStatistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Len(t, stats.MerchantTypes, 9)
	assert.Equal(t, RiskHigh, stats.RiskLevels["unknown"])
}

func TestHandler_PeakHours(t *testing.T) {
	r := setupRouter(t)
	w := doGET(r, "/v1/simulate/peak-hours")
	require.Equal(t, http.StatusOK, w.Code)

	var sim PeakHourSimulation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sim))
	assert.Equal(t, 12, sim.Hour)
	assert.Equal(t, 250, sim.ExpectedVolume)
	assert.Len(t, sim.Transactions, 250)
}
