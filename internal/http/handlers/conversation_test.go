package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, app *testApp, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.http.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestConversationStart(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(t, app, "/api/v1/conversation/start", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResult(t, rec)
	assert.NotEmpty(t, out["session_id"])
	assert.Contains(t, out["response"], "nome completo")
	assert.Equal(t, float64(1), out["current_step"])
}

func TestConversationRespondFullFlow(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(t, app, "/api/v1/conversation/start", map[string]string{"session_id": "web-flow"})
	require.Equal(t, http.StatusOK, rec.Code)

	answers := []string{
		"João Silva",
		"preciso de ajuda com um caso penal",
		"Fui notificado de um processo e a audiência é em duas semanas",
		"sim",
	}
	var out map[string]any
	for _, answer := range answers {
		rec = postJSON(t, app, "/api/v1/conversation/respond", map[string]string{
			"session_id": "web-flow",
			"message":    answer,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		out = decodeResult(t, rec)
	}

	assert.Equal(t, true, out["flow_completed"])
	assert.Contains(t, out["response"], "WhatsApp")

	// Phone arrives through the dedicated endpoint and finalizes the lead.
	rec = postJSON(t, app, "/api/v1/conversation/submit-phone", map[string]string{
		"session_id": "web-flow",
		"phone_number": "(11) 91836-8812",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeResult(t, rec)
	require.NotEmpty(t, out["lead_id"])

	lead, err := app.repo.GetByID(httptest.NewRequest("GET", "/", nil).Context(), out["lead_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "5511918368812", lead.Phone)
	assert.Equal(t, "Direito Penal", lead.Area)

	// Both lawyers received a claim link.
	assert.Len(t, app.sender.messagesTo("555195690381"), 1)
	assert.Len(t, app.sender.messagesTo("5511959840099"), 1)
}

func TestConversationRespondValidation(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(t, app, "/api/v1/conversation/respond", map[string]string{"message": "oi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, app, "/api/v1/conversation/respond", map[string]string{"session_id": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversation/respond", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	app.http.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationStatusAndReset(t *testing.T) {
	app := newTestApp(t)

	postJSON(t, app, "/api/v1/conversation/start", map[string]string{"session_id": "web-status"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversation/status/web-status", nil)
	rec := httptest.NewRecorder()
	app.http.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, "web-status", out["session_id"])
	assert.Equal(t, float64(1), out["current_step"])

	rec = postJSON(t, app, "/api/v1/conversation/reset/web-status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversation/status/web-status", nil)
	rec = httptest.NewRecorder()
	app.http.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.http.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, "ok", out["status"])
}

func TestMetricsRouteOptional(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	app.http.ServeHTTP(rec, req)
	// Not wired in the test app.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
