package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlima/intake-backend/internal/leads"
)

func createLead(t *testing.T, app *testApp) *leads.Lead {
	t.Helper()
	lead, err := app.repo.Create(context.Background(), &leads.CreateLeadRequest{
		Name:        "João Silva",
		Phone:       "5511918368812",
		Area:        "Direito Penal",
		Description: "Fui detido injustamente e preciso de ajuda",
		Platform:    "web",
		SessionID:   "web-abc",
	})
	require.NoError(t, err)
	return lead
}

func getPath(app *testApp, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	app.http.ServeHTTP(rec, req)
	return rec
}

func TestClaimRedirectsToWhatsApp(t *testing.T) {
	app := newTestApp(t)
	lead := createLead(t, app)

	rec := getPath(app, "/api/v1/leads/"+lead.ID+"/assign/ricardo")
	require.Equal(t, http.StatusFound, rec.Code)

	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://wa.me/5511918368812?text="), loc)

	stored, err := app.repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "ricardo", stored.AssignedTo)
	assert.Equal(t, leads.StatusAssigned, stored.Status)
}

func TestClaimSecondClickSeesAlreadyTaken(t *testing.T) {
	app := newTestApp(t)
	lead := createLead(t, app)

	first := getPath(app, "/api/v1/leads/"+lead.ID+"/assign/ricardo")
	require.Equal(t, http.StatusFound, first.Code)

	second := getPath(app, "/api/v1/leads/"+lead.ID+"/assign/maria")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "Advogado Ricardo")

	stored, err := app.repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "ricardo", stored.AssignedTo)
}

func TestLeadDetails(t *testing.T) {
	app := newTestApp(t)
	lead := createLead(t, app)

	rec := getPath(app, "/api/v1/leads/"+lead.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got leads.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, lead.ID, got.ID)
	assert.Equal(t, "João Silva", got.Name)
	assert.Equal(t, "Direito Penal", got.Area)
	assert.Empty(t, got.AssignedTo)

	getPath(app, "/api/v1/leads/"+lead.ID+"/assign/ricardo")

	rec = getPath(app, "/api/v1/leads/"+lead.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ricardo", got.AssignedTo)
	assert.Equal(t, "Advogado Ricardo", got.AssignedName)
}

func TestLeadDetailsNotFound(t *testing.T) {
	app := newTestApp(t)

	rec := getPath(app, "/api/v1/leads/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClaimUnknownLeadOrLawyer(t *testing.T) {
	app := newTestApp(t)
	lead := createLead(t, app)

	rec := getPath(app, "/api/v1/leads/missing/assign/ricardo")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = getPath(app, "/api/v1/leads/"+lead.ID+"/assign/intruso")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
