package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Outaos/data-steward/internal/config"
)

func withTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{}
	cfg.Population.NodataFallback = -200
	cfg.Population.BufferSegments = 64
	cfg.Population.DefaultRadiusM = 30000
	t.Cleanup(func() { cfg = prev })
}

func TestRouter_HealthEndpoint(t *testing.T) {
	withTestConfig(t)
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_PopulationMissingTiles(t *testing.T) {
	withTestConfig(t)
	router := newRouter()

	payload, _ := json.Marshal(populationRequest{Lat: 49.8, Lon: 24.0, RadiusM: 1000})
	req := httptest.NewRequest(http.MethodPost, "/api/population", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "tiles is required")
}

func TestRouter_PopulationInvalidBody(t *testing.T) {
	withTestConfig(t)
	router := newRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/population", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_PopulationMissingTile(t *testing.T) {
	withTestConfig(t)
	router := newRouter()

	payload, _ := json.Marshal(populationRequest{Lat: 49.8, Lon: 24.0, Tiles: []string{"/no/such/tile.tif"}})
	req := httptest.NewRequest(http.MethodPost, "/api/population", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
