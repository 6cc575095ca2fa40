package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/entity"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	catalog, err := entity.DefaultCatalog(context.Background())
	require.NoError(t, err)

	api, err := New(catalog, WithLogger(log.Discard()))
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

func doJSON(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestServer_CityLifecycle(t *testing.T) {
	_, srv := newTestServer(t)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/cities", map[string]any{
		"name": "Springfield", "state": "IL", "population": 5000,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	require.JSONEq(t, `{"id":1,"name":"Springfield","state":"IL","population":5000}`, string(body))

	status, body = doJSON(t, http.MethodPut, srv.URL+"/api/cities/1", map[string]any{
		"name": "Springfield", "state": "IL", "population": 6000,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	require.JSONEq(t, `{"id":1,"name":"Springfield","state":"IL","population":6000}`, string(body))

	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/cities/1", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = doJSON(t, http.MethodDelete, srv.URL+"/api/cities/1", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.JSONEq(t, `{"errors":["City 1 not found"]}`, string(body))

	status, body = doJSON(t, http.MethodGet, srv.URL+"/api/cities", nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `[]`, string(body))
}

func TestServer_RootPrefix(t *testing.T) {
	catalog, err := entity.DefaultCatalog(context.Background())
	require.NoError(t, err)

	for _, prefix := range []string{"/", "", " / "} {
		api, err := New(catalog, WithLogger(log.Discard()), WithAPIPrefix(prefix))
		require.NoError(t, err)
		srv := httptest.NewServer(api.Handler())

		status, body := doJSON(t, http.MethodPost, srv.URL+"/cities", map[string]any{
			"name": "Gander", "state": "NL", "population": 11000,
		})
		require.Equal(t, http.StatusCreated, status, "prefix %q: %s", prefix, body)

		status, body = doJSON(t, http.MethodGet, srv.URL+"/cities", nil)
		require.Equal(t, http.StatusOK, status, "prefix %q", prefix)
		require.JSONEq(t, `[{"id":1,"name":"Gander","state":"NL","population":11000}]`, string(body))

		status, _ = doJSON(t, http.MethodGet, srv.URL+"/", nil)
		require.Equal(t, http.StatusOK, status, "prefix %q", prefix)
		srv.Close()
	}
}

func TestServer_RejectsInvalidPayload(t *testing.T) {
	_, srv := newTestServer(t)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/cities", map[string]any{
		"name": "Springfield", "population": "many",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var payload struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Errors, 2)
	require.Contains(t, string(body), "state")
	require.Contains(t, string(body), "population")
}

func TestServer_EmbedsReferences(t *testing.T) {
	api, srv := newTestServer(t)

	cityID, err := api.Insert("cities", map[string]any{"name": "Chicago", "state": "IL", "population": 2700000})
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/passengers", map[string]any{
		"firstName": "Jane", "lastName": "Doe", "phoneNumber": "555-0101", "cityId": cityID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	require.JSONEq(t, `{
		"id": 1,
		"firstName": "Jane",
		"lastName": "Doe",
		"phoneNumber": "555-0101",
		"city": {"id": 1, "name": "Chicago", "state": "IL", "population": 2700000}
	}`, string(body))

	status, body = doJSON(t, http.MethodPost, srv.URL+"/api/airports", map[string]any{
		"name": "Nowhere", "code": "NWH", "city": 99,
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, string(body), "City 99 does not exist")
}

func TestServer_RelatedRecords(t *testing.T) {
	api, srv := newTestServer(t)
	require.NoError(t, SeedTravel(api))

	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/airports/2/aircraft", nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `[]`, string(body))

	status, body = doJSON(t, http.MethodGet, srv.URL+"/api/aircraft/1/passengers", nil)
	require.Equal(t, http.StatusOK, status)

	var passengers []map[string]any
	require.NoError(t, json.Unmarshal(body, &passengers))
	require.Len(t, passengers, 2)
	require.Equal(t, "Doe", passengers[0]["lastName"])

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/api/cities/1/aircraft", nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/api/airports/42/aircraft", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestServer_WelcomeAndFailures(t *testing.T) {
	api, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, DefaultGreeting, string(raw))

	api.Fail("cities", http.StatusInternalServerError, "database unavailable")
	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/cities", nil)
	require.Equal(t, http.StatusInternalServerError, status)
	require.JSONEq(t, `{"errors":["database unavailable"]}`, string(body))

	api.Recover("cities")
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/api/cities", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/api/unknown", nil)
	require.Equal(t, http.StatusNotFound, status)
}
