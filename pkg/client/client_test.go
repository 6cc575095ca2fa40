package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-travel-admin/internal/fakeapi"
	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/record"
)

func newFakeAPI(t *testing.T) (*fakeapi.Server, *API) {
	t.Helper()
	catalog, err := entity.DefaultCatalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	server, err := fakeapi.New(catalog, fakeapi.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("fakeapi: %v", err)
	}
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	api, err := NewAPI(srv.URL, WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("new api: %v", err)
	}
	return server, api
}

func TestNewAPI_Validation(t *testing.T) {
	if _, err := NewAPI("localhost:8084"); err == nil {
		t.Fatalf("expected error for relative base url")
	}
	api, err := NewAPI("")
	if err != nil {
		t.Fatalf("default base url: %v", err)
	}
	if api.BaseURL() != DefaultBaseURL {
		t.Fatalf("unexpected base url %q", api.BaseURL())
	}
}

func TestClient_CRUD(t *testing.T) {
	_, api := newFakeAPI(t)
	ctx := context.Background()
	cities := api.Resource("cities")

	list, err := cities.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}

	created, err := cities.Create(ctx, map[string]any{"name": "Springfield", "state": "IL", "population": json.Number("5000")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := record.Record{"id": json.Number("1"), "name": "Springfield", "state": "IL", "population": json.Number("5000")}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Fatalf("create mismatch (-want +got):\n%s", diff)
	}

	updated, err := cities.Update(ctx, "1", map[string]any{"name": "Springfield", "state": "IL", "population": 6000})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Text("population") != "6000" {
		t.Fatalf("unexpected update result %v", updated)
	}

	got, err := cities.Get(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(updated, got); diff != "" {
		t.Fatalf("get mismatch (-want +got):\n%s", diff)
	}

	if err := cities.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = cities.Delete(ctx, "1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeated delete should be not found, got %v", err)
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.StatusCode() != http.StatusNotFound || ce.Detail() != "City 1 not found" {
		t.Fatalf("unexpected error detail %#v", err)
	}

	if _, err := cities.Update(ctx, "1", map[string]any{"name": "Springfield", "state": "IL", "population": 6000}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of deleted record should be not found, got %v", err)
	}
}

func TestClient_ValidationErrors(t *testing.T) {
	_, api := newFakeAPI(t)

	_, err := api.Resource("cities").Create(context.Background(), map[string]any{"name": "Springfield"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if errors.Is(err, ErrServer) || errors.Is(err, ErrNotFound) {
		t.Fatalf("error matched more than one kind: %v", err)
	}
	var ce *Error
	if !errors.As(err, &ce) || len(ce.Messages) != 2 {
		t.Fatalf("expected two messages, got %#v", err)
	}

	if _, err := api.Resource("cities").Update(context.Background(), " ", map[string]any{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty id should be a validation error, got %v", err)
	}
}

func TestClient_ListRelated(t *testing.T) {
	server, api := newFakeAPI(t)
	if err := fakeapi.SeedTravel(server); err != nil {
		t.Fatalf("seed: %v", err)
	}

	aircraft, err := api.Resource("airports").ListRelated(context.Background(), "2", "aircraft")
	if err != nil {
		t.Fatalf("list related: %v", err)
	}
	if aircraft == nil || len(aircraft) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", aircraft)
	}

	passengers, err := api.Resource("aircraft").ListRelated(context.Background(), "1", "passengers")
	if err != nil {
		t.Fatalf("list related: %v", err)
	}
	if len(passengers) != 2 || passengers[0].Text("city.name") != "St. John's" {
		t.Fatalf("unexpected passengers %v", passengers)
	}
}

func TestClient_RootPrefixMatchesServer(t *testing.T) {
	catalog, err := entity.DefaultCatalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	server, err := fakeapi.New(catalog, fakeapi.WithLogger(log.Discard()), fakeapi.WithAPIPrefix("/"))
	if err != nil {
		t.Fatalf("fakeapi: %v", err)
	}
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	api, err := NewAPI(srv.URL, WithAPIPrefix("/"), WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("new api: %v", err)
	}
	list, err := api.Resource("cities").List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestClient_ServerAndNetworkErrors(t *testing.T) {
	server, api := newFakeAPI(t)
	server.Fail("aircraft", http.StatusInternalServerError, "database unavailable")

	_, err := api.Resource("aircraft").List(context.Background())
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	if !strings.Contains(err.Error(), "database unavailable") {
		t.Fatalf("expected server message in %q", err.Error())
	}

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	offline, _ := NewAPI(dead.URL, WithLogger(log.Discard()), WithTimeout(time.Second))
	if _, err := offline.Resource("cities").List(context.Background()); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestClient_HeadersAndErrorBodies(t *testing.T) {
	var (
		mu   sync.Mutex
		seen http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = r.Header.Clone()
		mu.Unlock()
		switch r.URL.Path {
		case "/v2/cities":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"errors":{"name":["already taken"],"state":"too long"}}`))
		case "/v2/airports":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html><body><h1>Bad Gateway</h1> <p>upstream <b>down</b></p></body></html>`))
		case "/v2/aircraft":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"type":"Boeing 737"}`))
		case "/v2/aircraft/5":
			_, _ = w.Write([]byte(`{"type":"Boeing 747"}`))
		default:
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("Hello from <i>travel</i>"))
		}
	}))
	defer srv.Close()

	api, _ := NewAPI(srv.URL, WithAPIPrefix("v2"), WithLogger(log.Discard()), WithRequestIDFunc(func() string { return "req-1" }))

	_, err := api.Resource("cities").Create(context.Background(), map[string]any{"name": "x"})
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	wantFields := map[string][]string{"name": {"already taken"}, "state": {"too long"}}
	if diff := cmp.Diff(wantFields, ce.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	mu.Lock()
	headers := seen
	mu.Unlock()
	if headers.Get(RequestIDHeader) != "req-1" || headers.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected headers %v", headers)
	}

	_, err = api.Resource("airports").List(context.Background())
	if !errors.As(err, &ce) || ce.Kind != KindServer || ce.Detail() != "Bad Gateway upstream down" {
		t.Fatalf("expected sanitised server error, got %#v", err)
	}

	_, err = api.Resource("aircraft").Create(context.Background(), map[string]any{"type": "Boeing 737"})
	if !errors.Is(err, ErrServer) || !errors.Is(err, ErrMissingResponseID) {
		t.Fatalf("create without id should be a server error, got %v", err)
	}

	rec, err := api.Resource("aircraft").Update(context.Background(), "5", map[string]any{"type": "Boeing 747"})
	if !errors.Is(err, ErrServer) || !errors.Is(err, ErrMissingResponseID) || rec != nil {
		t.Fatalf("update without id should be a server error, got %v / %v", rec, err)
	}

	greeting, err := api.Welcome(context.Background())
	if err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if greeting != "Hello from travel" {
		t.Fatalf("unexpected greeting %q", greeting)
	}
}
