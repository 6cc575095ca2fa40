package testsupport

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-travel-admin/internal/fakeapi"
	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/client"
	"github.com/goliatone/go-travel-admin/pkg/entity"
)

// TravelAPI is an in-memory travel API served over httptest together with a
// client pointed at it.
type TravelAPI struct {
	Catalog *entity.Catalog
	Server  *fakeapi.Server
	URL     string
	API     *client.API
}

// MustCatalog loads the embedded travel API catalog.
func MustCatalog(t *testing.T) *entity.Catalog {
	t.Helper()

	catalog, err := entity.DefaultCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

// MustEntity returns one entity of the embedded catalog.
func MustEntity(t *testing.T, name string) entity.Entity {
	t.Helper()

	ent, ok := MustCatalog(t).Entity(name)
	if !ok {
		t.Fatalf("entity %q not in catalog", name)
	}
	return ent
}

// StartTravelAPI serves a fresh in-memory API for the duration of the test.
// With seed the sample travel data is loaded first.
func StartTravelAPI(t *testing.T, seed bool) *TravelAPI {
	t.Helper()

	api, err := NewTravelAPI(seed)
	if err != nil {
		t.Fatalf("start travel api: %v", err)
	}
	srv := httptest.NewServer(api.Server.Handler())
	t.Cleanup(srv.Close)

	api.URL = srv.URL
	api.API, err = client.NewAPI(srv.URL, client.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("travel api client: %v", err)
	}
	return api
}

// NewTravelAPI builds the in-memory server without starting a listener, for
// callers managing setup outside of *testing.T.
func NewTravelAPI(seed bool) (*TravelAPI, error) {
	catalog, err := entity.DefaultCatalog(context.Background())
	if err != nil {
		return nil, fmt.Errorf("testsupport: catalog: %w", err)
	}
	server, err := fakeapi.New(catalog, fakeapi.WithLogger(log.Discard()))
	if err != nil {
		return nil, fmt.Errorf("testsupport: fake api: %w", err)
	}
	if seed {
		if err := fakeapi.SeedTravel(server); err != nil {
			return nil, fmt.Errorf("testsupport: seed: %w", err)
		}
	}
	return &TravelAPI{Catalog: catalog, Server: server}, nil
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	if path == "" {
		t.Fatalf("read golden: %v", errors.New("testsupport: golden path is required"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGoldenText compares rendered text with a golden file, ignoring the
// trailing newline editors add. It returns a cmp diff, empty on match.
func CompareGoldenText(t *testing.T, path, got string) string {
	t.Helper()
	if WriteMaybeGolden(t, path, []byte(got+"\n")) {
		return ""
	}
	want := strings.TrimRight(string(MustReadGolden(t, path)), "\n")
	return cmp.Diff(want, got)
}
