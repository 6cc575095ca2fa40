package traveladmin

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/testsupport"
)

func TestTemplatesFSContainsScreens(t *testing.T) {
	fsys := TemplatesFS()
	for _, name := range []string{"screen.tpl", "home.tpl", "rows/cities.tpl", "rows/default.tpl"} {
		if _, err := fs.ReadFile(fsys, name); err != nil {
			t.Fatalf("expected %s to be readable: %v", name, err)
		}
	}
}

func TestApp_Screen(t *testing.T) {
	travel := testsupport.StartTravelAPI(t, true)
	app, err := New(context.Background(), travel.API, WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	names := make([]string, 0, 4)
	for _, ent := range app.Entities() {
		names = append(names, ent.Name)
	}
	if got := strings.Join(names, ","); got != "aircraft,airports,cities,passengers" {
		t.Fatalf("unexpected screens %q", got)
	}

	greeting, err := app.Welcome(context.Background())
	if err != nil || greeting != "Welcome to the Travel API!" {
		t.Fatalf("unexpected greeting %q (%v)", greeting, err)
	}

	ctrl, err := app.Screen("passengers")
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	res, ok := ctrl.Resolver("cityId")
	if !ok || res.Target().Name != "cities" {
		t.Fatalf("passengers screen should resolve cities")
	}
	if err := ctrl.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(ctrl.Records()) != 2 || len(res.Choices()) != 3 {
		t.Fatalf("unexpected activation %d records / %d choices", len(ctrl.Records()), len(res.Choices()))
	}

	if _, err := app.Screen("hotels"); !errors.Is(err, ErrUnknownScreen) {
		t.Fatalf("expected ErrUnknownScreen, got %v", err)
	}
}

func TestNewScreen_UnknownTarget(t *testing.T) {
	travel := testsupport.StartTravelAPI(t, false)
	passengers := testsupport.MustEntity(t, "passengers")
	catalog := entity.NewCatalog(passengers)

	if _, err := NewScreen(travel.API, catalog, "passengers"); err == nil {
		t.Fatalf("expected error for missing cities entity")
	}
	if _, err := New(context.Background(), nil); err == nil {
		t.Fatalf("expected error without api")
	}
}
