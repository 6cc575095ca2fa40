package view

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/form"
	"github.com/goliatone/go-travel-admin/pkg/resolver"
	"github.com/goliatone/go-travel-admin/pkg/testsupport"
)

func TestScreen_SeededAirportsGolden(t *testing.T) {
	travel := testsupport.StartTravelAPI(t, true)
	airports, _ := travel.Catalog.Entity("airports")
	cities, _ := travel.Catalog.Entity("cities")
	field, _ := airports.Field("city")

	cityRes, err := resolver.New(field, cities, travel.API.Resource("cities"))
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	ctrl, err := form.New(airports, travel.API.Resource("airports"), form.WithResolver(cityRes), form.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	if err := ctrl.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}

	out, err := newEngine(t).Screen(ctrl)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := testsupport.CompareGoldenText(t, filepath.Join("testdata", "airports_screen.golden"), out); diff != "" {
		t.Fatalf("screen mismatch (-want +got):\n%s", diff)
	}
}
