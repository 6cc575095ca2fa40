package entity

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultCatalog_Names(t *testing.T) {
	catalog, err := DefaultCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	want := []string{"aircraft", "airports", "cities", "passengers"}
	if diff := cmp.Diff(want, catalog.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultCatalog_Airports(t *testing.T) {
	catalog, err := DefaultCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	got, ok := catalog.Entity("airports")
	if !ok {
		t.Fatalf("airports entity missing")
	}

	want := Entity{
		Name:         "airports",
		Singular:     "Airport",
		Title:        "Airport Management",
		DisplayField: "name",
		Fields: []Field{
			{Name: "name", Label: "Airport Name", Type: FieldTypeString, Required: true},
			{Name: "code", Label: "Airport Code", Type: FieldTypeString, Required: true},
			{
				Name:        "city",
				Label:       "City",
				Type:        FieldTypeReference,
				Required:    true,
				Placeholder: "Select a City",
				Relationship: &Relationship{
					Kind:        RelationshipBelongsTo,
					Target:      "cities",
					Cardinality: "one",
					SourceField: "city",
					LabelField:  "name",
				},
			},
		},
		Relations: []Relation{{Name: "aircraft", Label: "Aircraft", Target: "aircraft"}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("airports mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultCatalog_AircraftDetailsAndTypes(t *testing.T) {
	catalog, err := DefaultCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	aircraft, ok := catalog.Entity("aircraft")
	if !ok {
		t.Fatalf("aircraft entity missing")
	}
	if !aircraft.Details {
		t.Fatalf("expected aircraft to expose details")
	}

	seats, ok := aircraft.Field("numberOfPassengers")
	if !ok {
		t.Fatalf("numberOfPassengers field missing")
	}
	if seats.Type != FieldTypeInteger || !seats.Type.Numeric() {
		t.Fatalf("expected integer field, got %q", seats.Type)
	}
	if seats.Label != "Number Of Passengers" {
		t.Fatalf("unexpected label %q", seats.Label)
	}

	rel, ok := aircraft.Relation("passengers")
	if !ok || rel.Target != "passengers" {
		t.Fatalf("expected passengers relation, got %+v", rel)
	}

	cities, _ := catalog.Entity("cities")
	if cities.Details {
		t.Fatalf("cities should not expose details")
	}
	if cities.Plural() != "cities" {
		t.Fatalf("unexpected plural %q", cities.Plural())
	}
}

func TestDefaultCatalog_PassengerReferenceKeys(t *testing.T) {
	catalog, err := DefaultCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	passengers, _ := catalog.Entity("passengers")
	refs := passengers.ReferenceFields()
	if len(refs) != 1 {
		t.Fatalf("expected one reference field, got %d", len(refs))
	}
	ref := refs[0]
	if ref.Name != "cityId" {
		t.Fatalf("expected request key cityId, got %q", ref.Name)
	}
	if ref.ReadPath() != "city" {
		t.Fatalf("expected read path city, got %q", ref.ReadPath())
	}
}

func TestLoadCatalog_DerivesDefaults(t *testing.T) {
	doc := `openapi: 3.0.3
info:
  title: Minimal
  version: 1.0.0
paths:
  /api/countries:
    post:
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                id:
                  type: integer
                name:
                  type: string
                area:
                  type: number
      responses:
        "201":
          description: created
`
	catalog, err := LoadCatalog(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	got, ok := catalog.Entity("countries")
	if !ok {
		t.Fatalf("countries entity missing")
	}

	want := Entity{
		Name:         "countries",
		Singular:     "Country",
		Title:        "Country Management",
		DisplayField: "name",
		Fields: []Field{
			{Name: "name", Label: "Name", Type: FieldTypeString, Required: true},
			{Name: "area", Label: "Area", Type: FieldTypeNumber},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entity mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want string
	}{
		"empty": {doc: "", want: "payload is empty"},
		"no collections": {
			doc: `openapi: 3.0.3
info:
  title: Empty
  version: 1.0.0
paths:
  /:
    get:
      responses:
        "200":
          description: ok
`,
			want: "no collection paths",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog(context.Background(), []byte(tc.doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestNewCatalog_ReplacesDuplicates(t *testing.T) {
	catalog := NewCatalog(
		Entity{Name: "cities", Title: "first"},
		Entity{Name: "airports"},
		Entity{Name: "cities", Title: "second"},
	)

	if diff := cmp.Diff([]string{"cities", "airports"}, catalog.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	got, _ := catalog.Entity("cities")
	if got.Title != "second" {
		t.Fatalf("expected later definition to win, got %q", got.Title)
	}
}

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"airlineName":          "Airline Name",
		"number_of_passengers": "Number Of Passengers",
		"cityId":               "City Id",
		"":                     "",
	}
	for input, want := range cases {
		if got := DefaultLabeler(input); got != want {
			t.Fatalf("DefaultLabeler(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSingularLabel(t *testing.T) {
	cases := map[string]string{
		"cities":     "City",
		"airports":   "Airport",
		"aircraft":   "Aircraft",
		"passengers": "Passenger",
	}
	for input, want := range cases {
		if got := SingularLabel(input); got != want {
			t.Fatalf("SingularLabel(%q) = %q, want %q", input, got, want)
		}
	}
}
