package entity

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLint_TravelDocumentIsClean(t *testing.T) {
	violations, err := Lint(context.Background(), TravelAPIDocument())
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestLint_ReportsUnsupportedExtensions(t *testing.T) {
	doc := `openapi: 3.0.3
info:
  title: Hotels
  version: 1.0.0
paths:
  /api/hotels:
    x-formgen:
      singular: Hotel
      icon: bed
      displayField: title
    post:
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
                  x-formgen:
                    label: 5
                cityId:
                  type: integer
                  x-relationships:
                    type: belongsTo
                    target: cities
                stars:
                  type: integer
                  x-relationships: yes-please
      responses:
        "201":
          description: created
`
	violations, err := Lint(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}

	var locations []string
	for _, v := range violations {
		locations = append(locations, v.Location)
	}
	want := []string{
		"/api/hotels > properties.cityId > x-relationships",
		"/api/hotels > properties.name > x-formgen > label",
		"/api/hotels > properties.stars > x-relationships",
		"/api/hotels > x-formgen > displayField",
		"/api/hotels > x-formgen > icon",
	}
	if diff := cmp.Diff(want, locations); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}

	messages := []string{
		`target "cities" is not a collection`,
		"value must be a string",
		"must be an object",
		`display field "title" is not a request property`,
		`unsupported key "icon"`,
	}
	for i, fragment := range messages {
		if !strings.Contains(violations[i].Message, fragment) {
			t.Fatalf("violation %d = %q, want it to mention %q", i, violations[i].Message, fragment)
		}
	}
	if got := violations[4].String(); !strings.HasPrefix(got, "/api/hotels > x-formgen > icon -> ") {
		t.Fatalf("unexpected String() %q", got)
	}
}

func TestLint_Errors(t *testing.T) {
	if _, err := Lint(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := Lint(context.Background(), []byte("openapi: [")); err == nil {
		t.Fatalf("expected error for malformed document")
	}
}
