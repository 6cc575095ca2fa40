package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/record"
)

type stubLister struct {
	records []record.Record
	err     error
	calls   int
}

func (s *stubLister) List(context.Context) ([]record.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

var (
	cityField = entity.Field{
		Name:  "cityId",
		Label: "City",
		Type:  entity.FieldTypeReference,
		Relationship: &entity.Relationship{
			Kind:        entity.RelationshipBelongsTo,
			Target:      "cities",
			SourceField: "city",
			LabelField:  "name",
		},
	}
	cityEntity = entity.Entity{Name: "cities", Singular: "City", DisplayField: "name"}
)

func cities() []record.Record {
	return []record.Record{
		{"id": json.Number("1"), "name": "Springfield", "state": "IL"},
		{"id": json.Number("2"), "name": "Shelbyville", "state": "IL"},
	}
}

func TestNew_RequiresReference(t *testing.T) {
	if _, err := New(entity.Field{Name: "name"}, cityEntity, &stubLister{}); err == nil {
		t.Fatalf("expected error for non-reference field")
	}
	if _, err := New(cityField, cityEntity, nil); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestBoundaries(t *testing.T) {
	if got := FromReference(nil); got != "" {
		t.Fatalf("FromReference(nil) = %q, want empty", got)
	}
	if got := ToReference("", cities()); got != nil {
		t.Fatalf("ToReference(\"\") = %v, want nil", got)
	}
	if got := ToReference("9", cities()); got != nil {
		t.Fatalf("ToReference(absent) = %v, want nil", got)
	}
	if got := FromReference(map[string]any{"name": "no id"}); got != "" {
		t.Fatalf("expected empty id for object without id, got %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	options := cities()
	ref := ToReference("2", options)
	if ref == nil {
		t.Fatalf("expected reference for id 2")
	}
	if diff := cmp.Diff(options[1], ref); diff != "" {
		t.Fatalf("reference mismatch (-want +got):\n%s", diff)
	}
	if got := FromReference(ref); got != "2" {
		t.Fatalf("FromReference = %q, want 2", got)
	}
	if got := FromReference(json.Number("7")); got != "7" {
		t.Fatalf("bare identifier = %q, want 7", got)
	}
}

func TestListOptionsAndChoices(t *testing.T) {
	source := &stubLister{records: cities()}
	res, err := New(cityField, cityEntity, source)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	if _, err := res.ListOptions(context.Background()); err != nil {
		t.Fatalf("list options: %v", err)
	}
	if !res.Loaded() {
		t.Fatalf("expected options to be loaded")
	}

	want := []Choice{
		{Label: "Springfield", Value: "1"},
		{Label: "Shelbyville", Value: "2"},
	}
	if diff := cmp.Diff(want, res.Choices()); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}

	if got := res.Resolve("1").Text("name"); got != "Springfield" {
		t.Fatalf("resolve = %q", got)
	}
}

func TestListOptionsFailureClearsOptions(t *testing.T) {
	source := &stubLister{records: cities()}
	res, _ := New(cityField, cityEntity, source)
	if _, err := res.ListOptions(context.Background()); err != nil {
		t.Fatalf("list options: %v", err)
	}

	source.err = errors.New("boom")
	if _, err := res.ListOptions(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if res.Loaded() || len(res.Options()) != 0 || len(res.Choices()) != 0 {
		t.Fatalf("expected options cleared after failure")
	}
}

func TestLabel(t *testing.T) {
	res, _ := New(cityField, cityEntity, &stubLister{records: cities()})
	_, _ = res.ListOptions(context.Background())

	cases := []struct {
		name string
		ref  any
		want string
	}{
		{name: "nil", ref: nil, want: "No City"},
		{name: "embedded", ref: map[string]any{"id": json.Number("5"), "name": "Capital City"}, want: "Capital City"},
		{name: "bare id", ref: json.Number("2"), want: "Shelbyville"},
		{name: "unknown id", ref: "9", want: "9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := res.Label(tc.ref); got != tc.want {
				t.Fatalf("Label(%v) = %q, want %q", tc.ref, got, tc.want)
			}
		})
	}
}
