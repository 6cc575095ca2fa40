package fakeapi

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/goliatone/go-travel-admin/pkg/entity"
)

// payloadSchema builds the JSON Schema a create or update body must satisfy.
// Every declared field is mandatory; strings must be non-empty.
func payloadSchema(ent entity.Entity) map[string]any {
	props := make(map[string]any, len(ent.Fields))
	required := make([]string, 0, len(ent.Fields))
	for _, field := range ent.Fields {
		switch field.Type {
		case entity.FieldTypeInteger:
			props[field.Name] = map[string]any{"type": "integer", "minimum": 0}
		case entity.FieldTypeNumber:
			props[field.Name] = map[string]any{"type": "number"}
		case entity.FieldTypeReference:
			props[field.Name] = map[string]any{
				"type":    []any{"integer", "string"},
				"pattern": "^[0-9]+$",
			}
		default:
			props[field.Name] = map[string]any{"type": "string", "minLength": 1}
		}
		if field.Required {
			required = append(required, field.Name)
		}
	}
	schema := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func compileSchemas(catalog *entity.Catalog) (map[string]*gojsonschema.Schema, error) {
	out := make(map[string]*gojsonschema.Schema)
	for _, ent := range catalog.Entities() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(payloadSchema(ent)))
		if err != nil {
			return nil, fmt.Errorf("fakeapi: compile %s schema: %w", ent.Name, err)
		}
		out[ent.Name] = schema
	}
	return out, nil
}

// validatePayload returns one message per schema violation, formatted like
// "population: Invalid type. Expected: integer, given: string".
func validatePayload(schema *gojsonschema.Schema, payload map[string]any) ([]string, error) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		errs = append(errs, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
	}
	return errs, nil
}
