package entity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	pathHintKeys     = []string{"displayField", "singular", "title"}
	propertyHintKeys = []string{"label", "placeholder"}
)

// Violation is one problem found by Lint.
type Violation struct {
	Location string
	Message  string
}

func (v Violation) String() string {
	return v.Location + " -> " + v.Message
}

// Lint checks the x-formgen and x-relationships extensions of an OpenAPI
// document against what LoadCatalog understands. Violations are sorted by
// location. The error is reserved for documents that cannot be loaded.
func Lint(ctx context.Context, raw []byte) ([]Violation, error) {
	if len(raw) == 0 {
		return nil, errors.New("entity lint: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("entity lint: load document: %w", err)
	}
	if spec.Paths == nil {
		return nil, nil
	}

	paths := spec.Paths.Map()
	collections := make(map[string]struct{})
	for key, item := range paths {
		if segments, ok := splitAPIPath(key); ok && len(segments) == 1 && item != nil && item.Post != nil {
			collections[segments[0]] = struct{}{}
		}
	}

	var out []Violation
	for key, item := range paths {
		if item == nil {
			continue
		}
		out = append(out, lintHints(key, item.Extensions[extensionNamespace], pathHintKeys)...)

		segments, ok := splitAPIPath(key)
		if !ok || len(segments) != 1 || item.Post == nil {
			continue
		}
		schema := requestSchema(item.Post.RequestBody)
		if schema == nil {
			out = append(out, Violation{Location: key, Message: "create operation has no JSON request body"})
			continue
		}
		props, _ := collectProperties(schema)

		if display := stringExtensions(item.Extensions[extensionNamespace])["displayField"]; display != "" {
			if _, ok := props[display]; !ok {
				out = append(out, Violation{
					Location: formatLocation(key, extensionNamespace, "displayField"),
					Message:  fmt.Sprintf("display field %q is not a request property", display),
				})
			}
		}

		for name, prop := range props {
			if prop == nil || prop.Value == nil {
				continue
			}
			location := formatLocation(key, "properties."+name)
			out = append(out, lintHints(location, prop.Value.Extensions[extensionNamespace], propertyHintKeys)...)
			out = append(out, lintRelationship(location, prop.Value.Extensions, collections)...)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Location == out[j].Location {
			return out[i].Message < out[j].Message
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

func lintHints(location string, value any, allowed []string) []Violation {
	if value == nil {
		return nil
	}
	nested, ok := value.(map[string]any)
	if !ok {
		return []Violation{{
			Location: location,
			Message:  fmt.Sprintf("%s must be an object, found %T", extensionNamespace, value),
		}}
	}
	var out []Violation
	for key, hint := range nested {
		at := formatLocation(location, extensionNamespace, key)
		if !contains(allowed, key) {
			out = append(out, Violation{
				Location: at,
				Message:  fmt.Sprintf("unsupported key %q (supported: %s)", key, strings.Join(allowed, ", ")),
			})
			continue
		}
		if _, ok := hint.(string); !ok {
			out = append(out, Violation{Location: at, Message: fmt.Sprintf("value must be a string (got %T)", hint)})
		}
	}
	return out
}

func lintRelationship(location string, ext map[string]any, collections map[string]struct{}) []Violation {
	raw, present := ext[relationshipExtensionKey]
	if !present {
		return nil
	}
	at := formatLocation(location, relationshipExtensionKey)
	if _, ok := raw.(map[string]any); !ok {
		return []Violation{{Location: at, Message: fmt.Sprintf("must be an object, found %T", raw)}}
	}
	rel := relationshipFromExtensions(ext)
	if rel == nil {
		return []Violation{{Location: at, Message: "needs a known type (belongsTo, hasOne, hasMany) and a target"}}
	}
	if _, ok := collections[rel.Target]; !ok {
		return []Violation{{Location: at, Message: fmt.Sprintf("target %q is not a collection of this API", rel.Target)}}
	}
	return nil
}

func formatLocation(parts ...string) string {
	return strings.Join(parts, " > ")
}
