package entity

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	// DefaultAPIPrefix is the path prefix every collection lives under.
	DefaultAPIPrefix = "/api"

	extensionNamespace = "x-formgen"
)

//go:embed travel-api.yaml
var travelAPIDocument []byte

// TravelAPIDocument returns a copy of the embedded OpenAPI description of the
// travel API.
func TravelAPIDocument() []byte {
	return append([]byte(nil), travelAPIDocument...)
}

// Catalog is the ordered set of entities a client can manage.
type Catalog struct {
	entities []Entity
	index    map[string]int
}

// NewCatalog builds a catalog from explicit entity definitions. Later
// entities replace earlier ones with the same name.
func NewCatalog(entities ...Entity) *Catalog {
	c := &Catalog{index: make(map[string]int, len(entities))}
	for _, ent := range entities {
		if idx, ok := c.index[ent.Name]; ok {
			c.entities[idx] = ent
			continue
		}
		c.index[ent.Name] = len(c.entities)
		c.entities = append(c.entities, ent)
	}
	return c
}

// Entity returns the named entity definition.
func (c *Catalog) Entity(name string) (Entity, bool) {
	if c == nil {
		return Entity{}, false
	}
	idx, ok := c.index[strings.TrimSpace(name)]
	if !ok {
		return Entity{}, false
	}
	return c.entities[idx], true
}

// Entities returns the definitions in catalog order.
func (c *Catalog) Entities() []Entity {
	if c == nil {
		return nil
	}
	return append([]Entity(nil), c.entities...)
}

// Names returns the collection names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.entities))
	for i, ent := range c.entities {
		out[i] = ent.Name
	}
	return out
}

// DefaultCatalog loads the embedded travel API description.
func DefaultCatalog(ctx context.Context) (*Catalog, error) {
	return LoadCatalog(ctx, travelAPIDocument)
}

// LoadCatalog parses an OpenAPI 3 document (JSON or YAML) and derives one
// entity per collection path under /api. The POST request body of the
// collection path supplies the fields; GET /api/{entity}/{id}/{relation}
// paths supply relations and GET /api/{entity}/{id} enables the details view.
func LoadCatalog(ctx context.Context, raw []byte) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("entity catalog: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("entity catalog: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("entity catalog: validate: %w", err)
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("entity catalog: document does not contain any paths")
	}

	paths := spec.Paths.Map()
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	byName := make(map[string]*Entity)
	var order []string
	for _, key := range keys {
		segments, ok := splitAPIPath(key)
		if !ok || len(segments) != 1 {
			continue
		}
		item := paths[key]
		if item == nil || item.Post == nil {
			continue
		}
		ent, err := entityFromPath(segments[0], item)
		if err != nil {
			return nil, err
		}
		byName[ent.Name] = &ent
		order = append(order, ent.Name)
	}

	for _, key := range keys {
		segments, ok := splitAPIPath(key)
		if !ok || len(segments) < 2 {
			continue
		}
		ent, ok := byName[segments[0]]
		if !ok || !isPathParam(segments[1]) {
			continue
		}
		item := paths[key]
		if item == nil || item.Get == nil {
			continue
		}
		switch len(segments) {
		case 2:
			ent.Details = true
		case 3:
			rel := Relation{
				Name:  segments[2],
				Label: strings.TrimSpace(item.Get.Summary),
			}
			if rel.Label == "" {
				rel.Label = DefaultLabeler(rel.Name)
			}
			if _, known := byName[rel.Name]; known {
				rel.Target = rel.Name
			}
			ent.Relations = append(ent.Relations, rel)
		}
	}

	if len(order) == 0 {
		return nil, errors.New("entity catalog: no collection paths with a create operation")
	}

	entities := make([]Entity, 0, len(order))
	for _, name := range order {
		entities = append(entities, *byName[name])
	}
	return NewCatalog(entities...), nil
}

func entityFromPath(name string, item *openapi3.PathItem) (Entity, error) {
	ext := stringExtensions(item.Extensions[extensionNamespace])

	singular := ext["singular"]
	if singular == "" {
		singular = SingularLabel(name)
	}
	title := ext["title"]
	if title == "" {
		title = singular + " Management"
	}

	ent := Entity{
		Name:         name,
		Singular:     singular,
		Title:        title,
		DisplayField: ext["displayField"],
	}

	schema := requestSchema(item.Post.RequestBody)
	if schema == nil {
		return Entity{}, fmt.Errorf("entity catalog: %s: create operation has no JSON request body", name)
	}

	props, required := collectProperties(schema)
	for _, fieldName := range fieldOrder(props, required) {
		field, err := fieldFromSchema(fieldName, props[fieldName], contains(required, fieldName))
		if err != nil {
			return Entity{}, fmt.Errorf("entity catalog: %s.%s: %w", name, fieldName, err)
		}
		ent.Fields = append(ent.Fields, field)
	}
	if len(ent.Fields) == 0 {
		return Entity{}, fmt.Errorf("entity catalog: %s: request body declares no fields", name)
	}
	if ent.DisplayField == "" {
		ent.DisplayField = ent.Fields[0].Name
	}
	return ent, nil
}

func fieldFromSchema(name string, ref *openapi3.SchemaRef, required bool) (Field, error) {
	if ref == nil || ref.Value == nil {
		return Field{}, errors.New("unresolved schema")
	}
	src := ref.Value
	ext := stringExtensions(src.Extensions[extensionNamespace])

	field := Field{
		Name:        name,
		Label:       ext["label"],
		Required:    required,
		Placeholder: ext["placeholder"],
		Description: src.Description,
	}
	if field.Label == "" {
		field.Label = DefaultLabeler(name)
	}

	if rel := relationshipFromExtensions(src.Extensions); rel != nil {
		if rel.SourceField == "" {
			rel.SourceField = name
		}
		field.Type = FieldTypeReference
		field.Relationship = rel
		return field, nil
	}

	switch firstSchemaType(src.Type) {
	case "integer":
		field.Type = FieldTypeInteger
	case "number":
		field.Type = FieldTypeNumber
	case "string", "":
		field.Type = FieldTypeString
	default:
		return Field{}, fmt.Errorf("unsupported type %q", firstSchemaType(src.Type))
	}
	return field, nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	mt, ok := body.Value.Content["application/json"]
	if !ok || mt == nil || mt.Schema == nil {
		return nil
	}
	return mt.Schema.Value
}

// collectProperties flattens allOf members so derived schemas contribute
// their properties and required lists.
func collectProperties(schema *openapi3.Schema) (map[string]*openapi3.SchemaRef, []string) {
	props := make(map[string]*openapi3.SchemaRef)
	var required []string
	if schema == nil {
		return props, required
	}
	for _, member := range schema.AllOf {
		if member == nil || member.Value == nil {
			continue
		}
		nested, req := collectProperties(member.Value)
		for name, prop := range nested {
			props[name] = prop
		}
		required = append(required, req...)
	}
	for name, prop := range schema.Properties {
		props[name] = prop
	}
	required = append(required, schema.Required...)
	return props, required
}

// fieldOrder lists required fields in declaration order followed by the
// remaining properties sorted by name. The id property is server-assigned
// and never part of a form.
func fieldOrder(props map[string]*openapi3.SchemaRef, required []string) []string {
	seen := make(map[string]struct{}, len(props))
	var out []string
	for _, name := range required {
		if _, ok := props[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	var rest []string
	for name := range props {
		if _, ok := seen[name]; ok || name == "id" {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func splitAPIPath(path string) ([]string, bool) {
	trimmed := strings.TrimPrefix(path, DefaultAPIPrefix+"/")
	if trimmed == path {
		return nil, false
	}
	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}
	return segments, true
}

func isPathParam(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

func stringExtensions(value any) map[string]string {
	raw, ok := value.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(raw))
	for key, val := range raw {
		if str, ok := val.(string); ok {
			out[key] = strings.TrimSpace(str)
		}
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
