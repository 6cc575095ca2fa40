package view

import (
	"strings"

	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/record"
	"github.com/goliatone/go-travel-admin/pkg/resolver"
)

// HomeTitle is the heading of the home menu.
const HomeTitle = "Travel API Home"

// Screen is the read side of a resource screen. *form.Controller satisfies
// it.
type Screen interface {
	Entity() entity.Entity
	Records() []record.Record
	LastError() string
	LastSuccess() string
	ReferenceLabel(rec record.Record, field entity.Field) string
}

// LabelFunc renders a reference field of a record for display.
type LabelFunc func(rec record.Record, field entity.Field) string

// Screen renders the list screen: title, messages and one line per record.
func (e *Engine) Screen(screen Screen) (string, error) {
	ent := screen.Entity()
	records := screen.Records()

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		line, err := e.Row(ent, rec, screen.ReferenceLabel)
		if err != nil {
			return "", err
		}
		rows = append(rows, map[string]any{"id": rec.ID(), "line": line})
	}

	return e.Render("screen", map[string]any{
		"title":        ent.Title,
		"error":        screen.LastError(),
		"success":      screen.LastSuccess(),
		"list_heading": ListHeading(ent),
		"rows":         rows,
		"empty_text":   EmptyText(ent),
	})
}

// Row renders a single record as one line. The entity's own row template is
// used when present, the generic one otherwise.
func (e *Engine) Row(ent entity.Entity, rec record.Record, label LabelFunc) (string, error) {
	if label == nil {
		label = ReferenceText
	}
	values := Values(ent, rec, label)

	name := "rows/" + ent.Name
	if ent.Name == "" || !e.Has(name) {
		name = "rows/default"
		values["summary"] = Summary(ent, values)
	}
	out, err := e.Render(name, values)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Details renders every field of one record under "<Singular> Details".
func (e *Engine) Details(ent entity.Entity, rec record.Record, label LabelFunc) (string, error) {
	values := Values(ent, rec, label)
	items := make([]map[string]any, 0, len(ent.Fields))
	for _, field := range ent.Fields {
		items = append(items, map[string]any{
			"label": fieldLabel(field),
			"value": values[field.Name],
		})
	}
	return e.Render("details", map[string]any{
		"heading": ent.Singular + " Details",
		"items":   items,
	})
}

// Related renders the records of a sub-collection of one owner record. The
// rows use target's row template when target is known.
func (e *Engine) Related(owner entity.Entity, rel entity.Relation, target entity.Entity, records []record.Record) (string, error) {
	relName := rel.Label
	if relName == "" {
		relName = entity.DefaultLabeler(rel.Name)
	}

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		line, err := e.Row(target, rec, ReferenceText)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	return e.Render("related", map[string]any{
		"relation": relName,
		"owner":    owner.Singular,
		"rows":     lines,
	})
}

// Home renders the landing screen with the server greeting and one entry per
// entity.
func (e *Engine) Home(greeting string, entities []entity.Entity) (string, error) {
	screens := make([]string, 0, len(entities))
	for _, ent := range entities {
		screens = append(screens, ent.Singular)
	}
	return e.Render("home", map[string]any{
		"title":    HomeTitle,
		"greeting": greeting,
		"screens":  screens,
	})
}

// ListHeading returns the heading above the list, e.g. "Cities List".
func ListHeading(ent entity.Entity) string {
	return entity.DefaultLabeler(ent.Name) + " List"
}

// EmptyText returns the empty-list notice, e.g. "No cities found.".
func EmptyText(ent entity.Entity) string {
	return "No " + ent.Plural() + " found."
}

// Values flattens rec into display strings keyed by field name. Reference
// fields go through label; the identifier is available as "id".
func Values(ent entity.Entity, rec record.Record, label LabelFunc) map[string]any {
	if label == nil {
		label = ReferenceText
	}
	values := make(map[string]any, len(ent.Fields)+1)
	values["id"] = rec.ID()
	for _, field := range ent.Fields {
		if field.Relationship != nil {
			values[field.Name] = label(rec, field)
			continue
		}
		values[field.Name] = rec.Text(field.ReadPath())
	}
	return values
}

// Summary joins the non-empty field values, display field first.
func Summary(ent entity.Entity, values map[string]any) string {
	var parts []string
	if ent.DisplayField != "" {
		if text := record.Stringify(values[ent.DisplayField]); text != "" {
			parts = append(parts, text)
		}
	}
	for _, field := range ent.Fields {
		if field.Name == ent.DisplayField {
			continue
		}
		if text := record.Stringify(values[field.Name]); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return record.Stringify(values["id"])
	}
	return strings.Join(parts, " - ")
}

// ReferenceText labels a reference without a resolver: the embedded
// object's label field, then its identifier, then "No <Singular>".
func ReferenceText(rec record.Record, field entity.Field) string {
	ref, ok := rec.Lookup(field.ReadPath())
	if !ok {
		ref = rec[field.Name]
	}
	var obj record.Record
	switch v := ref.(type) {
	case record.Record:
		obj = v
	case map[string]any:
		obj = v
	}
	if obj != nil {
		path := "name"
		if field.Relationship != nil && field.Relationship.LabelField != "" {
			path = field.Relationship.LabelField
		}
		if text := obj.Text(path); text != "" {
			return text
		}
	}
	if id := resolver.FromReference(ref); id != "" {
		return id
	}
	target := ""
	if field.Relationship != nil {
		target = field.Relationship.Target
	}
	return "No " + entity.SingularLabel(target)
}

func fieldLabel(field entity.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return entity.DefaultLabeler(field.Name)
}
