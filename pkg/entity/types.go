package entity

import "strings"

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInteger   FieldType = "integer"
	FieldTypeNumber    FieldType = "number"
	FieldTypeReference FieldType = "reference"
)

// Numeric reports whether values of this type must parse as numbers.
func (t FieldType) Numeric() bool {
	return t == FieldTypeInteger || t == FieldTypeNumber
}

// RelationshipKind enumerates the supported relationship semantics.
type RelationshipKind string

const (
	RelationshipBelongsTo RelationshipKind = "belongsTo"
	RelationshipHasOne    RelationshipKind = "hasOne"
	RelationshipHasMany   RelationshipKind = "hasMany"
)

// Relationship describes a field whose value points at a record in another
// collection. Target is the collection name of the referenced entity.
// SourceField is the path the embedded object is read from on responses
// (for example "city"), while the owning Field's Name is the key the
// identifier is written under on requests (for example "cityId").
type Relationship struct {
	Kind        RelationshipKind `json:"kind"`
	Target      string           `json:"target"`
	Cardinality string           `json:"cardinality,omitempty"`
	SourceField string           `json:"sourceField,omitempty"`
	LabelField  string           `json:"labelField,omitempty"`
}

// Field models a single editable attribute of an entity.
type Field struct {
	Name         string        `json:"name"`
	Label        string        `json:"label,omitempty"`
	Type         FieldType     `json:"type"`
	Required     bool          `json:"required"`
	Placeholder  string        `json:"placeholder,omitempty"`
	Description  string        `json:"description,omitempty"`
	Relationship *Relationship `json:"relationship,omitempty"`
}

// ReadPath returns the record path the field value is read from. Reference
// fields read their embedded object at the relationship source field.
func (f Field) ReadPath() string {
	if f.Relationship != nil && f.Relationship.SourceField != "" {
		return f.Relationship.SourceField
	}
	return f.Name
}

// Relation is a read-only sub-collection reachable from one record, served
// at GET /{prefix}/{entity}/{id}/{name}.
type Relation struct {
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Target string `json:"target,omitempty"`
}

// Entity is one CRUD resource exposed by the travel API.
type Entity struct {
	// Name is the collection path segment, e.g. "cities".
	Name string `json:"name"`
	// Singular is the human name of one record, e.g. "City".
	Singular string `json:"singular"`
	// Title is the screen heading, e.g. "City Management".
	Title        string     `json:"title"`
	DisplayField string     `json:"displayField,omitempty"`
	Fields       []Field    `json:"fields"`
	Relations    []Relation `json:"relations,omitempty"`
	// Details marks entities that expose GET /{entity}/{id}.
	Details bool `json:"details,omitempty"`
}

// Field returns the named field.
func (e Entity) Field(name string) (Field, bool) {
	for _, field := range e.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// ReferenceFields lists the fields that point at another collection.
func (e Entity) ReferenceFields() []Field {
	var out []Field
	for _, field := range e.Fields {
		if field.Relationship != nil {
			out = append(out, field)
		}
	}
	return out
}

// Relation returns the named sub-collection.
func (e Entity) Relation(name string) (Relation, bool) {
	for _, rel := range e.Relations {
		if rel.Name == name {
			return rel, true
		}
	}
	return Relation{}, false
}

// Plural returns the lower-case collection noun used in messages such as
// "No cities found.".
func (e Entity) Plural() string {
	return strings.ToLower(DefaultLabeler(e.Name))
}
