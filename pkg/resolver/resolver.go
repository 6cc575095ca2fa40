package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/record"
)

// Lister is the part of a resource client the resolver needs.
type Lister interface {
	List(ctx context.Context) ([]record.Record, error)
}

// Choice is one entry of a selection control.
type Choice struct {
	Label string
	Value string
}

// Resolver supplies the option collection for one reference field and
// converts between embedded objects and identifiers.
type Resolver struct {
	field  entity.Field
	target entity.Entity
	source Lister

	mu      sync.RWMutex
	options []record.Record
	loaded  bool
}

// New builds a resolver for a reference field. target describes the
// referenced collection and source lists it.
func New(field entity.Field, target entity.Entity, source Lister) (*Resolver, error) {
	if field.Relationship == nil {
		return nil, fmt.Errorf("resolver: field %q is not a reference", field.Name)
	}
	if source == nil {
		return nil, errors.New("resolver: option source is required")
	}
	return &Resolver{field: field, target: target, source: source}, nil
}

// Field returns the reference field this resolver serves.
func (r *Resolver) Field() entity.Field { return r.field }

// Target returns the referenced entity.
func (r *Resolver) Target() entity.Entity { return r.target }

// ListOptions fetches the option collection and keeps it for Choices and
// ToReference. On failure the previous options are discarded.
func (r *Resolver) ListOptions(ctx context.Context) ([]record.Record, error) {
	options, err := r.source.List(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.options = nil
		r.loaded = false
		return nil, err
	}
	r.options = options
	r.loaded = true
	return cloneAll(options), nil
}

// Loaded reports whether the last ListOptions call succeeded.
func (r *Resolver) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Options returns the last fetched option collection.
func (r *Resolver) Options() []record.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.options)
}

// Reset forgets the option collection.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = nil
	r.loaded = false
}

// Resolve looks id up in the stored option collection.
func (r *Resolver) Resolve(id string) record.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ToReference(id, r.options)
}

// Choices lists the options for a selection control, labelled by the
// relationship's label field.
func (r *Resolver) Choices() []Choice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Choice, 0, len(r.options))
	for _, opt := range r.options {
		value := opt.ID()
		if value == "" {
			continue
		}
		out = append(out, Choice{Label: r.labelFor(opt, value), Value: value})
	}
	return out
}

// Label returns the display text for a reference value (embedded object,
// bare identifier or nil). Missing references read "No <entity>".
func (r *Resolver) Label(ref any) string {
	if obj, ok := asRecord(ref); ok {
		if label := r.labelFor(obj, ""); label != "" {
			return label
		}
	}
	id := FromReference(ref)
	if id == "" {
		return r.Empty()
	}
	if opt := r.Resolve(id); opt != nil {
		return r.labelFor(opt, id)
	}
	return id
}

// Empty is the text shown when a record has no linked entity.
func (r *Resolver) Empty() string {
	name := strings.TrimSpace(r.target.Singular)
	if name == "" {
		name = entity.SingularLabel(r.field.Relationship.Target)
	}
	return "No " + name
}

func (r *Resolver) labelFor(rec record.Record, fallback string) string {
	path := r.field.Relationship.LabelField
	if path == "" {
		path = r.target.DisplayField
	}
	if path != "" {
		if label := rec.Text(path); label != "" {
			return label
		}
	}
	return fallback
}

// ToReference returns the option whose identifier equals id, or nil when id
// is empty or not present in options.
func ToReference(id string, options []record.Record) record.Record {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	for _, opt := range options {
		if opt.ID() == id {
			return opt.Clone()
		}
	}
	return nil
}

// FromReference extracts the identifier from an embedded object or a bare
// identifier. It returns "" when ref is nil or carries no identifier.
func FromReference(ref any) string {
	if ref == nil {
		return ""
	}
	if obj, ok := asRecord(ref); ok {
		return obj.ID()
	}
	return record.IDString(ref)
}

func asRecord(value any) (record.Record, bool) {
	switch typed := value.(type) {
	case record.Record:
		return typed, typed != nil
	case map[string]any:
		return record.Record(typed), typed != nil
	default:
		return nil, false
	}
}

func cloneAll(records []record.Record) []record.Record {
	if records == nil {
		return nil
	}
	out := make([]record.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}
