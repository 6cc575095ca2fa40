package form

import "errors"

// Phase is the lifecycle state of a screen.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseListing Phase = "listing"
	PhaseReady   Phase = "ready"
	PhaseClosed  Phase = "closed"
)

// Mode tells whether the Draft creates a new record or edits an existing one.
type Mode string

const (
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

var (
	// ErrNotReady is returned by operations that need an activated screen.
	ErrNotReady = errors.New("form: screen is not ready")
	// ErrUnknownField is returned when a field name is not declared.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrNotNumeric is returned when numeric input contains other characters.
	ErrNotNumeric = errors.New("form: value must be numeric")
	// ErrUnknownRelation is returned for relations the entity does not expose.
	ErrUnknownRelation = errors.New("form: unknown relation")
	// ErrNoDetails is returned when the entity has no details view.
	ErrNoDetails = errors.New("form: entity has no details view")
	// ErrMissingID is returned when a record without identifier is edited.
	ErrMissingID = errors.New("form: record has no identifier")
)

// Draft is a snapshot of the in-progress form. Values are the raw input
// strings keyed by field name; TargetID is set only in edit mode.
type Draft struct {
	Mode     Mode
	TargetID string
	Values   map[string]string
}

// Value returns the input for one field.
func (d Draft) Value(name string) string {
	return d.Values[name]
}

func cloneValues(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
