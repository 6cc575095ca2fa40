package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/client"
	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/record"
	"github.com/goliatone/go-travel-admin/pkg/resolver"
)

// Resource is the client surface the controller drives. *client.Client
// satisfies it.
type Resource interface {
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id string) (record.Record, error)
	Create(ctx context.Context, payload map[string]any) (record.Record, error)
	Update(ctx context.Context, id string, payload map[string]any) (record.Record, error)
	Delete(ctx context.Context, id string) error
	ListRelated(ctx context.Context, id, relation string) ([]record.Record, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithResolver attaches the resolver serving one reference field.
func WithResolver(res *resolver.Resolver) Option {
	return func(c *Controller) {
		if res != nil {
			c.resolvers[res.Field().Name] = res
		}
	}
}

// WithLogger routes diagnostic traces to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller owns one screen: its Collection, its Draft and its messages.
// Every failure is converted to a display string and kept as the screen's
// current error; operations also return it.
type Controller struct {
	entity    entity.Entity
	resource  Resource
	resolvers map[string]*resolver.Resolver
	logger    logrus.FieldLogger

	mu          sync.Mutex
	phase       Phase
	mode        Mode
	target      string
	draft       map[string]string
	collection  *record.Collection
	lastError   string
	lastSuccess string
	optionErrs  map[string]string
}

// New builds an idle controller for ent.
func New(ent entity.Entity, resource Resource, opts ...Option) (*Controller, error) {
	if resource == nil {
		return nil, errors.New("form: resource client is required")
	}
	if len(ent.Fields) == 0 {
		return nil, fmt.Errorf("form: entity %q declares no fields", ent.Name)
	}
	c := &Controller{
		entity:    ent,
		resource:  resource,
		resolvers: make(map[string]*resolver.Resolver),
		logger:    log.Logger,
		phase:     PhaseIdle,
		mode:      ModeCreating,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	for name := range c.resolvers {
		field, ok := ent.Field(name)
		if !ok || field.Relationship == nil {
			return nil, fmt.Errorf("form: resolver bound to %q which is not a reference field of %s", name, ent.Name)
		}
	}
	return c, nil
}

// Entity returns the definition the controller was built for.
func (c *Controller) Entity() entity.Entity { return c.entity }

// Resolver returns the resolver of a reference field, if any.
func (c *Controller) Resolver(field string) (*resolver.Resolver, bool) {
	res, ok := c.resolvers[field]
	return res, ok
}

// Activate lists the primary collection and every option collection
// concurrently. The fetches fail independently: a failed option list never
// prevents the primary collection from loading. The returned error is the
// primary list failure, if any.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	c.phase = PhaseListing
	c.collection = nil
	c.lastError = ""
	c.lastSuccess = ""
	c.optionErrs = make(map[string]string)
	c.resetDraftLocked()
	c.mu.Unlock()

	fields := c.orderedResolverFields()
	optErrs := make([]error, len(fields))
	var (
		g       errgroup.Group
		records []record.Record
		listErr error
	)
	g.Go(func() error {
		records, listErr = c.resource.List(ctx)
		return nil
	})
	for i, name := range fields {
		i := i
		res := c.resolvers[name]
		g.Go(func() error {
			_, optErrs[i] = res.ListOptions(ctx)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.collection = record.NewCollection(records)
	c.phase = PhaseReady

	for i, err := range optErrs {
		if err == nil {
			continue
		}
		res := c.resolvers[fields[i]]
		msg := c.describe(fmt.Sprintf("Error fetching %s data", strings.ToLower(res.Target().Singular)), err)
		c.optionErrs[fields[i]] = msg
		c.recordErrorLocked(msg, err)
	}
	if listErr != nil {
		c.recordErrorLocked(c.describe(fmt.Sprintf("Error fetching %s data", c.noun()), listErr), listErr)
		return listErr
	}
	return nil
}

// Deactivate destroys the Collection and Draft. A later Activate re-fetches.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseClosed
	c.collection = nil
	c.draft = nil
	c.target = ""
	c.mode = ModeCreating
	c.lastError = ""
	c.lastSuccess = ""
	c.optionErrs = nil
	for _, res := range c.resolvers {
		res.Reset()
	}
}

// BeginCreate resets the Draft to empty values in create mode.
func (c *Controller) BeginCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetDraftLocked()
}

// BeginEdit copies rec into the Draft and binds it to rec's identifier.
// Reference fields take the identifier of the embedded object found at the
// relationship source path, e.g. city.id becomes cityId.
func (c *Controller) BeginEdit(rec record.Record) error {
	id := rec.ID()
	if id == "" {
		return ErrMissingID
	}

	values := make(map[string]string, len(c.entity.Fields))
	for _, field := range c.entity.Fields {
		if field.Relationship != nil {
			ref, ok := rec.Lookup(field.ReadPath())
			if !ok {
				ref = rec[field.Name]
			}
			values[field.Name] = resolver.FromReference(ref)
			continue
		}
		values[field.Name] = record.Stringify(rec[field.Name])
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeEditing
	c.target = id
	c.draft = values
	return nil
}

// Set writes raw input into the Draft. Numeric fields reject text that does
// not parse as a number and leave the Draft unchanged. Reference fields take
// an identifier, or "" for no selection.
func (c *Controller) Set(name, raw string) error {
	field, ok := c.entity.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if err := CheckInput(field, raw); err != nil {
		return err
	}
	value := raw
	if field.Type.Numeric() || field.Type == entity.FieldTypeReference {
		value = strings.TrimSpace(raw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		c.draft = make(map[string]string, len(c.entity.Fields))
	}
	c.draft[name] = value
	return nil
}

// CheckInput reports whether raw is acceptable input for field. Empty input
// is always accepted; required fields are checked on Submit.
func CheckInput(field entity.Field, raw string) error {
	value := strings.TrimSpace(raw)
	if field.Type.Numeric() && value != "" && !isNumeric(field.Type, value) {
		return fmt.Errorf("%w: %s", ErrNotNumeric, field.Label)
	}
	return nil
}

// Draft returns a snapshot of the form state.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Draft{Mode: c.mode, TargetID: c.target, Values: cloneValues(c.draft)}
}

// Payload returns the request body the current Draft would submit.
func (c *Controller) Payload() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloadLocked()
}

// Submit creates or updates depending on the mode. All required fields must
// be filled in; otherwise a validation error is recorded and no request is
// sent. On success the server's record is appended (create) or replaces the
// entry with the target identifier (update) and the Draft resets to create
// mode. On failure the Collection and the Draft are left as they were.
func (c *Controller) Submit(ctx context.Context) (record.Record, error) {
	c.mu.Lock()
	if c.phase != PhaseReady {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	mode, target := c.mode, c.target
	op := "create"
	if mode == ModeEditing {
		op = "update"
	}
	if err := c.validateLocked(op); err != nil {
		c.recordErrorLocked(c.describe("Error saving "+c.noun(), err), err)
		c.mu.Unlock()
		return nil, err
	}
	payload := c.payloadLocked()
	c.mu.Unlock()

	var (
		rec record.Record
		err error
	)
	if mode == ModeEditing {
		rec, err = c.resource.Update(ctx, target, payload)
	} else {
		rec, err = c.resource.Create(ctx, payload)
	}

	if err == nil && !rec.HasID() {
		err = &client.Error{
			Kind:     client.KindServer,
			Op:       op,
			Resource: c.entity.Name,
			ID:       target,
			Err:      client.ErrMissingResponseID,
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.recordErrorLocked(c.describe("Error saving "+c.noun(), err), err)
		return nil, err
	}

	if c.collection != nil {
		if mode == ModeEditing {
			c.collection.Replace(target, rec)
		} else {
			c.collection.Append(rec)
		}
	}
	if mode == ModeEditing {
		c.recordSuccessLocked(c.entity.Singular + " updated successfully!")
	} else {
		c.recordSuccessLocked(c.entity.Singular + " added successfully!")
	}
	if c.mode == mode && c.target == target {
		c.resetDraftLocked()
	}
	return rec.Clone(), nil
}

// Remove deletes the record and drops it from the Collection once the server
// confirms. A Draft editing the same record returns to create mode.
func (c *Controller) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.phase != PhaseReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.mu.Unlock()

	err := c.resource.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.recordErrorLocked(c.describe("Error deleting "+c.noun(), err), err)
		return err
	}
	if c.collection != nil {
		c.collection.Remove(id)
	}
	if c.mode == ModeEditing && c.target == id {
		c.resetDraftLocked()
	}
	c.recordSuccessLocked(c.entity.Singular + " deleted successfully!")
	return nil
}

// Related lists a sub-collection of one record. An empty result is not an
// error.
func (c *Controller) Related(ctx context.Context, id, relation string) ([]record.Record, error) {
	rel, ok := c.entity.Relation(relation)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRelation, relation)
	}
	records, err := c.resource.ListRelated(ctx, id, rel.Name)
	if err != nil {
		c.mu.Lock()
		c.recordErrorLocked(c.describe("Error fetching "+strings.ToLower(rel.Label), err), err)
		c.mu.Unlock()
		return nil, err
	}
	return records, nil
}

// Details fetches one record for the details view.
func (c *Controller) Details(ctx context.Context, id string) (record.Record, error) {
	if !c.entity.Details {
		return nil, ErrNoDetails
	}
	rec, err := c.resource.Get(ctx, id)
	if err != nil {
		c.mu.Lock()
		c.recordErrorLocked(c.describe(fmt.Sprintf("Error fetching %s details", c.noun()), err), err)
		c.mu.Unlock()
		return nil, err
	}
	return rec, nil
}

// Phase returns the lifecycle state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Mode returns the Draft mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Records returns a copy of the Collection, or nil before activation.
func (c *Controller) Records() []record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collection == nil {
		return nil
	}
	return c.collection.Records()
}

// Find returns the Collection entry with the given identifier.
func (c *Controller) Find(id string) (record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collection == nil {
		return nil, false
	}
	return c.collection.Find(id)
}

// LastError returns the current error message, or "".
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// LastSuccess returns the current success message, or "".
func (c *Controller) LastSuccess() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}

// OptionError returns the failure recorded while listing the options of a
// reference field.
func (c *Controller) OptionError(field string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.optionErrs[field]
}

// ReferenceLabel renders the value of a reference field of rec for display.
func (c *Controller) ReferenceLabel(rec record.Record, field entity.Field) string {
	ref, ok := rec.Lookup(field.ReadPath())
	if !ok {
		ref = rec[field.Name]
	}
	if res, ok := c.resolvers[field.Name]; ok {
		return res.Label(ref)
	}
	if id := resolver.FromReference(ref); id != "" {
		return id
	}
	return "No " + entity.SingularLabel(field.Relationship.Target)
}

func (c *Controller) resetDraftLocked() {
	c.mode = ModeCreating
	c.target = ""
	c.draft = make(map[string]string, len(c.entity.Fields))
	for _, field := range c.entity.Fields {
		c.draft[field.Name] = ""
	}
}

func (c *Controller) validateLocked(op string) error {
	fields := make(map[string][]string)
	var messages []string
	for _, field := range c.entity.Fields {
		value := strings.TrimSpace(c.draft[field.Name])
		if field.Required && value == "" {
			fields[field.Name] = append(fields[field.Name], "is required")
			messages = append(messages, field.Label+" is required")
			continue
		}
		if field.Type.Numeric() && value != "" && !isNumeric(field.Type, value) {
			fields[field.Name] = append(fields[field.Name], "must be numeric")
			messages = append(messages, field.Label+" must be numeric")
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &client.Error{
		Kind:     client.KindValidation,
		Op:       op,
		Resource: c.entity.Name,
		Messages: messages,
		Fields:   fields,
	}
}

func (c *Controller) payloadLocked() map[string]any {
	payload := make(map[string]any, len(c.entity.Fields))
	for _, field := range c.entity.Fields {
		value := c.draft[field.Name]
		switch {
		case field.Type == entity.FieldTypeReference:
			id := strings.TrimSpace(value)
			if id == "" {
				payload[field.Name] = nil
				continue
			}
			payload[field.Name] = numberOrString(id)
		case field.Type.Numeric():
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			payload[field.Name] = numberOrString(trimmed)
		default:
			payload[field.Name] = value
		}
	}
	return payload
}

func (c *Controller) recordErrorLocked(msg string, err error) {
	c.lastError = msg
	c.lastSuccess = ""
	c.logger.WithFields(logrus.Fields{
		"entity": c.entity.Name,
		"kind":   string(client.KindOf(err)),
	}).WithError(err).Debug(msg)
}

func (c *Controller) recordSuccessLocked(msg string) {
	c.lastSuccess = msg
	c.lastError = ""
}

// describe turns a failure into the text shown on screen.
func (c *Controller) describe(action string, err error) string {
	if client.KindOf(err) == client.KindNotFound {
		return fmt.Sprintf("%s not found: it may have been deleted already", c.entity.Singular)
	}
	var ce *client.Error
	detail := ""
	if errors.As(err, &ce) {
		detail = ce.Detail()
	} else if err != nil {
		detail = err.Error()
	}
	if detail == "" {
		return action + "."
	}
	return action + ": " + detail
}

func (c *Controller) noun() string {
	return strings.ToLower(c.entity.Singular)
}

func (c *Controller) orderedResolverFields() []string {
	var out []string
	for _, field := range c.entity.ReferenceFields() {
		if _, ok := c.resolvers[field.Name]; ok {
			out = append(out, field.Name)
		}
	}
	return out
}

var (
	numberPattern  = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
	integerPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
)

func isNumeric(kind entity.FieldType, value string) bool {
	if kind == entity.FieldTypeInteger {
		return integerPattern.MatchString(value)
	}
	return numberPattern.MatchString(value)
}

// numberOrString keeps numeric text as a JSON number so it round-trips
// unchanged; anything else is sent as a string.
func numberOrString(value string) any {
	if numberPattern.MatchString(value) {
		return json.Number(value)
	}
	return value
}
