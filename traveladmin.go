package traveladmin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/client"
	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/form"
	"github.com/goliatone/go-travel-admin/pkg/resolver"
	"github.com/goliatone/go-travel-admin/pkg/view"
)

// ErrUnknownScreen is returned for entity names the catalog does not define.
var ErrUnknownScreen = errors.New("traveladmin: unknown screen")

// App ties the entity catalog to an API client and builds screens on demand.
// It satisfies tui.App.
type App struct {
	api     *client.API
	catalog *entity.Catalog
	logger  logrus.FieldLogger
}

// Option configures an App.
type Option func(*App)

// WithCatalog replaces the embedded travel catalog.
func WithCatalog(catalog *entity.Catalog) Option {
	return func(a *App) {
		if catalog != nil {
			a.catalog = catalog
		}
	}
}

// WithLogger sets the logger handed to every screen.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New builds an App over api. Without WithCatalog the embedded travel API
// document is loaded.
func New(ctx context.Context, api *client.API, opts ...Option) (*App, error) {
	if api == nil {
		return nil, errors.New("traveladmin: api client is required")
	}
	app := &App{api: api, logger: log.Logger}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.catalog == nil {
		catalog, err := entity.DefaultCatalog(ctx)
		if err != nil {
			return nil, err
		}
		app.catalog = catalog
	}
	return app, nil
}

// Catalog returns the entity definitions in use.
func (a *App) Catalog() *entity.Catalog { return a.catalog }

// Welcome fetches the home greeting.
func (a *App) Welcome(ctx context.Context) (string, error) {
	return a.api.Welcome(ctx)
}

// Entities lists the screens in catalog order.
func (a *App) Entities() []entity.Entity {
	return a.catalog.Entities()
}

// Screen builds a fresh controller for the named entity.
func (a *App) Screen(name string) (*form.Controller, error) {
	return NewScreen(a.api, a.catalog, name, form.WithLogger(a.logger))
}

// NewScreen builds the controller of one entity with a resolver for each of
// its reference fields. Every resolver lists its options through api.
func NewScreen(api *client.API, catalog *entity.Catalog, name string, opts ...form.Option) (*form.Controller, error) {
	ent, ok := catalog.Entity(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScreen, name)
	}

	screenOpts := make([]form.Option, 0, len(ent.Fields)+len(opts))
	for _, field := range ent.ReferenceFields() {
		target, ok := catalog.Entity(field.Relationship.Target)
		if !ok {
			return nil, fmt.Errorf("traveladmin: %s.%s references unknown entity %q", ent.Name, field.Name, field.Relationship.Target)
		}
		res, err := resolver.New(field, target, api.Resource(target.Name))
		if err != nil {
			return nil, fmt.Errorf("traveladmin: %s.%s: %w", ent.Name, field.Name, err)
		}
		screenOpts = append(screenOpts, form.WithResolver(res))
	}
	screenOpts = append(screenOpts, opts...)

	return form.New(ent, api.Resource(ent.Name), screenOpts...)
}

// TemplatesFS exposes the bundled screen templates so callers can copy and
// override them.
func TemplatesFS() fs.FS {
	return view.Templates()
}
