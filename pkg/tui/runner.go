package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/form"
	"github.com/goliatone/go-travel-admin/pkg/record"
	"github.com/goliatone/go-travel-admin/pkg/view"
)

// App is what the home menu needs from the application.
type App interface {
	Welcome(ctx context.Context) (string, error)
	Entities() []entity.Entity
	Screen(name string) (*form.Controller, error)
}

// Runner drives screens through a PromptDriver.
type Runner struct {
	driver  PromptDriver
	engine  *view.Engine
	catalog *entity.Catalog
	out     io.Writer
	logger  logrus.FieldLogger
}

// New builds a Runner. Without WithPromptDriver it talks to the terminal
// through survey.
func New(opts ...Option) (*Runner, error) {
	r := &Runner{logger: log.Logger}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(r.out)
	}
	if r.engine == nil {
		engine, err := view.New()
		if err != nil {
			return nil, fmt.Errorf("tui: template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// Home shows the greeting and a menu of screens until the user quits.
func (r *Runner) Home(ctx context.Context, app App) error {
	entities := app.Entities()
	if len(entities) == 0 {
		return ErrNoScreens
	}
	if r.catalog == nil {
		r.catalog = entity.NewCatalog(entities...)
	}

	greeting, err := app.Welcome(ctx)
	if err != nil {
		r.logger.WithError(err).Debug("welcome request failed")
		greeting = "Unable to reach the travel API: " + err.Error()
	}
	page, err := r.engine.Home(greeting, entities)
	if err != nil {
		return err
	}

	options := make([]string, 0, len(entities)+1)
	for _, ent := range entities {
		options = append(options, ent.Singular)
	}
	options = append(options, "Quit")

	for {
		if err := r.driver.Info(ctx, page); err != nil {
			return err
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: "Open screen", Options: options})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(entities) {
			return nil
		}

		ctrl, err := app.Screen(entities[idx].Name)
		if err != nil {
			if err := r.driver.Info(ctx, err.Error()); err != nil {
				return err
			}
			continue
		}
		if err := r.Screen(ctx, ctrl); err != nil {
			return err
		}
	}
}

// Screen activates ctrl and loops over its actions until the user goes back.
// Failed API calls are shown on the next render; only prompt errors end the
// loop. The screen is deactivated on return.
func (r *Runner) Screen(ctx context.Context, ctrl *form.Controller) error {
	defer ctrl.Deactivate()
	r.activate(ctx, ctrl)

	for {
		page, err := r.engine.Screen(ctrl)
		if err != nil {
			return err
		}
		if err := r.driver.Info(ctx, page); err != nil {
			return err
		}

		actions := r.actions(ctrl)
		labels := make([]string, len(actions))
		for i, act := range actions {
			labels[i] = act.label
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: "Choose an action", Options: labels})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(actions) {
			return nil
		}
		act := actions[idx]
		if act.back {
			return nil
		}
		if err := act.run(ctx); err != nil {
			return err
		}
	}
}

type action struct {
	label string
	back  bool
	run   func(ctx context.Context) error
}

func (r *Runner) actions(ctrl *form.Controller) []action {
	ent := ctrl.Entity()
	hasRecords := len(ctrl.Records()) > 0

	actions := []action{{
		label: "Add " + ent.Singular,
		run: func(ctx context.Context) error {
			ctrl.BeginCreate()
			return r.edit(ctx, ctrl)
		},
	}}

	if hasRecords {
		actions = append(actions,
			action{
				label: "Edit " + ent.Singular,
				run: func(ctx context.Context) error {
					return r.withRecord(ctx, ctrl, "Edit which "+ent.Singular+"?", func(rec record.Record) error {
						if err := ctrl.BeginEdit(rec); err != nil {
							return r.driver.Info(ctx, err.Error())
						}
						return r.edit(ctx, ctrl)
					})
				},
			},
			action{
				label: "Delete " + ent.Singular,
				run: func(ctx context.Context) error {
					return r.withRecord(ctx, ctrl, "Delete which "+ent.Singular+"?", func(rec record.Record) error {
						return r.remove(ctx, ctrl, rec)
					})
				},
			},
		)
		for _, rel := range ent.Relations {
			rel := rel
			actions = append(actions, action{
				label: "View " + rel.Label,
				run: func(ctx context.Context) error {
					return r.withRecord(ctx, ctrl, "View "+rel.Label+" of which "+ent.Singular+"?", func(rec record.Record) error {
						return r.related(ctx, ctrl, rel, rec)
					})
				},
			})
		}
		if ent.Details {
			actions = append(actions, action{
				label: "View Details",
				run: func(ctx context.Context) error {
					return r.withRecord(ctx, ctrl, "Details of which "+ent.Singular+"?", func(rec record.Record) error {
						return r.details(ctx, ctrl, rec)
					})
				},
			})
		}
	}

	actions = append(actions,
		action{
			label: "Refresh",
			run: func(ctx context.Context) error {
				r.activate(ctx, ctrl)
				return nil
			},
		},
		action{label: "Back", back: true},
	)
	return actions
}

func (r *Runner) activate(ctx context.Context, ctrl *form.Controller) {
	if err := ctrl.Activate(ctx); err != nil {
		r.logger.WithError(err).WithField("entity", ctrl.Entity().Name).Debug("activate failed")
	}
}

// withRecord asks the user to pick one record of the Collection and passes
// it to fn. Choosing Cancel does nothing.
func (r *Runner) withRecord(ctx context.Context, ctrl *form.Controller, message string, fn func(record.Record) error) error {
	records := ctrl.Records()
	options := make([]string, 0, len(records)+1)
	for _, rec := range records {
		line, err := r.engine.Row(ctrl.Entity(), rec, ctrl.ReferenceLabel)
		if err != nil {
			return err
		}
		options = append(options, line)
	}
	options = append(options, "Cancel")

	idx, err := r.driver.Select(ctx, SelectConfig{Message: message, Options: options})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(records) {
		return nil
	}
	return fn(records[idx])
}

// edit prompts for every field of the Draft, then submits it.
func (r *Runner) edit(ctx context.Context, ctrl *form.Controller) error {
	ent := ctrl.Entity()
	draft := ctrl.Draft()

	for _, field := range ent.Fields {
		value, err := r.promptField(ctx, ctrl, field, draft.Value(field.Name))
		if err != nil {
			return err
		}
		if err := ctrl.Set(field.Name, value); err != nil {
			if err := r.driver.Info(ctx, err.Error()); err != nil {
				return err
			}
		}
	}

	if _, err := ctrl.Submit(ctx); err != nil {
		r.logger.WithError(err).WithField("entity", ent.Name).Debug("submit failed")
	}
	return nil
}

func (r *Runner) promptField(ctx context.Context, ctrl *form.Controller, field entity.Field, current string) (string, error) {
	if field.Type == entity.FieldTypeReference {
		if res, ok := ctrl.Resolver(field.Name); ok {
			if msg := ctrl.OptionError(field.Name); msg != "" {
				if err := r.driver.Info(ctx, msg); err != nil {
					return "", err
				}
			}
			choices := res.Choices()
			options := make([]string, 0, len(choices)+1)
			options = append(options, "Select a "+res.Target().Singular)
			selected := 0
			for i, choice := range choices {
				options = append(options, choice.Label)
				if choice.Value == current {
					selected = i + 1
				}
			}
			idx, err := r.driver.Select(ctx, SelectConfig{
				Message:      field.Label,
				Options:      options,
				DefaultIndex: selected,
			})
			if err != nil {
				return "", err
			}
			if idx <= 0 || idx > len(choices) {
				return "", nil
			}
			return choices[idx-1].Value, nil
		}
	}

	cfg := InputConfig{
		Message: field.Label,
		Default: current,
		Help:    field.Placeholder,
	}
	if field.Type.Numeric() {
		cfg.Validator = func(raw string) error {
			return form.CheckInput(field, raw)
		}
	}
	return r.driver.Input(ctx, cfg)
}

func (r *Runner) remove(ctx context.Context, ctrl *form.Controller, rec record.Record) error {
	line, err := r.engine.Row(ctrl.Entity(), rec, ctrl.ReferenceLabel)
	if err != nil {
		return err
	}
	ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Delete " + line + "?"})
	if err != nil || !ok {
		return err
	}
	if err := ctrl.Remove(ctx, rec.ID()); err != nil {
		r.logger.WithError(err).WithField("entity", ctrl.Entity().Name).Debug("delete failed")
	}
	return nil
}

func (r *Runner) related(ctx context.Context, ctrl *form.Controller, rel entity.Relation, rec record.Record) error {
	records, err := ctrl.Related(ctx, rec.ID(), rel.Name)
	if err != nil {
		if errors.Is(err, form.ErrUnknownRelation) {
			return r.driver.Info(ctx, err.Error())
		}
		return nil
	}
	target := entity.Entity{Name: rel.Target}
	if rel.Target == "" {
		target.Name = rel.Name
	}
	if resolved, ok := r.catalog.Entity(target.Name); ok {
		target = resolved
	}
	page, err := r.engine.Related(ctrl.Entity(), rel, target, records)
	if err != nil {
		return err
	}
	return r.driver.Info(ctx, page)
}

func (r *Runner) details(ctx context.Context, ctrl *form.Controller, rec record.Record) error {
	full, err := ctrl.Details(ctx, rec.ID())
	if err != nil {
		if errors.Is(err, form.ErrNoDetails) {
			return r.driver.Info(ctx, err.Error())
		}
		return nil
	}
	page, err := r.engine.Details(ctrl.Entity(), full, ctrl.ReferenceLabel)
	if err != nil {
		return err
	}
	return r.driver.Info(ctx, page)
}
