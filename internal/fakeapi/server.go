// Package fakeapi is an in-memory implementation of the travel REST API used
// for development and tests. Collections, payload rules and relations are
// derived from an entity catalog.
package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/entity"
)

// DefaultGreeting is served at GET /.
const DefaultGreeting = "Welcome to the Travel API!"

type failure struct {
	status  int
	message string
}

// Server holds the collections and serves them over HTTP.
type Server struct {
	mu       sync.RWMutex
	catalog  *entity.Catalog
	tables   map[string]*table
	schemas  map[string]*gojsonschema.Schema
	failures map[string]failure
	greeting string
	prefix   string
	logger   logrus.FieldLogger
}

// Option configures a Server.
type Option func(*Server)

// WithGreeting overrides the text served at GET /.
func WithGreeting(text string) Option {
	return func(s *Server) {
		s.greeting = text
	}
}

// WithLogger routes access logs to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAPIPrefix mounts the collections under prefix instead of "/api".
// An empty or "/" prefix mounts them at the root.
func WithAPIPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
		if s.prefix == "/" {
			s.prefix = ""
		}
	}
}

// New builds an empty server for every entity in catalog.
func New(catalog *entity.Catalog, opts ...Option) (*Server, error) {
	if catalog == nil || len(catalog.Names()) == 0 {
		return nil, errors.New("fakeapi: catalog is empty")
	}
	schemas, err := compileSchemas(catalog)
	if err != nil {
		return nil, err
	}
	s := &Server{
		catalog:  catalog,
		tables:   make(map[string]*table),
		schemas:  schemas,
		failures: make(map[string]failure),
		greeting: DefaultGreeting,
		prefix:   entity.DefaultAPIPrefix,
		logger:   log.Logger,
	}
	for _, ent := range catalog.Entities() {
		s.tables[ent.Name] = newTable(ent)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Handler returns the chi router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/", s.welcome)
	r.Route(s.prefix+"/{entity}", func(r chi.Router) {
		r.Use(s.injectFailures)
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/{id}", s.get)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.remove)
		r.Get("/{id}/{relation}", s.related)
	})
	return r
}

// Insert stores a record directly, bypassing HTTP, and returns its id.
func (s *Server) Insert(name string, payload map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl, ok := s.tables[name]
	if !ok {
		return 0, fmt.Errorf("fakeapi: unknown collection %q", name)
	}
	return s.insertLocked(tbl, payload)
}

// Link relates child to parent through relation, e.g.
// Link("airports", 1, "aircraft", 3).
func (s *Server) Link(name string, parent int64, relation string, child int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("fakeapi: unknown collection %q", name)
	}
	if _, ok := tbl.entity.Relation(relation); !ok {
		return fmt.Errorf("fakeapi: %s has no relation %q", name, relation)
	}
	if row, _ := tbl.find(parent); row == nil {
		return fmt.Errorf("fakeapi: %s %d not found", name, parent)
	}
	if tbl.links[relation] == nil {
		tbl.links[relation] = make(map[int64][]int64)
	}
	tbl.links[relation][parent] = append(tbl.links[relation][parent], child)
	return nil
}

// Records returns the rendered contents of a collection.
func (s *Server) Records(name string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tbl, ok := s.tables[name]
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(tbl.rows))
	for _, r := range tbl.rows {
		out = append(out, s.renderLocked(tbl, r))
	}
	return out
}

// Fail makes every request to collection name answer with status until
// Recover is called.
func (s *Server) Fail(name string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = failure{status: status, message: message}
}

// Recover clears a failure installed with Fail.
func (s *Server) Recover(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, name)
}

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.greeting))
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}
	s.mu.RLock()
	out := make([]map[string]any, 0, len(tbl.rows))
	for _, row := range tbl.rows {
		out = append(out, s.renderLocked(tbl, row))
	}
	s.mu.RUnlock()
	render.JSON(w, r, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, _ := tbl.find(id)
	if row == nil {
		respondErrors(w, r, http.StatusNotFound, notFound(tbl, id))
		return
	}
	render.JSON(w, r, s.renderLocked(tbl, row))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}
	payload, ok := s.decodePayload(w, r, tbl)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.insertLocked(tbl, payload)
	if err != nil {
		respondErrors(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	row, _ := tbl.find(id)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, s.renderLocked(tbl, row))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	payload, ok := s.decodePayload(w, r, tbl)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, _ := tbl.find(id)
	if row == nil {
		respondErrors(w, r, http.StatusNotFound, notFound(tbl, id))
		return
	}
	values, refs, err := s.coerceLocked(tbl, payload)
	if err != nil {
		respondErrors(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	row.values = values
	row.refs = refs
	render.JSON(w, r, s.renderLocked(tbl, row))
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, idx := tbl.find(id)
	if idx < 0 {
		respondErrors(w, r, http.StatusNotFound, notFound(tbl, id))
		return
	}
	tbl.rows = append(tbl.rows[:idx], tbl.rows[idx+1:]...)
	for _, links := range tbl.links {
		delete(links, id)
	}
	render.NoContent(w, r)
}

func (s *Server) related(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "relation")
	rel, ok := tbl.entity.Relation(name)
	if !ok {
		respondErrors(w, r, http.StatusNotFound, fmt.Sprintf("%s has no relation %q", tbl.entity.Name, name))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, _ := tbl.find(id); row == nil {
		respondErrors(w, r, http.StatusNotFound, notFound(tbl, id))
		return
	}
	out := []map[string]any{}
	target, ok := s.tables[rel.Target]
	if ok {
		for _, childID := range tbl.links[name][id] {
			if child, _ := target.find(childID); child != nil {
				out = append(out, s.renderLocked(target, child))
			}
		}
	}
	render.JSON(w, r, out)
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) (*table, bool) {
	name := chi.URLParam(r, "entity")
	tbl, ok := s.tables[name]
	if !ok {
		respondErrors(w, r, http.StatusNotFound, fmt.Sprintf("unknown collection %q", name))
		return nil, false
	}
	return tbl, true
}

func (s *Server) decodePayload(w http.ResponseWriter, r *http.Request, tbl *table) (map[string]any, bool) {
	var payload map[string]any
	if err := render.DecodeJSON(r.Body, &payload); err != nil || payload == nil {
		respondErrors(w, r, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}
	errs, err := validatePayload(s.schemas[tbl.entity.Name], payload)
	if err != nil {
		respondErrors(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(errs) > 0 {
		respondErrors(w, r, http.StatusUnprocessableEntity, errs...)
		return nil, false
	}
	return payload, true
}

func (s *Server) insertLocked(tbl *table, payload map[string]any) (int64, error) {
	values, refs, err := s.coerceLocked(tbl, payload)
	if err != nil {
		return 0, err
	}
	id := tbl.nextID
	tbl.nextID++
	tbl.rows = append(tbl.rows, &row{id: id, values: values, refs: refs})
	return id, nil
}

// coerceLocked converts the payload and checks that every referenced record
// exists.
func (s *Server) coerceLocked(tbl *table, payload map[string]any) (map[string]any, map[string]int64, error) {
	values, refs, err := coerce(tbl.entity, payload)
	if err != nil {
		return nil, nil, err
	}
	for _, field := range tbl.entity.ReferenceFields() {
		refID, ok := refs[field.ReadPath()]
		if !ok {
			continue
		}
		target, ok := s.tables[field.Relationship.Target]
		if !ok {
			continue
		}
		if row, _ := target.find(refID); row == nil {
			return nil, nil, fmt.Errorf("%s: %s %d does not exist", field.Name, target.entity.Singular, refID)
		}
	}
	return values, refs, nil
}

// renderLocked produces the response shape: stored values, the id, and each
// reference embedded as the full target object (null once it is deleted).
func (s *Server) renderLocked(tbl *table, r *row) map[string]any {
	out := make(map[string]any, len(r.values)+len(r.refs)+1)
	out["id"] = r.id
	for k, v := range r.values {
		out[k] = v
	}
	for path, refID := range r.refs {
		out[path] = nil
		for _, field := range tbl.entity.ReferenceFields() {
			if field.ReadPath() != path {
				continue
			}
			if target, ok := s.tables[field.Relationship.Target]; ok {
				if child, _ := target.find(refID); child != nil {
					out[path] = s.renderLocked(target, child)
				}
			}
		}
	}
	return out
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		f, ok := s.failures[chi.URLParam(r, "entity")]
		s.mu.RUnlock()
		if ok {
			respondErrors(w, r, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"request_id": middleware.GetReqID(r.Context()),
			"duration":   time.Since(started).String(),
		}).Debug("fakeapi request")
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondErrors(w, r, http.StatusNotFound, fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func notFound(tbl *table, id int64) string {
	return fmt.Sprintf("%s %d not found", tbl.entity.Singular, id)
}

func respondErrors(w http.ResponseWriter, r *http.Request, status int, messages ...string) {
	sort.Strings(messages)
	render.Status(r, status)
	render.JSON(w, r, map[string]any{"errors": messages})
}
