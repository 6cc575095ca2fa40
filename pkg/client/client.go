package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/record"
)

const (
	// DefaultBaseURL is where the travel API listens during development.
	DefaultBaseURL = "http://localhost:8084"
	// DefaultAPIPrefix is prepended to every collection path.
	DefaultAPIPrefix = "/api"
	// RequestIDHeader carries the per-request correlation identifier.
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// API is the root of the travel REST API. It hands out one Client per
// collection and serves the greeting at GET /.
type API struct {
	baseURL    *url.URL
	prefix     string
	httpClient *http.Client
	timeout    time.Duration
	logger     logrus.FieldLogger
	requestID  func() string
}

// Option configures an API.
type Option func(*API)

// WithHTTPClient overrides the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(a *API) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithTimeout bounds every request. Zero disables the per-request deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(a *API) {
		if timeout >= 0 {
			a.timeout = timeout
		}
	}
}

// WithLogger routes request traces to the given logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAPIPrefix changes the collection prefix (default "/api").
func WithAPIPrefix(prefix string) Option {
	return func(a *API) {
		a.prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
		if a.prefix == "/" {
			a.prefix = ""
		}
	}
}

// WithRequestIDFunc overrides how X-Request-ID values are generated.
func WithRequestIDFunc(fn func() string) Option {
	return func(a *API) {
		if fn != nil {
			a.requestID = fn
		}
	}
}

// NewAPI validates baseURL and applies options.
func NewAPI(baseURL string, opts ...Option) (*API, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", raw)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	api := &API{
		baseURL:    parsed,
		prefix:     DefaultAPIPrefix,
		httpClient: http.DefaultClient,
		timeout:    10 * time.Second,
		logger:     log.Logger,
		requestID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api, nil
}

// BaseURL returns the server root the API talks to.
func (a *API) BaseURL() string {
	return a.baseURL.String()
}

// Resource returns a client bound to one collection, e.g. "cities".
func (a *API) Resource(name string) *Client {
	return &Client{api: a, name: strings.Trim(strings.TrimSpace(name), "/")}
}

// Welcome fetches the greeting served at the API root.
func (a *API) Welcome(ctx context.Context) (string, error) {
	body, err := a.do(ctx, "welcome", "", "", http.MethodGet, "/", nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(body))
	var quoted string
	if err := json.Unmarshal(body, &quoted); err == nil {
		text = quoted
	}
	return sanitize(text), nil
}

// Client performs CRUD requests against one collection. It keeps no state
// between calls and caches nothing.
type Client struct {
	api  *API
	name string
}

// Name returns the collection path segment.
func (c *Client) Name() string { return c.name }

// List fetches the whole collection in server order.
func (c *Client) List(ctx context.Context) ([]record.Record, error) {
	return c.list(ctx, "list", "", c.collectionPath())
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, id string) (record.Record, error) {
	if err := c.requireID("get", id); err != nil {
		return nil, err
	}
	body, err := c.api.do(ctx, "get", c.name, id, http.MethodGet, c.itemPath(id), nil)
	if err != nil {
		return nil, err
	}
	return c.decodeRecord("get", id, body)
}

// Create posts a new record and returns the server's version of it,
// including the assigned identifier.
func (c *Client) Create(ctx context.Context, payload map[string]any) (record.Record, error) {
	body, err := c.api.do(ctx, "create", c.name, "", http.MethodPost, c.collectionPath(), payload)
	if err != nil {
		return nil, err
	}
	rec, err := c.decodeRecord("create", "", body)
	if err != nil {
		return nil, err
	}
	return c.requireResponseID("create", "", rec)
}

// Update replaces the record with the given identifier.
func (c *Client) Update(ctx context.Context, id string, payload map[string]any) (record.Record, error) {
	if err := c.requireID("update", id); err != nil {
		return nil, err
	}
	body, err := c.api.do(ctx, "update", c.name, id, http.MethodPut, c.itemPath(id), payload)
	if err != nil {
		return nil, err
	}
	rec, err := c.decodeRecord("update", id, body)
	if err != nil {
		return nil, err
	}
	return c.requireResponseID("update", id, rec)
}

// Delete removes the record. Deleting an identifier that no longer exists
// fails with ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.requireID("delete", id); err != nil {
		return err
	}
	_, err := c.api.do(ctx, "delete", c.name, id, http.MethodDelete, c.itemPath(id), nil)
	return err
}

// ListRelated fetches the records of a sub-collection such as an airport's
// aircraft. An empty result is an empty slice, never an error.
func (c *Client) ListRelated(ctx context.Context, id, relation string) ([]record.Record, error) {
	if err := c.requireID("list related", id); err != nil {
		return nil, err
	}
	relation = strings.Trim(strings.TrimSpace(relation), "/")
	if relation == "" {
		return nil, &Error{Kind: KindValidation, Op: "list related", Resource: c.name, ID: id, Err: errors.New("relation is required")}
	}
	return c.list(ctx, "list "+relation, id, c.itemPath(id)+"/"+url.PathEscape(relation))
}

func (c *Client) list(ctx context.Context, op, id, path string) ([]record.Record, error) {
	body, err := c.api.do(ctx, op, c.name, id, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	records := []record.Record{}
	if len(bytes.TrimSpace(body)) == 0 {
		return records, nil
	}
	if err := decodeJSON(body, &records); err != nil {
		return nil, &Error{Kind: KindServer, Op: op, Resource: c.name, ID: id, Err: fmt.Errorf("decode list: %w", err)}
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

func (c *Client) decodeRecord(op, id string, body []byte) (record.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &Error{Kind: KindServer, Op: op, Resource: c.name, ID: id, Err: errors.New("empty response body")}
	}
	var rec record.Record
	if err := decodeJSON(body, &rec); err != nil {
		return nil, &Error{Kind: KindServer, Op: op, Resource: c.name, ID: id, Err: fmt.Errorf("decode record: %w", err)}
	}
	if rec == nil {
		return nil, &Error{Kind: KindServer, Op: op, Resource: c.name, ID: id, Err: errors.New("null response body")}
	}
	return rec, nil
}

// requireResponseID rejects a 2xx create or update body without an
// identifier; such a record could never be replaced or removed later.
func (c *Client) requireResponseID(op, id string, rec record.Record) (record.Record, error) {
	if rec.HasID() {
		return rec, nil
	}
	return nil, &Error{
		Kind:     KindServer,
		Op:       op,
		Resource: c.name,
		ID:       id,
		Err:      ErrMissingResponseID,
	}
}

func (c *Client) requireID(op, id string) error {
	if strings.TrimSpace(id) == "" {
		return &Error{Kind: KindValidation, Op: op, Resource: c.name, Err: errors.New("identifier is required")}
	}
	return nil
}

func (c *Client) collectionPath() string {
	return c.api.prefix + "/" + url.PathEscape(c.name)
}

func (c *Client) itemPath(id string) string {
	return c.collectionPath() + "/" + url.PathEscape(strings.TrimSpace(id))
}

func (a *API) do(ctx context.Context, op, resource, id, method, path string, payload any) ([]byte, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Op: op, Resource: resource, ID: id, Err: fmt.Errorf("encode payload: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}

	target := *a.baseURL
	target.Path = a.baseURL.Path + path
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Resource: resource, ID: id, Err: fmt.Errorf("request: %w", err)}
	}
	requestID := a.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	entry := a.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       target.Path,
		"request_id": requestID,
	})

	started := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return nil, &Error{Kind: KindNetwork, Op: op, Resource: resource, ID: id, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		entry.WithError(err).Debug("read body failed")
		return nil, &Error{Kind: KindNetwork, Op: op, Resource: resource, ID: id, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	entry.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}).Debug("request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		messages, fields := parseErrorBody(body)
		return nil, &Error{
			Kind:     kindForStatus(resp.StatusCode),
			Op:       op,
			Resource: resource,
			ID:       id,
			Status:   resp.StatusCode,
			Messages: messages,
			Fields:   fields,
		}
	}
	return body, nil
}

func decodeJSON(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(out)
}
