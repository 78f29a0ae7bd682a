package deployapi

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

const (
	DefaultVersionsPath = "/versions"
	DefaultPublishPath  = "/versions"
	DefaultRevertPath   = "/versions/{id}/revert"

	idPlaceholder = "{id}"
	maxErrorBody  = 1 << 16
	maxBody       = 32 << 20
)

var tracer = otel.Tracer("github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi")

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Paths lists the endpoint paths of the deployment API relative to its base URL.
type Paths struct {
	Versions string
	Publish  string
	// Revert must contain the {id} placeholder.
	Revert string
}

func (p Paths) withDefaults() Paths {
	if strings.TrimSpace(p.Versions) == "" {
		p.Versions = DefaultVersionsPath
	}
	if strings.TrimSpace(p.Publish) == "" {
		p.Publish = DefaultPublishPath
	}
	if strings.TrimSpace(p.Revert) == "" {
		p.Revert = DefaultRevertPath
	}
	return p
}

// Option customises an HTTPService.
type Option func(*HTTPService)

// WithPaths overrides the endpoint paths.
func WithPaths(p Paths) Option {
	return func(s *HTTPService) {
		s.paths = p.withDefaults()
	}
}

// WithToken sets a service token that takes precedence over the operator token.
func WithToken(token string) Option {
	return func(s *HTTPService) {
		s.token = strings.TrimSpace(token)
	}
}

// WithRecorder reports call latency and outcome to r.
func WithRecorder(r Recorder) Option {
	return func(s *HTTPService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// HTTPService implements Service against the REST endpoints of the deployment API.
type HTTPService struct {
	base     *url.URL
	client   HTTPClient
	paths    Paths
	token    string
	recorder Recorder
	now      func() time.Time
}

// NewHTTPService constructs a Service that talks to the deployment API at baseURL.
func NewHTTPService(baseURL string, client HTTPClient, opts ...Option) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("deployapi: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("deployapi: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("deployapi: base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	svc := &HTTPService{
		base:     parsed,
		client:   client,
		paths:    Paths{}.withDefaults(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if !strings.Contains(svc.paths.Revert, idPlaceholder) {
		return nil, fmt.Errorf("deployapi: revert path %q must contain %s", svc.paths.Revert, idPlaceholder)
	}
	return svc, nil
}

type envelope struct {
	Success  *bool             `json:"success"`
	Versions []versions.Record `json:"versions"`
	Version  json.RawMessage   `json:"version"`
	Error    string            `json:"error"`
	Message  string            `json:"message"`
}

func (e envelope) failure() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Message)
}

// List retrieves the version history.
func (s *HTTPService) List(ctx context.Context, token string) (list []versions.Record, err error) {
	ctx, finish := s.begin(ctx, "list")
	defer func() { finish(err) }()

	req, err := s.newRequest(ctx, http.MethodGet, s.paths.Versions, nil, token)
	if err != nil {
		return nil, err
	}
	payload, err := s.roundTrip(req, "list versions")
	if err != nil {
		return nil, err
	}
	if payload.Success == nil {
		return nil, fmt.Errorf("%w: list versions: malformed payload", ErrUnavailable)
	}
	if !*payload.Success {
		return nil, &ServerError{Message: fallbackMessage(payload.failure(), "failed to load versions")}
	}
	if payload.Versions == nil {
		return nil, fmt.Errorf("%w: list versions: payload has no versions", ErrUnavailable)
	}
	return payload.Versions, nil
}

// Publish submits a new version.
func (s *HTTPService) Publish(ctx context.Context, token string, body PublishRequest) (result *PublishResult, err error) {
	ctx, finish := s.begin(ctx, "publish", attribute.String("publisher.version", body.Version))
	defer func() { finish(err) }()

	req, err := s.newJSONRequest(ctx, http.MethodPost, s.paths.Publish, body.Normalize(), token)
	if err != nil {
		return nil, err
	}
	payload, err := s.roundTrip(req, "publish")
	if err != nil {
		return nil, err
	}
	if payload.Success == nil {
		return nil, fmt.Errorf("%w: publish: malformed payload", ErrUnavailable)
	}
	if !*payload.Success {
		return nil, &ServerError{Message: fallbackMessage(payload.failure(), "deployment rejected")}
	}
	result = &PublishResult{}
	if rec, ok := decodeVersion(payload.Version); ok {
		result.Record = &rec
	}
	return result, nil
}

// Revert requests the version identified by id become the live version.
func (s *HTTPService) Revert(ctx context.Context, token string, id versions.ID) (err error) {
	ctx, finish := s.begin(ctx, "revert", attribute.String("publisher.version_id", string(id)))
	defer func() { finish(err) }()

	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return errors.New("deployapi: version id is required")
	}
	endpoint := strings.ReplaceAll(s.paths.Revert, idPlaceholder, url.PathEscape(trimmed))
	req, err := s.newRequest(ctx, http.MethodPost, endpoint, nil, token)
	if err != nil {
		return err
	}
	payload, err := s.roundTrip(req, "revert")
	if err != nil {
		return err
	}
	if payload.Success == nil {
		return fmt.Errorf("%w: revert: malformed payload", ErrUnavailable)
	}
	if !*payload.Success {
		return &ServerError{Message: fallbackMessage(payload.failure(), "revert rejected")}
	}
	return nil
}

func (s *HTTPService) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := s.now()
	ctx, span := tracer.Start(ctx, "deployapi."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String("publisher.operation", operation)}, attrs...)...),
	)
	return ctx, func(err error) {
		outcome := Outcome(err)
		span.SetAttributes(attribute.String("publisher.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		s.recorder.ObserveDeployCall(operation, outcome, s.now().Sub(start))
	}
}

// roundTrip executes req and decodes the response envelope. Non-2xx responses carrying a
// JSON envelope become ServerError values; everything else that goes wrong is ErrUnavailable.
func (s *HTTPService) roundTrip(req *http.Request, op string) (envelope, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	trace.SpanFromContext(req.Context()).SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %s: read body: %w", ErrUnavailable, op, err)
	}
	if len(body) > maxBody {
		return envelope{}, fmt.Errorf("%w: %s: payload too large (over %d bytes)", ErrUnavailable, op, maxBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return envelope{}, errorFromResponse(resp.StatusCode, body, op)
	}

	var payload envelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return envelope{}, fmt.Errorf("%w: %s: decode payload: %w", ErrUnavailable, op, err)
	}
	return payload, nil
}

func (s *HTTPService) newRequest(ctx context.Context, method, endpoint string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("deployapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer := s.bearer(token); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req, nil
}

func (s *HTTPService) newJSONRequest(ctx context.Context, method, endpoint string, payload any, token string) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("deployapi: encode payload: %w", err)
	}
	req, err := s.newRequest(ctx, method, endpoint, &buf, token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *HTTPService) bearer(operatorToken string) string {
	if s.token != "" {
		return s.token
	}
	return strings.TrimSpace(operatorToken)
}

func (s *HTTPService) resolve(endpoint string) string {
	if endpoint == "" {
		return s.base.String()
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		ref = &url.URL{Path: strings.TrimPrefix(endpoint, "/")}
	}
	return s.base.ResolveReference(ref).String()
}

func errorFromResponse(status int, body []byte, op string) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	var payload envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && (payload.Success != nil || payload.failure() != "") {
			return &ServerError{Status: status, Message: fallbackMessage(payload.failure(), http.StatusText(status))}
		}
	}
	return fmt.Errorf("%w: %s: status %d %s", ErrUnavailable, op, status, http.StatusText(status))
}

func decodeVersion(raw json.RawMessage) (versions.Record, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return versions.Record{}, false
	}
	var rec versions.Record
	if err := json.Unmarshal(trimmed, &rec); err != nil || rec.Version == "" {
		return versions.Record{}, false
	}
	return rec, true
}

func fallbackMessage(msg, def string) string {
	if strings.TrimSpace(msg) == "" {
		return def
	}
	return msg
}
