package deployapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

var (
	// ErrUnavailable indicates the deployment API could not be reached or answered with
	// something other than a well formed response.
	ErrUnavailable = errors.New("deployapi: deployment API unavailable")
	// ErrNotConfigured indicates the deployment API client has not been wired.
	ErrNotConfigured = errors.New("deployapi: service not configured")
)

// ServerError carries a failure reported by the deployment API itself.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status > 0 {
		return fmt.Sprintf("deployapi: server error (%d): %s", e.Status, e.Message)
	}
	return "deployapi: server error: " + e.Message
}

// ServerMessage extracts the verbatim server message from err when it wraps a ServerError.
func ServerMessage(err error) (string, bool) {
	var serverErr *ServerError
	if errors.As(err, &serverErr) && serverErr != nil {
		return serverErr.Message, true
	}
	return "", false
}

// Service exposes the operations of the remote deployment API.
type Service interface {
	// List returns the version history in the order the API reports it.
	List(ctx context.Context, token string) ([]versions.Record, error)
	// Publish promotes the staging build to production as a new version.
	Publish(ctx context.Context, token string, req PublishRequest) (*PublishResult, error)
	// Revert marks the version identified by id as the live production version.
	Revert(ctx context.Context, token string, id versions.ID) error
}

// PublishRequest is the body sent when publishing a new version.
type PublishRequest struct {
	Version       string        `json:"version"`
	VersionType   versions.Type `json:"versionType"`
	ChangeSummary string        `json:"changeSummary"`
	Author        string        `json:"author,omitempty"`
	StagingURL    string        `json:"stagingUrl,omitempty"`
	ProductionURL string        `json:"productionUrl,omitempty"`
}

// Normalize trims free text fields and defaults the version type.
func (r PublishRequest) Normalize() PublishRequest {
	r.Version = strings.TrimSpace(r.Version)
	r.ChangeSummary = strings.TrimSpace(r.ChangeSummary)
	r.Author = strings.TrimSpace(r.Author)
	if typ, ok := versions.ParseType(string(r.VersionType)); ok {
		r.VersionType = typ
	}
	return r
}

// PublishResult describes the outcome of a publish call.
type PublishResult struct {
	// Record is the version echoed by the API, when it returns one.
	Record *versions.Record
}

// Recorder receives per call measurements for deployment API operations.
type Recorder interface {
	ObserveDeployCall(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDeployCall(string, string, time.Duration) {}

// Outcome classifies an error returned by a Service for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.As(err, new(*ServerError)):
		return "server_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
