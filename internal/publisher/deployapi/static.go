package deployapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

// StaticService keeps the version history in memory. It backs local development when no
// deployment API is configured and doubles as a fake in tests.
type StaticService struct {
	mu      sync.Mutex
	list    []versions.Record
	failure error
	calls   map[string]int
	now     func() time.Time
}

// NewStaticService seeds the service with list, or with the offline fixture when list is nil.
func NewStaticService(list []versions.Record) *StaticService {
	if list == nil {
		list = versions.Fallback()
	}
	return &StaticService{
		list:  versions.Clone(list),
		calls: make(map[string]int),
		now:   time.Now,
	}
}

// FailWith makes every subsequent call return err. A nil err restores normal behaviour.
func (s *StaticService) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// Calls reports how many times operation was invoked.
func (s *StaticService) Calls(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[operation]
}

// Snapshot returns a copy of the stored history.
func (s *StaticService) Snapshot() []versions.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return versions.Clone(s.list)
}

// List returns the stored history.
func (s *StaticService) List(ctx context.Context, token string) ([]versions.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["list"]++
	if s.failure != nil {
		return nil, s.failure
	}
	return versions.Clone(s.list), nil
}

// Publish prepends a new active record.
func (s *StaticService) Publish(ctx context.Context, token string, req PublishRequest) (*PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["publish"]++
	if s.failure != nil {
		return nil, s.failure
	}
	req = req.Normalize()
	if req.Version == "" || req.ChangeSummary == "" {
		return nil, &ServerError{Status: http.StatusBadRequest, Message: "version and change summary are required"}
	}
	if versions.HasVersion(s.list, req.Version) {
		return nil, &ServerError{Status: http.StatusConflict, Message: "version " + req.Version + " already exists"}
	}
	rec := versions.Record{
		ID:            versions.ID(strings.ToLower(ulid.Make().String())),
		Version:       req.Version,
		Type:          req.VersionType,
		ChangeSummary: req.ChangeSummary,
		Timestamp:     s.now().UTC(),
		Author:        req.Author,
	}
	s.list = versions.Prepend(s.list, rec)
	rec.Status = versions.StatusActive
	return &PublishResult{Record: &rec}, nil
}

// Revert activates the record identified by id.
func (s *StaticService) Revert(ctx context.Context, token string, id versions.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["revert"]++
	if s.failure != nil {
		return s.failure
	}
	rec, ok := versions.Find(s.list, id)
	if !ok {
		return &ServerError{Status: http.StatusNotFound, Message: "version not found"}
	}
	if rec.Active() {
		return &ServerError{Status: http.StatusConflict, Message: "version " + rec.Version + " is already active"}
	}
	s.list, _ = versions.Activate(s.list, id)
	return nil
}
