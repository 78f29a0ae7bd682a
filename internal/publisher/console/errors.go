package console

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrVersionNotFound indicates a workflow referenced an id absent from the list.
	ErrVersionNotFound = errors.New("console: version not found")
	// ErrAlreadyActive indicates a revert targeted the live version.
	ErrAlreadyActive = errors.New("console: version is already active")
	// ErrStaleResult indicates a fetch finished after a newer one was issued and was discarded.
	ErrStaleResult = errors.New("console: stale fetch result discarded")
	// ErrUnknownModal indicates a modal kind the console does not render.
	ErrUnknownModal = errors.New("console: unknown modal")
)

// ValidationError maps form field names to operator facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "console: validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "console: validation failed: " + strings.Join(parts, "; ")
}

// Tone classifies a notice for display.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneError   Tone = "error"
)

// Notice is a message shown to the operator after a workflow completes.
type Notice struct {
	Tone    Tone
	Message string
}

// Empty reports whether there is nothing to show.
func (n Notice) Empty() bool {
	return strings.TrimSpace(n.Message) == ""
}

const (
	msgSyncFailed       = "Failed to load versions from the deployment server."
	msgSyncOffline      = "Failed to load versions from the deployment server. Showing offline history."
	msgPublishNetwork   = "Network error: Failed to connect to deployment server. Please check your connection and try again."
	msgPublishRejected  = "Deployment failed: %s"
	msgPublishSucceeded = "Successfully published version %s to production!"
	msgPublishLive      = "Successfully published version %s to production! Changes are now live at %s"
	msgPublishLocal     = "Deployment server unreachable. Version %s was recorded locally and stays unconfirmed until the next successful sync."
	msgRevertNetwork    = "Network error: Failed to revert version"
	msgRevertRejected   = "Revert failed: %s"
	msgRevertSucceeded  = "Successfully reverted to version %s"
	msgRevertLocal      = "Deployment server unreachable. Version %s was activated locally and stays unconfirmed until the next successful sync."
)
