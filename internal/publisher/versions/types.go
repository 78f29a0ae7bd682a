package versions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type classifies a release. It is informational only and is not checked against Version.
type Type string

const (
	TypePatch Type = "patch"
	TypeMinor Type = "minor"
	TypeMajor Type = "major"
)

// ParseType normalises raw input into a Type. Empty input yields TypePatch.
func ParseType(raw string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TypePatch:
		return TypePatch, true
	case TypeMinor:
		return TypeMinor, true
	case TypeMajor:
		return TypeMajor, true
	default:
		return "", false
	}
}

// Label returns the operator facing description for the release type.
func (t Type) Label() string {
	switch t {
	case TypeMajor:
		return "Major (Breaking changes)"
	case TypeMinor:
		return "Minor (New features)"
	default:
		return "Patch (Bug fixes)"
	}
}

// Status reports whether a record is the one currently served in production.
type Status string

const (
	StatusActive   Status = "active"
	StatusReverted Status = "reverted"
)

// ID identifies a record. The deployment API emits either strings or integers.
type ID string

// UnmarshalJSON accepts both JSON strings and numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("versions: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric identifiers as numbers so they round-trip with the API.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Record is a single entry of the deployment history.
type Record struct {
	ID            ID        `json:"id"`
	Version       string    `json:"version"`
	Type          Type      `json:"versionType"`
	ChangeSummary string    `json:"changeSummary"`
	Timestamp     time.Time `json:"timestamp"`
	Author        string    `json:"author"`
	Status        Status    `json:"status"`
}

// Active reports whether the record is the live version.
func (r Record) Active() bool {
	return r.Status == StatusActive
}

// legacyDateLayout matches the display strings emitted by the first API revision.
const legacyDateLayout = "Jan 2, 2006, 03:04 PM"

type wireRecord struct {
	ID            ID     `json:"id"`
	Version       string `json:"version"`
	VersionType   string `json:"versionType"`
	LegacyType    string `json:"type"`
	ChangeSummary string `json:"changeSummary"`
	LegacySummary string `json:"summary"`
	Timestamp     string `json:"timestamp"`
	DeployedAt    string `json:"deployedAt"`
	LegacyDate    string `json:"date"`
	Author        string `json:"author"`
	Status        string `json:"status"`
}

// UnmarshalJSON decodes a record, accepting the field aliases used by older API revisions.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	typ, ok := ParseType(firstNonEmpty(w.VersionType, w.LegacyType))
	if !ok {
		typ = TypePatch
	}

	status := StatusReverted
	if strings.EqualFold(strings.TrimSpace(w.Status), string(StatusActive)) {
		status = StatusActive
	}

	*r = Record{
		ID:            w.ID,
		Version:       strings.TrimSpace(w.Version),
		Type:          typ,
		ChangeSummary: firstNonEmpty(w.ChangeSummary, w.LegacySummary),
		Timestamp:     parseTimestamp(firstNonEmpty(w.Timestamp, w.DeployedAt, w.LegacyDate)),
		Author:        strings.TrimSpace(w.Author),
		Status:        status,
	}
	return nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, legacyDateLayout, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
