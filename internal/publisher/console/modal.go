package console

import (
	"fmt"
	"strings"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

// ModalKind names one of the console dialogs.
type ModalKind string

const (
	ModalPublish ModalKind = "publish"
	ModalRevert  ModalKind = "revert"
)

// ParseModalKind validates a modal name taken from a route.
func ParseModalKind(raw string) (ModalKind, error) {
	switch ModalKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ModalPublish:
		return ModalPublish, nil
	case ModalRevert:
		return ModalRevert, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModal, raw)
	}
}

// PublishForm holds the publish dialog inputs between requests.
type PublishForm struct {
	VersionType   versions.Type
	Version       string
	ChangeSummary string
	// Suggested is the version derived from the active record for VersionType.
	Suggested   string
	FieldErrors map[string]string
}

// ModalState is the {closed, open} state of one dialog plus its in-flight marker.
type ModalState struct {
	Kind       ModalKind
	Open       bool
	Submitting bool
	// Target is the record a revert dialog confirms.
	Target versions.Record
	Form   PublishForm
	Error  string
}

func (m ModalState) clone() ModalState {
	out := m
	if m.Form.FieldErrors != nil {
		out.Form.FieldErrors = make(map[string]string, len(m.Form.FieldErrors))
		for k, v := range m.Form.FieldErrors {
			out.Form.FieldErrors[k] = v
		}
	}
	return out
}

func (w *Workspace) modalLocked(kind ModalKind) (*ModalState, error) {
	switch kind {
	case ModalPublish:
		return &w.publish, nil
	case ModalRevert:
		return &w.revert, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModal, kind)
	}
}

// OpenPublish opens the publish dialog with a version derived for typ.
func (w *Workspace) OpenPublish(typ versions.Type) ModalState {
	if parsed, ok := versions.ParseType(string(typ)); ok {
		typ = parsed
	} else {
		typ = versions.TypePatch
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	suggested := versions.SuggestNext(w.list, typ)
	w.publish = ModalState{
		Kind: ModalPublish,
		Open: true,
		Form: PublishForm{
			VersionType: typ,
			Version:     suggested,
			Suggested:   suggested,
		},
	}
	return w.publish.clone()
}

// PreviewVersion recomputes the derived version after the type selector changes. The
// change summary typed so far is kept.
func (w *Workspace) PreviewVersion(typ versions.Type) PublishForm {
	if parsed, ok := versions.ParseType(string(typ)); ok {
		typ = parsed
	} else {
		typ = versions.TypePatch
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	suggested := versions.SuggestNext(w.list, typ)
	form := w.publish.Form
	form.VersionType = typ
	form.Version = suggested
	form.Suggested = suggested
	form.FieldErrors = nil
	if w.publish.Open && !w.publish.Submitting {
		w.publish.Form = form
	}
	return form
}

// OpenRevert opens the revert dialog for id.
func (w *Workspace) OpenRevert(id versions.ID) (ModalState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := versions.Find(w.list, id)
	if !ok {
		return ModalState{}, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
	}
	if rec.Active() {
		return ModalState{}, fmt.Errorf("%w: %s", ErrAlreadyActive, rec.Version)
	}
	w.revert = ModalState{Kind: ModalRevert, Open: true, Target: rec}
	return w.revert.clone(), nil
}

// CloseModal closes a dialog on cancel or dismiss. The version list is never touched.
func (w *Workspace) CloseModal(kind ModalKind) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	modal, err := w.modalLocked(kind)
	if err != nil {
		return err
	}
	*modal = ModalState{Kind: kind}
	return nil
}
