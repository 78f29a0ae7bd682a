package ui

import (
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appconsole "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
	custommw "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
	consoletpl "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/templates/console"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

// ConsolePage syncs the workspace and renders the full console.
func (h *Handlers) ConsolePage(w http.ResponseWriter, r *http.Request) {
	ws, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	state := h.sync(r, ws, user)
	basePath := custommw.BasePathFromContext(r.Context())
	templ.Handler(consoletpl.Page(consoletpl.BuildPageData(basePath, state))).ServeHTTP(w, r)
}

// VersionsFragment renders the state fragment from the current snapshot.
func (h *Handlers) VersionsFragment(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.operator(w, r)
	if !ok {
		return
	}
	h.renderHistory(w, r, ws.Snapshot())
}

// RefreshVersions re-syncs the workspace and renders the state fragment.
func (h *Handlers) RefreshVersions(w http.ResponseWriter, r *http.Request) {
	ws, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	state := h.sync(r, ws, user)
	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirectHome(w, r)
		return
	}
	h.renderHistory(w, r, state)
}

// PublishModal opens the publish dialog with the version derived from the active record.
func (h *Handlers) PublishModal(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.operator(w, r)
	if !ok {
		return
	}
	ws.OpenPublish(versions.Type(r.URL.Query().Get("versionType")))
	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirectHome(w, r)
		return
	}
	h.renderPublishModal(w, r, ws.Snapshot())
}

// PublishPreview re-derives the version field after the type selector changes.
func (h *Handlers) PublishPreview(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.operator(w, r)
	if !ok {
		return
	}
	form := ws.PreviewVersion(versions.Type(r.URL.Query().Get("versionType")))
	templ.Handler(consoletpl.VersionFieldFragment(consoletpl.VersionFieldPayload(form))).ServeHTTP(w, r)
}

// PublishSubmit validates and publishes the submitted version.
func (h *Handlers) PublishSubmit(w http.ResponseWriter, r *http.Request) {
	ws, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "The form could not be read.", http.StatusBadRequest)
		return
	}

	input := appconsole.PublishInput{
		VersionType:   r.PostFormValue("versionType"),
		Version:       r.PostFormValue("version"),
		ChangeSummary: r.PostFormValue("changeSummary"),
		Author:        authorName(user),
	}
	res, err := ws.Publish(r.Context(), user.Token, input)

	var verr *appconsole.ValidationError
	switch {
	case errors.As(err, &verr):
		h.log(r).Info("publish rejected by validation", zap.Strings("fields", fieldNames(verr)))
	case err != nil:
		h.log(r).Warn("publish failed", zap.String("version", observability.SanitizeInput(input.Version)), zap.Error(err))
		triggerEvents(w, r, res.Notice, false)
	default:
		h.log(r).Info("version published", zap.String("version", res.Record.Version), zap.Bool("local", res.Local))
		triggerEvents(w, r, res.Notice, true)
	}

	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirectHome(w, r)
		return
	}
	if err != nil {
		h.renderPublishModal(w, r, res.State)
		return
	}
	h.renderSuccess(w, r, appconsole.ModalPublish, res.Notice)
}

// RevertModal opens the revert confirmation for a non-active version.
func (h *Handlers) RevertModal(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.operator(w, r)
	if !ok {
		return
	}
	id := versions.ID(strings.TrimSpace(chi.URLParam(r, "versionID")))
	if _, err := ws.OpenRevert(id); err != nil {
		h.preconditionFailed(w, r, err)
		return
	}
	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirectHome(w, r)
		return
	}
	h.renderRevertModal(w, r, ws.Snapshot())
}

// RevertSubmit makes the selected version live again.
func (h *Handlers) RevertSubmit(w http.ResponseWriter, r *http.Request) {
	ws, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	id := versions.ID(strings.TrimSpace(chi.URLParam(r, "versionID")))
	res, err := ws.Revert(r.Context(), user.Token, id)
	switch {
	case errors.Is(err, appconsole.ErrVersionNotFound), errors.Is(err, appconsole.ErrAlreadyActive):
		h.preconditionFailed(w, r, err)
		return
	case err != nil:
		h.log(r).Warn("revert failed", zap.String("version_id", observability.SanitizeInput(string(id))), zap.Error(err))
		triggerEvents(w, r, res.Notice, false)
	default:
		h.log(r).Info("version reverted", zap.String("version", res.Record.Version), zap.Bool("local", res.Local))
		triggerEvents(w, r, res.Notice, true)
	}

	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirectHome(w, r)
		return
	}
	if err != nil {
		h.renderRevertModal(w, r, res.State)
		return
	}
	h.renderSuccess(w, r, appconsole.ModalRevert, res.Notice)
}

// CloseModal handles cancel and dismiss. It empties the modal slot.
func (h *Handlers) CloseModal(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.operator(w, r)
	if !ok {
		return
	}
	kind, err := appconsole.ParseModalKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := ws.CloseModal(kind); err != nil {
		http.NotFound(w, r)
		return
	}
	if !custommw.IsHTMXRequest(r.Context()) {
		h.redirectHome(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) sync(r *http.Request, ws *appconsole.Workspace, user *custommw.User) appconsole.State {
	state, err := ws.Sync(r.Context(), user.Token)
	switch {
	case errors.Is(err, appconsole.ErrStaleResult):
		return ws.Snapshot()
	case err != nil:
		h.log(r).Warn("version sync failed", zap.Error(err), zap.Bool("offline", state.Offline))
	}
	return state
}

func (h *Handlers) preconditionFailed(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusConflict
	message := "That version is already live."
	if errors.Is(err, appconsole.ErrVersionNotFound) {
		status = http.StatusNotFound
		message = "That version no longer exists. Refresh the history and try again."
	}
	h.log(r).Info("revert precondition failed", zap.Error(err))
	triggerToast(w, r, appconsole.ToneError, message)
	http.Error(w, message, status)
}

func (h *Handlers) renderHistory(w http.ResponseWriter, r *http.Request, state appconsole.State) {
	basePath := custommw.BasePathFromContext(r.Context())
	templ.Handler(consoletpl.History(consoletpl.HistoryPayload(basePath, state))).ServeHTTP(w, r)
}

func (h *Handlers) renderPublishModal(w http.ResponseWriter, r *http.Request, state appconsole.State) {
	basePath := custommw.BasePathFromContext(r.Context())
	templ.Handler(consoletpl.PublishModal(consoletpl.PublishModalPayload(basePath, state))).ServeHTTP(w, r)
}

func (h *Handlers) renderRevertModal(w http.ResponseWriter, r *http.Request, state appconsole.State) {
	basePath := custommw.BasePathFromContext(r.Context())
	templ.Handler(consoletpl.RevertModal(consoletpl.RevertModalPayload(basePath, state))).ServeHTTP(w, r)
}

func (h *Handlers) renderSuccess(w http.ResponseWriter, r *http.Request, kind appconsole.ModalKind, notice appconsole.Notice) {
	basePath := custommw.BasePathFromContext(r.Context())
	templ.Handler(consoletpl.ModalSuccess(consoletpl.SuccessPayload(basePath, kind, notice))).ServeHTTP(w, r)
}

func (h *Handlers) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, custommw.BasePathFromContext(r.Context()), http.StatusSeeOther)
}

func authorName(user *custommw.User) string {
	for _, v := range []string{user.Name, user.Email, user.UID} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func fieldNames(verr *appconsole.ValidationError) []string {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	return names
}
