package console

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	appconsole "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/rbac"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

func sampleState() appconsole.State {
	return appconsole.State{
		Loaded: true,
		Versions: []versions.Record{
			{ID: "3", Version: "1.2.3", Type: versions.TypePatch, ChangeSummary: "Fix **header** spacing", Author: "Dana", Status: versions.StatusActive, Timestamp: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
			{ID: "2", Version: "1.2.2", Type: versions.TypeMinor, ChangeSummary: "Add pricing page", Status: versions.StatusReverted, Timestamp: time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)},
		},
		Site: appconsole.Site{StagingURL: "https://staging.example.com", ProductionURL: "https://example.com"},
	}
}

func TestPageRendersHistoryForPublisher(t *testing.T) {
	t.Parallel()

	ctx := buildContext(t, "/console", rbac.RolePublisher)
	doc := render(t, ctx, Page(BuildPageData("/console", sampleState())))

	require.Equal(t, "v1.2.3", strings.TrimSpace(doc.Find("[data-current-version]").Text()))
	require.Equal(t, "2", strings.TrimSpace(doc.Find("[data-stat='total']").Text()))
	require.Equal(t, "Connected", strings.TrimSpace(doc.Find("[data-stat='health']").Text()))

	rows := doc.Find("[data-history] [data-version-id]")
	require.Equal(t, 2, rows.Length())
	require.Equal(t, "active", rows.First().AttrOr("data-version-status", ""))

	active := doc.Find("[data-version-id='3']")
	require.Equal(t, 0, active.Find("[data-revert-trigger]").Length(), "active version must not offer revert")
	require.Equal(t, 1, active.Find(".history__summary strong").Length(), "summary markdown should render")

	revert := doc.Find("[data-version-id='2'] [data-revert-trigger]")
	require.Equal(t, 1, revert.Length())
	require.Equal(t, "/console/versions/2/revert", revert.AttrOr("hx-get", ""))

	require.Equal(t, "/console/publish", doc.Find("[data-open-publish]").AttrOr("hx-get", ""))
	require.Equal(t, "https://staging.example.com", doc.Find("[data-staging-preview] iframe").AttrOr("src", ""))
	require.Equal(t, "_blank", doc.Find("[data-staging-link]").AttrOr("target", ""))
	require.Equal(t, "/console/public/static/app.css", doc.Find("link[rel='stylesheet']").AttrOr("href", ""))
	require.Equal(t, 0, doc.Find("[data-modal]").Length(), "no modal is open")
}

func TestPageHidesActionsForViewer(t *testing.T) {
	t.Parallel()

	ctx := buildContext(t, "/", rbac.RoleViewer)
	doc := render(t, ctx, Page(BuildPageData("/", sampleState())))

	require.Equal(t, 0, doc.Find("[data-open-publish]").Length())
	require.Equal(t, 0, doc.Find("[data-revert-trigger]").Length())
	require.Equal(t, 2, doc.Find("[data-version-id]").Length())
}

func TestPageMarksProductionConsole(t *testing.T) {
	t.Parallel()

	var ctx context.Context
	middleware.ConsoleContext("/", "prod")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	ctx = middleware.ContextWithUser(ctx, &middleware.User{UID: "ops-1", Roles: []string{string(rbac.RoleAdmin)}})

	doc := render(t, ctx, Page(BuildPageData("/", sampleState())))

	badge := doc.Find("[data-environment-badge]")
	require.Equal(t, 1, badge.Filter("[data-production]").Length())
	require.Equal(t, "PROD", strings.TrimSpace(badge.Find("span[aria-hidden]").Text()))
	require.Equal(t, "ops-1", strings.TrimSpace(doc.Find(".topbar__name").Text()))
}

func TestHistoryShowsOfflineAndErrorStates(t *testing.T) {
	t.Parallel()

	state := sampleState()
	state.Offline = true
	state.Unconfirmed = true
	state.Error = "Failed to load versions from the deployment server. Showing offline history."

	doc := render(t, buildContext(t, "/", rbac.RoleAdmin), History(HistoryPayload("/", state)))

	require.Contains(t, doc.Find("[data-history-error]").Text(), "Showing offline history")
	require.Equal(t, 1, doc.Find("[data-unconfirmed]").Length())
	require.Equal(t, "Unconfirmed local changes", strings.TrimSpace(doc.Find("[data-stat='health']").Text()))
	require.Equal(t, "/versions/refresh", doc.Find("[data-refresh]").AttrOr("hx-post", ""))
}

func TestHistoryEmptyState(t *testing.T) {
	t.Parallel()

	doc := render(t, buildContext(t, "/", rbac.RoleAdmin), History(HistoryPayload("/", appconsole.State{Loaded: true})))

	require.Equal(t, 1, doc.Find("[data-history-empty]").Length())
	require.Equal(t, "None", strings.TrimSpace(doc.Find("[data-current-version]").Text()))
	require.Equal(t, "Never", strings.TrimSpace(doc.Find("[data-stat='last-deploy']").Text()))
}

func TestPublishModalRendersFieldErrors(t *testing.T) {
	t.Parallel()

	state := sampleState()
	state.Publish = appconsole.ModalState{
		Kind: appconsole.ModalPublish,
		Open: true,
		Form: appconsole.PublishForm{
			VersionType: versions.TypeMinor,
			Version:     "1.2.3",
			Suggested:   "1.3.0",
			FieldErrors: map[string]string{
				"version":       "Version 1.2.3 already exists",
				"changeSummary": "Change summary is required",
			},
		},
	}

	doc := render(t, buildContext(t, "/", rbac.RoleAdmin), PublishModal(PublishModalPayload("/", state)))

	require.Equal(t, "minor", doc.Find("select[name='versionType'] option[selected]").AttrOr("value", ""))
	require.Equal(t, "1.2.3", doc.Find("input[name='version']").AttrOr("value", ""))
	require.Equal(t, "1.3.0", strings.TrimSpace(doc.Find("[data-suggested-version]").Text()))
	require.Equal(t, "Version 1.2.3 already exists", strings.TrimSpace(doc.Find("[data-field-error='version']").Text()))
	require.Equal(t, "Change summary is required", strings.TrimSpace(doc.Find("[data-field-error='changeSummary']").Text()))
	require.Equal(t, "/publish/preview", doc.Find("select[name='versionType']").AttrOr("hx-get", ""))
	require.Equal(t, "/modals/publish/close", doc.Find("[data-modal-cancel]").AttrOr("hx-post", ""))
	require.Equal(t, "/modals/publish/close", doc.Find("[data-modal-dismiss]").AttrOr("hx-post", ""))
	require.Equal(t, "find button[type='submit']", doc.Find("[data-publish-form]").AttrOr("hx-disabled-elt", ""))
	_, disabled := doc.Find("[data-modal-confirm]").Attr("disabled")
	require.False(t, disabled)
}

func TestPublishModalSubmittingDisablesConfirmOnly(t *testing.T) {
	t.Parallel()

	state := sampleState()
	state.Publish = appconsole.ModalState{Kind: appconsole.ModalPublish, Open: true, Submitting: true}

	doc := render(t, buildContext(t, "/", rbac.RoleAdmin), PublishModal(PublishModalPayload("/", state)))

	_, confirmDisabled := doc.Find("[data-modal-confirm]").Attr("disabled")
	_, cancelDisabled := doc.Find("[data-modal-cancel]").Attr("disabled")
	require.True(t, confirmDisabled)
	require.False(t, cancelDisabled)
}

func TestRevertModalAndSuccess(t *testing.T) {
	t.Parallel()

	state := sampleState()
	state.Revert = appconsole.ModalState{Kind: appconsole.ModalRevert, Open: true, Target: state.Versions[1]}
	ctx := buildContext(t, "/", rbac.RoleAdmin)

	doc := render(t, ctx, RevertModal(RevertModalPayload("/", state)))
	require.Equal(t, "v1.2.2", strings.TrimSpace(doc.Find("[data-revert-target]").Text()))
	require.Equal(t, "/versions/2/revert", doc.Find("[data-revert-form]").AttrOr("hx-post", ""))
	require.Equal(t, "/modals/revert/close", doc.Find("[data-modal-cancel]").AttrOr("hx-post", ""))

	notice := appconsole.Notice{Tone: appconsole.ToneSuccess, Message: "Successfully reverted to version 1.2.2"}
	doc = render(t, ctx, ModalSuccess(SuccessPayload("/", appconsole.ModalRevert, notice)))
	success := doc.Find("[data-modal-success]")
	require.Equal(t, "load delay:3s", success.AttrOr("hx-trigger", ""))
	require.Equal(t, "/modals/revert/close", success.AttrOr("hx-post", ""))
	require.Equal(t, notice.Message, strings.TrimSpace(doc.Find("[data-success-message]").Text()))
}

func TestVersionFieldFragment(t *testing.T) {
	t.Parallel()

	doc := render(t, context.Background(), VersionFieldFragment(VersionField{Version: "2.0.0", Suggested: "2.0.0"}))
	require.Equal(t, "version-field", doc.Find("[data-version-field]").AttrOr("id", ""))
	require.Equal(t, "2.0.0", doc.Find("input[name='version']").AttrOr("value", ""))
}

func buildContext(t *testing.T, basePath string, role rbac.Role) context.Context {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	var ctx context.Context
	handler := middleware.ConsoleContext(basePath, "Staging")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	handler.ServeHTTP(rec, req)
	require.NotNil(t, ctx, "middleware stack must provide context")

	return middleware.ContextWithUser(ctx, &middleware.User{
		UID:   "ops-1",
		Email: "ops@example.com",
		Roles: []string{string(role)},
	})
}

func render(t *testing.T, ctx context.Context, component templ.Component) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, component.Render(ctx, &buf), "component must render")

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err, "html must parse")
	return doc
}
