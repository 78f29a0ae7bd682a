package console

import (
	"html/template"
	"time"

	appconsole "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/templates/helpers"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

// PageData is the full console SSR payload.
type PageData struct {
	History      HistoryData
	Preview      PreviewData
	Endpoints    Endpoints
	PublishModal *PublishModalData
	RevertModal  *RevertModalData
}

// Endpoints lists the htmx routes the page talks to.
type Endpoints struct {
	History      string
	Refresh      string
	OpenPublish  string
	Preview      string
	Publish      string
	ClosePublish string
	CloseRevert  string
}

// HistoryData drives the state fragment: current version, stats and the history list.
type HistoryData struct {
	CurrentVersion string
	Stats          StatsData
	Rows           []VersionRow
	Loaded         bool
	Error          string
	Offline        bool
	Unconfirmed    bool
	Endpoint       string
	RefreshURL     string
}

// StatsData is the summary card.
type StatsData struct {
	Total      int
	LastDeploy time.Time
	LastSynced time.Time
	Health     string
	HealthTone string
}

// VersionRow is one rendered history entry.
type VersionRow struct {
	ID        string
	Version   string
	Type      string
	TypeLabel string
	Status    string
	Active    bool
	Summary   template.HTML
	Author    string
	Timestamp time.Time
	RevertURL string
}

// PreviewData configures the staging preview panel.
type PreviewData struct {
	StagingURL    string
	ProductionURL string
}

// TypeOption is one entry of the version type selector.
type TypeOption struct {
	Value    string
	Label    string
	Selected bool
}

// VersionField is the derived version input, re-rendered when the type changes.
type VersionField struct {
	Version   string
	Suggested string
	Error     string
}

// PublishModalData is the publish dialog payload.
type PublishModalData struct {
	CurrentVersion string
	Types          []TypeOption
	Field          VersionField
	ChangeSummary  string
	SummaryError   string
	Error          string
	Submitting     bool
	SubmitURL      string
	PreviewURL     string
	CloseURL       string
}

// RevertModalData is the revert confirmation payload.
type RevertModalData struct {
	ID             string
	Version        string
	CurrentVersion string
	Summary        template.HTML
	Author         string
	Timestamp      time.Time
	Error          string
	Submitting     bool
	SubmitURL      string
	CloseURL       string
}

// SuccessData is shown in the modal slot after a workflow succeeds, then auto closes.
type SuccessData struct {
	Tone     string
	Message  string
	CloseURL string
}

// BuildEndpoints resolves the console routes under basePath.
func BuildEndpoints(basePath string) Endpoints {
	return Endpoints{
		History:      helpers.Path(basePath, "/versions"),
		Refresh:      helpers.Path(basePath, "/versions/refresh"),
		OpenPublish:  helpers.Path(basePath, "/publish"),
		Preview:      helpers.Path(basePath, "/publish/preview"),
		Publish:      helpers.Path(basePath, "/publish"),
		ClosePublish: closeURL(basePath, appconsole.ModalPublish),
		CloseRevert:  closeURL(basePath, appconsole.ModalRevert),
	}
}

// BuildPageData prepares the console page payload from a workspace snapshot.
func BuildPageData(basePath string, state appconsole.State) PageData {
	data := PageData{
		History: HistoryPayload(basePath, state),
		Preview: PreviewData{
			StagingURL:    state.Site.StagingURL,
			ProductionURL: state.Site.ProductionURL,
		},
		Endpoints: BuildEndpoints(basePath),
	}
	if state.Publish.Open {
		modal := PublishModalPayload(basePath, state)
		data.PublishModal = &modal
	}
	if state.Revert.Open {
		modal := RevertModalPayload(basePath, state)
		data.RevertModal = &modal
	}
	return data
}

// HistoryPayload builds the state fragment payload.
func HistoryPayload(basePath string, state appconsole.State) HistoryData {
	data := HistoryData{
		Loaded:      state.Loaded,
		Error:       state.Error,
		Offline:     state.Offline,
		Unconfirmed: state.Unconfirmed,
		Endpoint:    helpers.Path(basePath, "/versions"),
		RefreshURL:  helpers.Path(basePath, "/versions/refresh"),
		Stats: StatsData{
			Total:      len(state.Versions),
			LastSynced: state.LastSynced,
		},
	}
	if active, ok := state.Active(); ok {
		data.CurrentVersion = active.Version
		data.Stats.LastDeploy = active.Timestamp
	}
	data.Stats.Health, data.Stats.HealthTone = syncHealth(state)

	data.Rows = make([]VersionRow, 0, len(state.Versions))
	for _, rec := range state.Versions {
		data.Rows = append(data.Rows, versionRow(basePath, rec))
	}
	return data
}

func syncHealth(state appconsole.State) (string, string) {
	switch {
	case state.Unconfirmed:
		return "Unconfirmed local changes", string(appconsole.ToneWarning)
	case state.Offline:
		return "Offline history", string(appconsole.ToneWarning)
	case state.Error != "":
		return "Sync failed", string(appconsole.ToneError)
	case !state.Loaded:
		return "Not synced", ""
	default:
		return "Connected", string(appconsole.ToneSuccess)
	}
}

func versionRow(basePath string, rec versions.Record) VersionRow {
	return VersionRow{
		ID:        string(rec.ID),
		Version:   rec.Version,
		Type:      string(rec.Type),
		TypeLabel: rec.Type.Label(),
		Status:    string(rec.Status),
		Active:    rec.Active(),
		Summary:   versions.RenderSummary(rec.ChangeSummary),
		Author:    rec.Author,
		Timestamp: rec.Timestamp,
		RevertURL: RevertURL(basePath, rec.ID),
	}
}

// RevertURL is the route that opens and confirms the revert dialog for id.
func RevertURL(basePath string, id versions.ID) string {
	return helpers.Path(basePath, "/versions", string(id), "revert")
}

func closeURL(basePath string, kind appconsole.ModalKind) string {
	return helpers.Path(basePath, "/modals", string(kind), "close")
}

// PublishModalPayload builds the publish dialog payload from the workspace state.
func PublishModalPayload(basePath string, state appconsole.State) PublishModalData {
	modal := state.Publish
	data := PublishModalData{
		Types:         typeOptions(modal.Form.VersionType),
		Field:         VersionFieldPayload(modal.Form),
		ChangeSummary: modal.Form.ChangeSummary,
		SummaryError:  modal.Form.FieldErrors["changeSummary"],
		Error:         modal.Error,
		Submitting:    modal.Submitting,
		SubmitURL:     helpers.Path(basePath, "/publish"),
		PreviewURL:    helpers.Path(basePath, "/publish/preview"),
		CloseURL:      closeURL(basePath, appconsole.ModalPublish),
	}
	if active, ok := state.Active(); ok {
		data.CurrentVersion = active.Version
	}
	if msg := modal.Form.FieldErrors["form"]; msg != "" && data.Error == "" {
		data.Error = msg
	}
	if msg := modal.Form.FieldErrors["versionType"]; msg != "" && data.Error == "" {
		data.Error = msg
	}
	return data
}

// VersionFieldPayload builds the version input fragment.
func VersionFieldPayload(form appconsole.PublishForm) VersionField {
	return VersionField{
		Version:   form.Version,
		Suggested: form.Suggested,
		Error:     form.FieldErrors["version"],
	}
}

func typeOptions(selected versions.Type) []TypeOption {
	if selected == "" {
		selected = versions.TypePatch
	}
	types := []versions.Type{versions.TypePatch, versions.TypeMinor, versions.TypeMajor}
	out := make([]TypeOption, 0, len(types))
	for _, t := range types {
		out = append(out, TypeOption{Value: string(t), Label: t.Label(), Selected: t == selected})
	}
	return out
}

// RevertModalPayload builds the revert confirmation payload from the workspace state.
func RevertModalPayload(basePath string, state appconsole.State) RevertModalData {
	target := state.Revert.Target
	data := RevertModalData{
		ID:         string(target.ID),
		Version:    target.Version,
		Summary:    versions.RenderSummary(target.ChangeSummary),
		Author:     target.Author,
		Timestamp:  target.Timestamp,
		Error:      state.Revert.Error,
		Submitting: state.Revert.Submitting,
		SubmitURL:  RevertURL(basePath, target.ID),
		CloseURL:   closeURL(basePath, appconsole.ModalRevert),
	}
	if active, ok := state.Active(); ok {
		data.CurrentVersion = active.Version
	}
	return data
}

// SuccessPayload wraps a workflow notice for the modal slot.
func SuccessPayload(basePath string, kind appconsole.ModalKind, notice appconsole.Notice) SuccessData {
	return SuccessData{
		Tone:     string(notice.Tone),
		Message:  notice.Message,
		CloseURL: closeURL(basePath, kind),
	}
}
