package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

func syncedWorkspace(t *testing.T, svc *deployapi.StaticService, opts ...Option) *Workspace {
	t.Helper()
	ws := New(svc, opts...)
	_, err := ws.Sync(context.Background(), "")
	require.NoError(t, err)
	return ws
}

func TestPublishValidationNeverCallsNetwork(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input PublishInput
		field string
	}{
		{name: "empty summary", input: PublishInput{Version: "1.2.4", ChangeSummary: "   "}, field: "changeSummary"},
		{name: "empty version", input: PublishInput{Version: "", ChangeSummary: "Fix"}, field: "version"},
		{name: "malformed version", input: PublishInput{Version: "1.2", ChangeSummary: "Fix"}, field: "version"},
		{name: "duplicate version", input: PublishInput{Version: "1.2.2", ChangeSummary: "Fix"}, field: "version"},
		{name: "unknown type", input: PublishInput{VersionType: "hotfix", Version: "1.2.4", ChangeSummary: "Fix"}, field: "versionType"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := deployapi.NewStaticService(seedHistory())
			rec := newCountingRecorder()
			ws := syncedWorkspace(t, svc, WithRecorder(rec))

			result, err := ws.Publish(context.Background(), "", tc.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tc.field)
			require.Equal(t, 0, svc.Calls("publish"))
			require.Equal(t, 1, rec.validation[tc.field])
			require.True(t, result.State.Publish.Open)
			require.Equal(t, verr.Fields[tc.field], result.State.Publish.Form.FieldErrors[tc.field])
			require.Equal(t, seedHistory(), result.State.Versions)
		})
	}
}

func TestPublishValidationMessages(t *testing.T) {
	t.Parallel()

	verr := validatePublish(PublishInput{}, nil)
	require.NotNil(t, verr)
	require.Equal(t, "Version number is required", verr.Fields["version"])
	require.Equal(t, "Change summary is required", verr.Fields["changeSummary"])
	require.Contains(t, verr.Error(), "changeSummary: Change summary is required")

	require.Nil(t, validatePublish(PublishInput{Version: "2.0.0", ChangeSummary: "ok"}, seedHistory()))
}

func TestPublishSuccessActivatesNewVersion(t *testing.T) {
	t.Parallel()

	svc := deployapi.NewStaticService(seedHistory())
	ws := syncedWorkspace(t, svc, WithSite(Site{StagingURL: "https://demo.example.com", ProductionURL: "https://example.com"}))
	ws.OpenPublish(versions.TypeMinor)

	result, err := ws.Publish(context.Background(), "", PublishInput{
		VersionType:   "minor",
		Version:       "1.3.0",
		ChangeSummary: "New pricing page",
		Author:        "ops@example.com",
	})
	require.NoError(t, err)
	require.False(t, result.Local)
	require.Equal(t, ToneSuccess, result.Notice.Tone)
	require.Equal(t, "Successfully published version 1.3.0 to production! Changes are now live at example.com", result.Notice.Message)

	state := result.State
	require.Equal(t, 1, versions.ActiveCount(state.Versions))
	active, ok := state.Active()
	require.True(t, ok)
	require.Equal(t, "1.3.0", active.Version)
	require.Len(t, state.Versions, 4)
	require.False(t, state.Publish.Open)
	require.False(t, state.Publish.Submitting)
	require.False(t, state.Unconfirmed)
	require.Equal(t, 1, svc.Calls("publish"))
}

func TestPublishServerRejectionKeepsModalOpen(t *testing.T) {
	t.Parallel()

	svc := deployapi.NewStaticService(seedHistory())
	ws := syncedWorkspace(t, svc)
	ws.OpenPublish(versions.TypePatch)
	svc.FailWith(&deployapi.ServerError{Status: 422, Message: "Build is still running"})

	result, err := ws.Publish(context.Background(), "", PublishInput{Version: "1.2.4", ChangeSummary: "Fix"})
	require.Error(t, err)
	require.Equal(t, ToneError, result.Notice.Tone)
	require.Equal(t, "Deployment failed: Build is still running", result.Notice.Message)

	state := ws.Snapshot()
	require.True(t, state.Publish.Open)
	require.False(t, state.Publish.Submitting)
	require.Equal(t, "Deployment failed: Build is still running", state.Publish.Error)
	require.Equal(t, "Fix", state.Publish.Form.ChangeSummary)
	require.Equal(t, seedHistory(), state.Versions)
}

func TestPublishBareServerFailureIsNotAppliedLocally(t *testing.T) {
	t.Parallel()

	ws := rejectingAPI(t)
	require.True(t, ws.OfflineFallback())
	ws.OpenPublish(versions.TypePatch)

	result, err := ws.Publish(context.Background(), "", PublishInput{Version: "1.2.4", ChangeSummary: "Fix"})
	require.Error(t, err)
	require.NotErrorIs(t, err, deployapi.ErrUnavailable)
	require.False(t, result.Local)
	require.Equal(t, ToneError, result.Notice.Tone)
	require.Equal(t, "Deployment failed: Internal Server Error", result.Notice.Message)

	state := ws.Snapshot()
	require.True(t, state.Publish.Open)
	require.False(t, state.Unconfirmed)
	require.Equal(t, seedHistory(), state.Versions)
}

func TestPublishTransportFailureAppliesLocally(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC)
	svc := deployapi.NewStaticService(seedHistory())
	rec := newCountingRecorder()
	ws := syncedWorkspace(t, svc, WithRecorder(rec), WithClock(func() time.Time { return fixed }))
	svc.FailWith(errNetwork)

	result, err := ws.Publish(context.Background(), "", PublishInput{VersionType: "major", Version: "2.0.0", ChangeSummary: "Rebrand", Author: "ops"})
	require.NoError(t, err)
	require.True(t, result.Local)
	require.Equal(t, ToneWarning, result.Notice.Tone)
	require.NotEmpty(t, result.Record.ID)
	require.Equal(t, fixed, result.Record.Timestamp)

	state := ws.Snapshot()
	require.True(t, state.Unconfirmed)
	require.False(t, state.Publish.Open)
	require.Len(t, state.Versions, 4)
	require.Equal(t, "2.0.0", state.Versions[0].Version)
	require.Equal(t, versions.TypeMajor, state.Versions[0].Type)
	require.Equal(t, 1, versions.ActiveCount(state.Versions))
	require.True(t, state.Versions[0].Active())
	require.Equal(t, 1, rec.fallbacks["publish"])

	svc.FailWith(nil)
	state, err = ws.Sync(context.Background(), "")
	require.NoError(t, err)
	require.False(t, state.Unconfirmed)
	require.Equal(t, seedHistory(), state.Versions)
}

func TestPublishTransportFailureWithoutFallback(t *testing.T) {
	t.Parallel()

	svc := deployapi.NewStaticService(seedHistory())
	ws := syncedWorkspace(t, svc, WithOfflineFallback(false))
	svc.FailWith(errNetwork)

	result, err := ws.Publish(context.Background(), "", PublishInput{Version: "1.2.4", ChangeSummary: "Fix"})
	require.ErrorIs(t, err, deployapi.ErrUnavailable)
	require.False(t, result.Local)
	require.Equal(t, msgPublishNetwork, result.Notice.Message)

	state := ws.Snapshot()
	require.True(t, state.Publish.Open)
	require.Equal(t, msgPublishNetwork, state.Publish.Error)
	require.Equal(t, seedHistory(), state.Versions)
}
