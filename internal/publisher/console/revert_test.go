package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

func TestRevertActivatesTarget(t *testing.T) {
	t.Parallel()

	svc := deployapi.NewStaticService(seedHistory())
	ws := syncedWorkspace(t, svc)
	_, err := ws.OpenRevert("1")
	require.NoError(t, err)

	result, err := ws.Revert(context.Background(), "", "1")
	require.NoError(t, err)
	require.Equal(t, "Successfully reverted to version 1.1.0", result.Notice.Message)

	state := result.State
	require.Equal(t, 1, versions.ActiveCount(state.Versions))
	active, ok := state.Active()
	require.True(t, ok)
	require.Equal(t, versions.ID("1"), active.ID)
	require.False(t, state.Revert.Open)
}

func TestRevertPreconditions(t *testing.T) {
	t.Parallel()

	svc := deployapi.NewStaticService(seedHistory())
	ws := syncedWorkspace(t, svc)

	_, err := ws.Revert(context.Background(), "", "3")
	require.ErrorIs(t, err, ErrAlreadyActive)

	_, err = ws.Revert(context.Background(), "", "missing")
	require.ErrorIs(t, err, ErrVersionNotFound)
	require.Equal(t, 0, svc.Calls("revert"))
}

func TestRevertServerRejection(t *testing.T) {
	t.Parallel()

	svc := deployapi.NewStaticService(seedHistory())
	ws := syncedWorkspace(t, svc)
	svc.FailWith(&deployapi.ServerError{Message: "locked"})

	result, err := ws.Revert(context.Background(), "", "2")
	require.Error(t, err)
	require.Equal(t, "Revert failed: locked", result.Notice.Message)

	state := ws.Snapshot()
	require.True(t, state.Revert.Open)
	require.False(t, state.Revert.Submitting)
	require.Equal(t, versions.ID("2"), state.Revert.Target.ID)
	require.Equal(t, seedHistory(), state.Versions)
}

func TestRevertBareServerFailureIsNotAppliedLocally(t *testing.T) {
	t.Parallel()

	ws := rejectingAPI(t)

	result, err := ws.Revert(context.Background(), "", "2")
	require.Error(t, err)
	require.NotErrorIs(t, err, deployapi.ErrUnavailable)
	require.Equal(t, "Revert failed: Internal Server Error", result.Notice.Message)

	state := ws.Snapshot()
	require.True(t, state.Revert.Open)
	require.False(t, state.Unconfirmed)
	require.Equal(t, seedHistory(), state.Versions)
}

func TestRevertTransportFailure(t *testing.T) {
	t.Parallel()

	t.Run("fallback", func(t *testing.T) {
		t.Parallel()

		svc := deployapi.NewStaticService(seedHistory())
		ws := syncedWorkspace(t, svc)
		svc.FailWith(errNetwork)

		result, err := ws.Revert(context.Background(), "", "2")
		require.NoError(t, err)
		require.True(t, result.Local)
		require.Equal(t, ToneWarning, result.Notice.Tone)

		state := ws.Snapshot()
		require.True(t, state.Unconfirmed)
		require.Equal(t, 1, versions.ActiveCount(state.Versions))
		active, _ := state.Active()
		require.Equal(t, versions.ID("2"), active.ID)
		require.False(t, state.Revert.Open)
	})

	t.Run("no fallback", func(t *testing.T) {
		t.Parallel()

		svc := deployapi.NewStaticService(seedHistory())
		ws := syncedWorkspace(t, svc, WithOfflineFallback(false))
		svc.FailWith(errNetwork)

		result, err := ws.Revert(context.Background(), "", "2")
		require.ErrorIs(t, err, deployapi.ErrUnavailable)
		require.Equal(t, msgRevertNetwork, result.Notice.Message)
		require.True(t, ws.Snapshot().Revert.Open)
		require.Equal(t, seedHistory(), ws.Snapshot().Versions)
	})
}
