package deployapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

func TestStaticServicePublishAndRevert(t *testing.T) {
	t.Parallel()

	svc := NewStaticService(nil)
	ctx := context.Background()

	result, err := svc.Publish(ctx, "", PublishRequest{Version: "1.08.0", VersionType: versions.TypeMinor, ChangeSummary: "Refresh"})
	require.NoError(t, err)
	require.NotNil(t, result.Record)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 6)
	require.Equal(t, "1.08.0", list[0].Version)
	require.Equal(t, 1, versions.ActiveCount(list))

	require.NoError(t, svc.Revert(ctx, "", "3"))
	active, ok := versions.Active(svc.Snapshot())
	require.True(t, ok)
	require.Equal(t, versions.ID("3"), active.ID)

	err = svc.Revert(ctx, "", "3")
	_, isServer := ServerMessage(err)
	require.True(t, isServer)

	_, err = svc.Publish(ctx, "", PublishRequest{Version: "1.08.0", ChangeSummary: "dup"})
	msg, ok := ServerMessage(err)
	require.True(t, ok)
	require.Contains(t, msg, "already exists")
	require.Equal(t, 2, svc.Calls("publish"))
}

func TestStaticServiceFailWith(t *testing.T) {
	t.Parallel()

	svc := NewStaticService([]versions.Record{})
	svc.FailWith(ErrUnavailable)

	_, err := svc.List(context.Background(), "")
	require.ErrorIs(t, err, ErrUnavailable)

	svc.FailWith(nil)
	list, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, list)
}
