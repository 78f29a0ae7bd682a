package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

// Sync reloads the history from the deployment API. Every call takes a sequence number and
// a result that arrives after a newer call was issued is dropped with ErrStaleResult.
func (w *Workspace) Sync(ctx context.Context, token string) (State, error) {
	w.mu.Lock()
	w.issued++
	seq := w.issued
	w.loading = true
	w.syncErr = ""
	w.mu.Unlock()

	list, err := w.service().List(ctx, token)

	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.issued {
		w.logger.Debug("discarding stale version fetch", zap.Uint64("seq", seq), zap.Uint64("latest", w.issued))
		return w.snapshotLocked(), ErrStaleResult
	}

	w.loading = false
	w.loaded = true
	if err != nil {
		w.logger.Warn("version fetch failed", zap.Error(err), zap.Bool("offline_fallback", w.fallback))
		if w.fallback {
			w.list = versions.Fallback()
			w.offline = true
			w.unconfirmed = false
			w.syncErr = msgSyncOffline
			w.recorder.RecordFallback("sync")
		} else {
			w.syncErr = msgSyncFailed
		}
		return w.snapshotLocked(), fmt.Errorf("console: sync: %w", err)
	}

	w.list = versions.Clone(list)
	if w.list == nil {
		w.list = []versions.Record{}
	}
	w.offline = false
	w.unconfirmed = false
	w.lastSynced = w.now()
	return w.snapshotLocked(), nil
}

func (w *Workspace) service() deployapi.Service {
	if w.svc == nil {
		return unconfiguredService{}
	}
	return w.svc
}

type unconfiguredService struct{}

func (unconfiguredService) List(context.Context, string) ([]versions.Record, error) {
	return nil, fmt.Errorf("%w: %w", deployapi.ErrUnavailable, deployapi.ErrNotConfigured)
}

func (unconfiguredService) Publish(context.Context, string, deployapi.PublishRequest) (*deployapi.PublishResult, error) {
	return nil, fmt.Errorf("%w: %w", deployapi.ErrUnavailable, deployapi.ErrNotConfigured)
}

func (unconfiguredService) Revert(context.Context, string, versions.ID) error {
	return fmt.Errorf("%w: %w", deployapi.ErrUnavailable, deployapi.ErrNotConfigured)
}
