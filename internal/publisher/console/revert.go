package console

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/deployapi"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/versions"
)

// Revert asks the deployment API to make id the live version. The target must exist and
// must not already be active.
func (w *Workspace) Revert(ctx context.Context, token string, id versions.ID) (Result, error) {
	w.mu.Lock()
	target, ok := versions.Find(w.list, id)
	if !ok {
		w.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
	}
	if target.Active() {
		w.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyActive, target.Version)
	}
	w.revert = ModalState{Kind: ModalRevert, Open: true, Submitting: true, Target: target}
	w.mu.Unlock()

	err := w.service().Revert(ctx, token, id)

	switch {
	case err == nil:
		w.mu.Lock()
		w.revert = ModalState{Kind: ModalRevert}
		w.mu.Unlock()

		if _, syncErr := w.Sync(ctx, token); syncErr != nil && !errors.Is(syncErr, ErrStaleResult) {
			w.logger.Warn("refresh after revert failed", zap.Error(syncErr))
		}
		target.Status = versions.StatusActive
		return Result{
			Notice: Notice{Tone: ToneSuccess, Message: fmt.Sprintf(msgRevertSucceeded, target.Version)},
			Record: target,
			State:  w.Snapshot(),
		}, nil

	case isServerError(err):
		msg, _ := deployapi.ServerMessage(err)
		w.mu.Lock()
		w.revert.Submitting = false
		w.revert.Error = fmt.Sprintf(msgRevertRejected, msg)
		notice := Notice{Tone: ToneError, Message: w.revert.Error}
		state := w.snapshotLocked()
		w.mu.Unlock()
		return Result{Notice: notice, State: state}, fmt.Errorf("console: revert %s: %w", target.Version, err)

	case w.fallback && errors.Is(err, deployapi.ErrUnavailable):
		w.mu.Lock()
		updated, found := versions.Activate(w.list, id)
		if found {
			w.list = updated
			w.unconfirmed = true
		}
		w.revert = ModalState{Kind: ModalRevert}
		state := w.snapshotLocked()
		w.mu.Unlock()
		if !found {
			// the list was replaced by a sync while the call was in flight
			return Result{State: state}, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
		}

		w.recorder.RecordFallback("revert")
		w.logger.Warn("revert applied locally", zap.String("version", target.Version), zap.Error(err))
		target.Status = versions.StatusActive
		return Result{
			Notice: Notice{Tone: ToneWarning, Message: fmt.Sprintf(msgRevertLocal, target.Version)},
			Record: target,
			Local:  true,
			State:  state,
		}, nil

	default:
		w.mu.Lock()
		w.revert.Submitting = false
		w.revert.Error = msgRevertNetwork
		notice := Notice{Tone: ToneError, Message: msgRevertNetwork}
		state := w.snapshotLocked()
		w.mu.Unlock()
		return Result{Notice: notice, State: state}, fmt.Errorf("console: revert %s: %w", target.Version, err)
	}
}
