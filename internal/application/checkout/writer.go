package checkout

import (
	"context"
	"errors"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// errBeforeWrite marks a connectivity failure of the order insert: nothing was
// written so the order can still be kept locally.
var errBeforeWrite = errors.New("order row not written")

// twoPhaseWriter writes the order row, then all its lines. A failed line write
// is compensated by deleting the order row.
type twoPhaseWriter struct {
	repo   order.Repository
	logger *zap.Logger
}

func (w *twoPhaseWriter) write(ctx context.Context, sub *order.Submission, o *order.Order) error {
	if err := w.step(sub, order.StateWritingOrder, o); err != nil {
		return err
	}
	if err := w.repo.CreateOrder(ctx, o); err != nil {
		if shared.IsConnectivityError(err) {
			return errors.Join(errBeforeWrite, err)
		}
		_ = w.step(sub, order.StateRejected, o)
		if errors.Is(err, shared.ErrAlreadyExists) {
			return err
		}
		return order.ErrPersistenceFailure.Wrap(err)
	}

	if err := w.step(sub, order.StateWritingLines, o); err != nil {
		return err
	}
	lineErr := w.repo.CreateLines(ctx, o.ID, o.Lines)
	if lineErr == nil {
		return w.step(sub, order.StateCommitted, o)
	}

	_ = w.step(sub, order.StateCompensating, o)
	if delErr := w.repo.DeleteOrder(ctx, o.ID); delErr != nil {
		w.logger.Error("order left without lines",
			zap.String("order_id", o.ID.String()),
			zap.String("reason", delErr.Error()),
			zap.NamedError("line_error", lineErr),
		)
		_ = w.step(sub, order.StateRejected, o)
		return order.OrphanedOrder(o.ID, lineErr, delErr)
	}
	_ = w.step(sub, order.StateRejected, o)

	if errors.Is(lineErr, order.ErrInsufficientStock) || errors.Is(lineErr, shared.ErrUnavailable) {
		return lineErr
	}
	return order.ErrPersistenceFailure.Wrap(lineErr)
}

func (w *twoPhaseWriter) step(sub *order.Submission, next order.SubmissionState, o *order.Order) error {
	from := sub.State()
	if err := sub.To(next); err != nil {
		return err
	}
	w.logger.Debug("submission transition",
		zap.String("order_id", o.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)
	return nil
}
