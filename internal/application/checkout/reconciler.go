package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/scheduler"
	"github.com/farmstore/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdempotencyKey returns the idempotency key of an offline order
func IdempotencyKey(id uuid.UUID) string {
	return "offline-order:" + id.String()
}

// FlushResult counts what one reconciliation pass did
type FlushResult struct {
	Uploaded   []uuid.UUID `json:"uploaded"`
	Duplicates []uuid.UUID `json:"duplicates"`
	Rejected   []uuid.UUID `json:"rejected"`
	Remaining  int         `json:"remaining"`
	// Interrupted is true when the store became unreachable during the pass
	Interrupted bool `json:"interrupted"`
}

func (r *FlushResult) merge(o FlushResult) {
	r.Uploaded = append(r.Uploaded, o.Uploaded...)
	r.Duplicates = append(r.Duplicates, o.Duplicates...)
	r.Rejected = append(r.Rejected, o.Rejected...)
	r.Remaining += o.Remaining
	r.Interrupted = r.Interrupted || o.Interrupted
}

// ReconcilerConfig holds configuration for a Reconciler
type ReconcilerConfig struct {
	Interval       time.Duration
	IdempotencyTTL time.Duration
}

// Reconciler uploads offline orders once the store is reachable again.
// Each order keeps its client-assigned id, so an order is applied at most once
// even when a pass is repeated.
type Reconciler struct {
	queue   *OfflineQueue
	repo    order.Repository
	idem    shared.IdempotencyStore
	writer  *twoPhaseWriter
	config  ReconcilerConfig
	logger  *zap.Logger
	metrics *telemetry.StoreMetrics

	mu    sync.Mutex
	sched *scheduler.IntervalScheduler
}

// NewReconciler creates a reconciler
func NewReconciler(queue *OfflineQueue, repo order.Repository, idem shared.IdempotencyStore, config ReconcilerConfig, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = shared.DefaultIdempotencyTTL
	}
	return &Reconciler{
		queue:  queue,
		repo:   repo,
		idem:   idem,
		writer: &twoPhaseWriter{repo: repo, logger: logger},
		config: config,
		logger: logger,
	}
}

// SetStoreMetrics sets the metrics collector
func (r *Reconciler) SetStoreMetrics(m *telemetry.StoreMetrics) {
	r.metrics = m
}

// Start runs Flush every configured interval until Stop
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched != nil {
		return nil
	}
	sched, err := scheduler.NewIntervalScheduler(scheduler.IntervalSchedulerConfig{
		Name:       "offline-reconcile",
		Interval:   r.config.Interval,
		RunOnStart: true,
	}, func(ctx context.Context) error {
		_, err := r.Flush(ctx)
		return err
	}, r.logger)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	r.sched = sched
	return nil
}

// Stop stops the periodic run and waits for a pass in progress
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	sched := r.sched
	r.sched = nil
	r.mu.Unlock()
	if sched == nil {
		return nil
	}
	return sched.Stop(ctx)
}

// Flush uploads the pending orders of every session
func (r *Reconciler) Flush(ctx context.Context) (FlushResult, error) {
	var total FlushResult
	sessions, err := r.queue.Sessions(ctx)
	if err != nil {
		return total, err
	}
	for _, s := range sessions {
		res, err := r.FlushSession(ctx, s)
		total.merge(res)
		if err != nil {
			return total, err
		}
		if res.Interrupted {
			break
		}
	}
	r.metrics.RecordOfflinePending(ctx, total.Remaining)
	return total, nil
}

// FlushSession uploads the pending orders of sessionID, oldest first.
// A connectivity failure ends the pass and leaves the remaining orders queued.
func (r *Reconciler) FlushSession(ctx context.Context, sessionID string) (FlushResult, error) {
	var res FlushResult
	entries, err := r.queue.List(ctx, sessionID)
	if err != nil {
		return res, err
	}

	for i, e := range entries {
		outcome, err := r.replay(ctx, e)
		if err != nil && shared.IsConnectivityError(err) {
			r.logger.Warn("store unreachable, offline upload paused",
				zap.String("session_id", sessionID),
				zap.String("order_id", e.ID.String()),
				zap.Error(err),
			)
			res.Interrupted = true
			res.Remaining = len(entries) - i
			return res, nil
		}

		switch outcome {
		case telemetry.OutcomeCommitted:
			res.Uploaded = append(res.Uploaded, e.ID)
			err = r.queue.Remove(ctx, sessionID, e.ID)
		case telemetry.OutcomeDuplicate:
			res.Duplicates = append(res.Duplicates, e.ID)
			err = r.queue.Remove(ctx, sessionID, e.ID)
		case telemetry.OutcomeRejected:
			res.Rejected = append(res.Rejected, e.ID)
			err = r.queue.Reject(ctx, sessionID, e.ID, err.Error())
		default:
			r.logger.Error("offline order upload failed",
				zap.String("session_id", sessionID),
				zap.String("order_id", e.ID.String()),
				zap.Error(err),
			)
			res.Remaining++
			err = nil
		}
		r.metrics.RecordOfflineReconciled(ctx, outcome)
		if err != nil {
			return res, fmt.Errorf("update offline queue: %w", err)
		}
	}
	return res, nil
}

// replay returns a telemetry outcome and, for rejected or failed uploads, the cause
func (r *Reconciler) replay(ctx context.Context, e QueuedOrder) (string, error) {
	key := IdempotencyKey(e.ID)
	done, err := r.idem.IsProcessed(ctx, key)
	if err != nil {
		return telemetry.OutcomeFailed, err
	}
	if done {
		return telemetry.OutcomeDuplicate, nil
	}

	_, err = r.repo.FindByID(ctx, e.ID)
	switch {
	case err == nil:
		r.markProcessed(ctx, key)
		return telemetry.OutcomeDuplicate, nil
	case !errors.Is(err, shared.ErrNotFound):
		return telemetry.OutcomeFailed, err
	}

	// A row without lines is what an interrupted earlier upload leaves behind.
	exists, err := r.repo.Exists(ctx, e.ID)
	if err != nil {
		return telemetry.OutcomeFailed, err
	}
	if exists {
		if err := r.repo.DeleteOrder(ctx, e.ID); err != nil {
			return telemetry.OutcomeFailed, err
		}
	}

	o := e.ToOrder()
	sub := order.NewSubmission()
	_ = sub.To(order.StateValidating)
	err = r.writer.write(ctx, sub, o)
	switch {
	case err == nil:
		r.markProcessed(ctx, key)
		r.logger.Info("offline order uploaded", zap.String("order_id", o.ID.String()))
		return telemetry.OutcomeCommitted, nil
	case errors.Is(err, shared.ErrAlreadyExists):
		r.markProcessed(ctx, key)
		return telemetry.OutcomeDuplicate, nil
	case errors.Is(err, order.ErrInsufficientStock):
		return telemetry.OutcomeRejected, err
	default:
		return telemetry.OutcomeFailed, err
	}
}

func (r *Reconciler) markProcessed(ctx context.Context, key string) {
	if _, err := r.idem.MarkProcessed(ctx, key, r.config.IdempotencyTTL); err != nil {
		r.logger.Warn("failed to record offline upload", zap.String("key", key), zap.Error(err))
	}
}
