package queue

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/repositories/operations"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/metrics"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
)

// DrainResult summarizes one replay pass.
type DrainResult struct {
	// Busy is set when another pass was already running; nothing was done.
	Busy bool

	Applied  int
	Skipped  int
	Failed   int
	Dead     int
	Deferred int
}

// OperationQueue replays offline document mutations against a remote store.
type OperationQueue struct {
	store remote.DocumentStore
	repo  operations.Repository
	log   logging.Logger
	cfg   settings

	mu          sync.Mutex
	ops         []*models.PendingOperation
	nextAttempt map[string]time.Time
	online      bool
	closed      bool
	// loaded is set by Initialize; until then nothing is written, so the
	// persisted queue cannot be overwritten before it has been read.
	loaded      bool
	lastStamp   int64
	retry       wakeup

	// persistMu orders snapshot+write pairs so the newest snapshot is written last.
	persistMu sync.Mutex

	syncing atomic.Bool
	rerun   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOperationQueue(store remote.DocumentStore, repo operations.Repository, log logging.Logger, opts ...Option) *OperationQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &OperationQueue{
		store:       store,
		repo:        repo,
		log:         log.With("module", "operation-queue"),
		cfg:         applyOptions(opts),
		nextAttempt: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Enqueue records a mutation. It fails only for invalid input or a closed
// queue; remote and storage problems are handled in the background.
func (q *OperationQueue) Enqueue(collection, documentID string, kind remote.Kind, payload map[string]any) error {
	if collection == "" || documentID == "" {
		return fmt.Errorf("%w: collection and document id are required", common.ErrInvalidInput)
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown operation kind %q", common.ErrInvalidInput, kind)
	}
	if kind != remote.KindDelete && payload == nil {
		return fmt.Errorf("%w: %s requires a payload", common.ErrInvalidInput, kind)
	}
	if kind == remote.KindDelete {
		payload = nil
	} else {
		payload = maps.Clone(payload)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	op := &models.PendingOperation{
		ID:         q.cfg.newID(),
		Collection: collection,
		DocumentID: documentID,
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: q.stampLocked(),
	}
	q.ops = append(q.ops, op)
	online := q.online
	q.mu.Unlock()

	q.log.Debug(q.ctx, "operation enqueued", "id", op.ID, "kind", kind, "collection", collection, "document", documentID)
	q.persist(q.ctx)

	if online {
		q.trigger()
	}
	return nil
}

// stampLocked returns the current time in Unix ms, never smaller than a previous stamp.
func (q *OperationQueue) stampLocked() int64 {
	ts := q.cfg.now().UnixMilli()
	if ts < q.lastStamp {
		ts = q.lastStamp
	}
	q.lastStamp = ts
	return ts
}

func (q *OperationQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Pending returns a copy of the queued operations in order.
func (q *OperationQueue) Pending() []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Syncing reports whether a replay pass is running.
func (q *OperationQueue) Syncing() bool {
	return q.syncing.Load()
}

// OnNetworkChange records connectivity and starts a replay when online.
func (q *OperationQueue) OnNetworkChange(online bool) {
	q.mu.Lock()
	q.online = online
	if !online {
		q.retry.cancel()
	}
	q.mu.Unlock()

	q.log.Info(q.ctx, "network changed", "online", online)
	if online {
		q.trigger()
	}
}

// Initialize loads the persisted queue. Operations enqueued before the call
// are kept; the union is written back and replayed if online. The queue is
// not persisted before Initialize succeeds.
func (q *OperationQueue) Initialize(ctx context.Context) error {
	stored, err := q.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load operations: %w", err)
	}

	q.mu.Lock()
	q.loaded = true
	known := make(map[string]struct{}, len(stored))
	for _, op := range stored {
		known[op.ID] = struct{}{}
		q.lastStamp = max(q.lastStamp, op.EnqueuedAt)
	}
	merged := stored
	for _, op := range q.ops {
		if _, ok := known[op.ID]; !ok {
			merged = append(merged, op)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].EnqueuedAt < merged[j].EnqueuedAt })
	q.ops = merged
	online := q.online
	q.mu.Unlock()

	q.log.Info(ctx, "operation queue loaded", "persisted", len(stored), "pending", len(merged))
	q.persist(ctx)

	if online {
		q.trigger()
	}
	return nil
}

// trigger starts a background replay unless the queue is closed. When a pass
// is already running, another one follows it.
func (q *OperationQueue) trigger() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		for q.ctx.Err() == nil {
			if !q.Drain(q.ctx).Busy {
				return
			}
			// the running pass picks the flag up when it ends
			q.rerun.Store(true)
			if q.syncing.Load() {
				return
			}
		}
	}()
}

// Drain runs one replay pass synchronously. Only one pass runs at a time; a
// concurrent call returns with Busy set. Work requested while the pass ran is
// replayed in the background once it ends, whoever started the pass.
func (q *OperationQueue) Drain(ctx context.Context) DrainResult {
	if !q.syncing.CompareAndSwap(false, true) {
		return DrainResult{Busy: true}
	}
	defer func() {
		// syncing is cleared before rerun is read
		q.syncing.Store(false)
		if q.rerun.CompareAndSwap(true, false) {
			q.trigger()
		}
	}()

	q.mu.Lock()
	pass := slices.Clone(q.ops)
	q.mu.Unlock()

	var res DrainResult
	if len(pass) == 0 {
		return res
	}

	now := q.cfg.now()
	for _, op := range pass {
		if ctx.Err() != nil {
			break
		}
		if q.deferred(op.ID, now) {
			res.Deferred++
			continue
		}

		outcome, err := remote.Apply(ctx, q.store, op.Mutation())
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if q.fail(ctx, op, err, now) {
				res.Dead++
			} else {
				res.Failed++
			}
			continue
		}

		q.remove(op.ID)
		if outcome == remote.OutcomeSkipped {
			res.Skipped++
			q.cfg.metrics.Observe(metrics.ResultSkipped)
			q.log.Info(ctx, "remote document is newer, operation dropped",
				"id", op.ID, "collection", op.Collection, "document", op.DocumentID)
		} else {
			res.Applied++
			q.cfg.metrics.Observe(metrics.ResultApplied)
			q.log.Debug(ctx, "operation applied", "id", op.ID, "kind", op.Kind)
		}
	}

	q.persist(ctx)
	q.scheduleRetry()

	q.log.Info(ctx, "replay pass finished",
		"applied", res.Applied, "skipped", res.Skipped, "failed", res.Failed,
		"dead", res.Dead, "deferred", res.Deferred)
	return res
}

func (q *OperationQueue) deferred(id string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	next, ok := q.nextAttempt[id]
	return ok && next.After(now)
}

// fail records a failed attempt and reports whether op was dead-lettered.
func (q *OperationQueue) fail(ctx context.Context, op *models.PendingOperation, cause error, now time.Time) bool {
	q.mu.Lock()
	op.Attempts++
	op.LastError = cause.Error()
	attempts := op.Attempts
	exhausted := q.cfg.policy.Exhausted(attempts)
	// kept when the dead-letter write fails and op stays live
	q.nextAttempt[op.ID] = now.Add(q.cfg.policy.Delay(attempts))
	dead := models.DeadOperation{PendingOperation: *op, DeadAt: now.UnixMilli()}
	q.mu.Unlock()

	q.cfg.metrics.Observe(metrics.ResultFailed)
	q.log.Warn(ctx, "operation failed", "id", op.ID, "attempts", attempts, "error", cause)

	if !exhausted {
		return false
	}
	if err := q.repo.AddDead(ctx, &dead); err != nil {
		// keep it live rather than lose it
		q.log.Error(ctx, "failed to dead-letter operation", "id", op.ID, "error", err)
		return false
	}
	q.remove(op.ID)
	q.cfg.metrics.AddDead()
	q.cfg.metrics.Observe(metrics.ResultDead)
	q.log.Error(ctx, "operation dead-lettered", "id", op.ID, "attempts", attempts, "error", cause)
	return true
}

func (q *OperationQueue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.nextAttempt, id)
	i := slices.IndexFunc(q.ops, func(op *models.PendingOperation) bool { return op.ID == id })
	if i < 0 {
		return false
	}
	q.ops = slices.Delete(q.ops, i, i+1)
	return true
}

// scheduleRetry arms a wake-up for the earliest operation waiting in backoff.
func (q *OperationQueue) scheduleRetry() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.online || q.closed || len(q.nextAttempt) == 0 {
		return
	}
	var earliest time.Time
	for _, t := range q.nextAttempt {
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	d := earliest.Sub(q.cfg.now())
	if d <= 0 {
		return
	}
	q.retry.schedule(d, q.trigger)
}

func (q *OperationQueue) snapshotLocked() []models.PendingOperation {
	out := make([]models.PendingOperation, len(q.ops))
	for i, op := range q.ops {
		out[i] = *op
	}
	return out
}

// persist mirrors the in-memory queue to the repository. Failures are logged;
// the queue keeps working from memory.
func (q *OperationQueue) persist(ctx context.Context) {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	q.mu.Lock()
	if !q.loaded {
		n := len(q.ops)
		q.mu.Unlock()
		q.cfg.metrics.SetPending(n)
		return
	}
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	items := make([]*models.PendingOperation, len(snapshot))
	for i := range snapshot {
		items[i] = &snapshot[i]
	}
	q.cfg.metrics.SetPending(len(items))

	// a cancelled caller must not prevent the mirror from catching up
	if err := q.repo.ReplaceAll(context.WithoutCancel(ctx), items); err != nil {
		q.log.Error(ctx, "failed to persist operation queue", "error", err)
	}
}

// DeadLetters lists operations that exhausted their retry budget.
func (q *OperationQueue) DeadLetters(ctx context.Context) ([]*models.DeadOperation, error) {
	return q.repo.GetAllDead(ctx)
}

// Discard drops a live or dead-lettered operation by id.
func (q *OperationQueue) Discard(ctx context.Context, id string) error {
	if q.remove(id) {
		q.log.Info(ctx, "operation discarded", "id", id)
		q.persist(ctx)
		return nil
	}
	if err := q.repo.DeleteDead(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("operation %s: %w", id, common.ErrNotFound)
		}
		return err
	}
	q.log.Info(ctx, "dead operation discarded", "id", id)
	return nil
}

// RequeueDeadLetters moves every dead-lettered operation back into the queue
// with a fresh retry budget. Original timestamps are kept, so conflict
// resolution still compares against the time of the local edit.
func (q *OperationQueue) RequeueDeadLetters(ctx context.Context) (int, error) {
	dead, err := q.repo.GetAllDead(ctx)
	if err != nil {
		return 0, err
	}
	if len(dead) == 0 {
		return 0, nil
	}

	q.mu.Lock()
	for _, d := range dead {
		op := d.PendingOperation
		op.Attempts = 0
		op.LastError = ""
		q.ops = append(q.ops, &op)
	}
	sort.SliceStable(q.ops, func(i, j int) bool { return q.ops[i].EnqueuedAt < q.ops[j].EnqueuedAt })
	online := q.online
	q.mu.Unlock()

	q.persist(ctx)
	for _, d := range dead {
		if err := q.repo.DeleteDead(ctx, d.ID); err != nil {
			q.log.Warn(ctx, "failed to remove requeued dead letter", "id", d.ID, "error", err)
		}
	}
	q.log.Info(ctx, "dead operations requeued", "count", len(dead))

	if online {
		q.trigger()
	}
	return len(dead), nil
}

// Close stops background replays and waits for them to return.
func (q *OperationQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.retry.stop()
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}
