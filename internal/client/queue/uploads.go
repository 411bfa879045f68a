package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/repositories/uploads"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/metrics"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
)

// StepResult tells what one UploadQueue.Process call did.
type StepResult int

const (
	StepIdle StepResult = iota
	StepBusy
	StepDeferred
	StepCompleted
	StepFailed
	StepDeadLettered
)

func (r StepResult) String() string {
	switch r {
	case StepBusy:
		return "busy"
	case StepDeferred:
		return "deferred"
	case StepCompleted:
		return "completed"
	case StepFailed:
		return "failed"
	case StepDeadLettered:
		return "dead-lettered"
	}
	return "idle"
}

// UploadQueue sends queued files to a blob store one at a time, head first.
type UploadQueue struct {
	blobs remote.BlobStore
	repo  uploads.Repository
	log   logging.Logger
	cfg   settings

	mu          sync.Mutex
	items       []models.Upload
	nextAttempt time.Time
	online      bool
	closed      bool
	// loaded is set by Initialize; until then nothing is written, so the
	// persisted queue cannot be overwritten before it has been read.
	loaded      bool
	retry       wakeup

	persistMu sync.Mutex

	processing atomic.Bool
	rerun      atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewUploadQueue(blobs remote.BlobStore, repo uploads.Repository, log logging.Logger, opts ...Option) *UploadQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &UploadQueue{
		blobs:  blobs,
		repo:   repo,
		log:    log.With("module", "upload-queue"),
		cfg:    applyOptions(opts),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue appends an upload of the file at filePath to destinationPath. The
// file must stay in place until the upload completes.
func (q *UploadQueue) Enqueue(filePath, destinationPath string, metadata map[string]string, callbacks models.UploadCallbacks) error {
	if filePath == "" || destinationPath == "" {
		return fmt.Errorf("%w: file path and destination path are required", common.ErrInvalidInput)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	u := &models.LiveUpload{
		QueuedUpload: models.QueuedUpload{
			ID:              q.cfg.newID(),
			FilePath:        filePath,
			DestinationPath: destinationPath,
			Metadata:        maps.Clone(metadata),
			EnqueuedAt:      q.cfg.now().UnixMilli(),
		},
		Callbacks: callbacks,
	}
	q.items = append(q.items, u)
	online := q.online
	q.mu.Unlock()

	q.log.Debug(q.ctx, "upload enqueued", "id", u.ID, "destination", destinationPath)
	q.persist(q.ctx)

	if online {
		q.trigger()
	}
	return nil
}

func (q *UploadQueue) QueueLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns copies of the queued upload records in order.
func (q *UploadQueue) Pending() []models.QueuedUpload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.recordsLocked()
}

// Uploading reports whether an upload is in flight.
func (q *UploadQueue) Uploading() bool {
	return q.processing.Load()
}

// OnNetworkChange resumes processing when online. Going offline stops timed
// retries; an upload already in flight runs to its own completion or error.
func (q *UploadQueue) OnNetworkChange(online bool) {
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

// Initialize reloads the persisted waiting list. Reloaded entries have no
// callbacks; their outcomes are only logged.
func (q *UploadQueue) Initialize(ctx context.Context) error {
	stored, err := q.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load uploads: %w", err)
	}

	q.mu.Lock()
	q.loaded = true
	known := make(map[string]struct{}, len(stored))
	merged := make([]models.Upload, 0, len(stored)+len(q.items))
	for _, rec := range stored {
		known[rec.ID] = struct{}{}
		merged = append(merged, &models.RecoveredUpload{QueuedUpload: *rec})
	}
	for _, u := range q.items {
		if _, ok := known[u.Record().ID]; !ok {
			merged = append(merged, u)
		}
	}
	q.items = merged
	online := q.online
	q.mu.Unlock()

	q.log.Info(ctx, "upload queue loaded", "persisted", len(stored), "pending", len(merged))
	q.persist(ctx)

	if online {
		q.trigger()
	}
	return nil
}

func (q *UploadQueue) trigger() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		q.run(q.ctx)
	}()
}

// run processes the queue until it is empty, offline, or waiting on a retry.
func (q *UploadQueue) run(ctx context.Context) {
	for ctx.Err() == nil {
		q.mu.Lock()
		online := q.online
		q.mu.Unlock()
		if !online {
			return
		}

		switch q.Process(ctx) {
		case StepCompleted, StepDeadLettered:
			continue
		case StepBusy:
			// the running step picks the flag up when it ends
			q.rerun.Store(true)
			if q.processing.Load() {
				return
			}
			continue
		case StepFailed, StepDeferred:
			q.scheduleRetry()
			return
		default:
			return
		}
	}
}

// Process handles the head of the queue once: it uploads the file, or records
// the failure. Only one step runs at a time; work requested while it ran is
// processed in the background once it ends.
func (q *UploadQueue) Process(ctx context.Context) StepResult {
	if !q.processing.CompareAndSwap(false, true) {
		return StepBusy
	}
	defer func() {
		// processing is cleared before rerun is read
		q.processing.Store(false)
		if q.rerun.CompareAndSwap(true, false) {
			q.trigger()
		}
	}()

	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return StepIdle
	}
	head := q.items[0]
	now := q.cfg.now()
	if q.nextAttempt.After(now) {
		q.mu.Unlock()
		return StepDeferred
	}
	rec := *head.Record()
	q.mu.Unlock()

	url, err := q.upload(ctx, head, rec)
	if err != nil {
		if ctx.Err() != nil {
			return StepIdle
		}
		return q.fail(ctx, head, err)
	}

	q.mu.Lock()
	q.removeLocked(rec.ID)
	q.nextAttempt = time.Time{}
	q.mu.Unlock()
	q.persist(ctx)

	q.cfg.metrics.Observe(metrics.ResultApplied)
	switch u := head.(type) {
	case *models.LiveUpload:
		if u.Callbacks.OnComplete != nil {
			u.Callbacks.OnComplete(url)
		}
	case *models.RecoveredUpload:
		q.log.Info(ctx, "recovered upload completed", "id", rec.ID, "url", url)
	}
	q.log.Debug(ctx, "upload completed", "id", rec.ID, "destination", rec.DestinationPath)
	return StepCompleted
}

func (q *UploadQueue) upload(ctx context.Context, head models.Upload, rec models.QueuedUpload) (string, error) {
	f, err := os.Open(rec.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileMissing, rec.FilePath)
		}
		return "", fmt.Errorf("open %s: %w", rec.FilePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", rec.FilePath, err)
	}

	var (
		progress remote.ProgressFunc
		finished atomic.Bool
	)
	live, ok := head.(*models.LiveUpload)
	if ok && live.Callbacks.OnProgress != nil {
		progress = func(transferred, total int64) {
			if total > 0 {
				finished.Store(transferred >= total)
				live.Callbacks.OnProgress(float64(transferred) * 100 / float64(total))
			}
		}
	}

	if err := q.blobs.Upload(ctx, rec.DestinationPath, f, info.Size(), rec.Metadata, progress); err != nil {
		return "", err
	}
	// empty files never report a transfer
	if progress != nil && !finished.Load() {
		live.Callbacks.OnProgress(100)
	}
	url, err := q.blobs.URL(ctx, rec.DestinationPath)
	if err != nil {
		return "", fmt.Errorf("retrieval url: %w", err)
	}
	return url, nil
}

func (q *UploadQueue) fail(ctx context.Context, head models.Upload, cause error) StepResult {
	now := q.cfg.now()

	q.mu.Lock()
	rec := head.Record()
	rec.Attempts++
	rec.LastError = cause.Error()
	attempts := rec.Attempts
	exhausted := q.cfg.policy.Exhausted(attempts) || errors.Is(cause, ErrFileMissing)
	// also covers a failed dead-letter write, which leaves the head in place
	q.nextAttempt = now.Add(q.cfg.policy.Delay(attempts))
	dead := models.DeadUpload{QueuedUpload: *rec, DeadAt: now.UnixMilli()}
	q.mu.Unlock()

	q.cfg.metrics.Observe(metrics.ResultFailed)
	switch u := head.(type) {
	case *models.LiveUpload:
		if u.Callbacks.OnError != nil {
			u.Callbacks.OnError(cause)
		}
	case *models.RecoveredUpload:
		q.log.Warn(ctx, "recovered upload failed", "id", rec.ID, "error", cause)
	}
	q.log.Warn(ctx, "upload failed", "id", dead.ID, "attempts", attempts, "error", cause)

	result := StepFailed
	if exhausted {
		if err := q.repo.AddDead(ctx, &dead); err != nil {
			q.log.Error(ctx, "failed to dead-letter upload", "id", dead.ID, "error", err)
		} else {
			q.mu.Lock()
			q.removeLocked(dead.ID)
			q.nextAttempt = time.Time{}
			q.mu.Unlock()
			q.cfg.metrics.AddDead()
			q.cfg.metrics.Observe(metrics.ResultDead)
			q.log.Error(ctx, "upload dead-lettered", "id", dead.ID, "attempts", attempts, "error", cause)
			result = StepDeadLettered
		}
	}

	q.persist(ctx)
	return result
}

func (q *UploadQueue) removeLocked(id string) bool {
	i := slices.IndexFunc(q.items, func(u models.Upload) bool { return u.Record().ID == id })
	if i < 0 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

func (q *UploadQueue) scheduleRetry() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.online || q.closed || q.nextAttempt.IsZero() {
		return
	}
	d := q.nextAttempt.Sub(q.cfg.now())
	if d <= 0 {
		return
	}
	q.retry.schedule(d, q.trigger)
}

func (q *UploadQueue) recordsLocked() []models.QueuedUpload {
	out := make([]models.QueuedUpload, len(q.items))
	for i, u := range q.items {
		out[i] = *u.Record()
	}
	return out
}

func (q *UploadQueue) persist(ctx context.Context) {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	q.mu.Lock()
	if !q.loaded {
		n := len(q.items)
		q.mu.Unlock()
		q.cfg.metrics.SetPending(n)
		return
	}
	records := q.recordsLocked()
	q.mu.Unlock()

	items := make([]*models.QueuedUpload, len(records))
	for i := range records {
		items[i] = &records[i]
	}
	q.cfg.metrics.SetPending(len(items))

	if err := q.repo.ReplaceAll(context.WithoutCancel(ctx), items); err != nil {
		q.log.Error(ctx, "failed to persist upload queue", "error", err)
	}
}

// DeadLetters lists uploads that exhausted their retry budget.
func (q *UploadQueue) DeadLetters(ctx context.Context) ([]*models.DeadUpload, error) {
	return q.repo.GetAllDead(ctx)
}

// Discard drops a waiting or dead-lettered upload by id. The upload in flight
// cannot be discarded.
func (q *UploadQueue) Discard(ctx context.Context, id string) error {
	q.mu.Lock()
	inFlight := q.processing.Load() && len(q.items) > 0 && q.items[0].Record().ID == id
	removed := !inFlight && q.removeLocked(id)
	q.mu.Unlock()

	if inFlight {
		return fmt.Errorf("upload %s is in flight", id)
	}
	if removed {
		q.log.Info(ctx, "upload discarded", "id", id)
		q.persist(ctx)
		return nil
	}
	if err := q.repo.DeleteDead(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("upload %s: %w", id, common.ErrNotFound)
		}
		return err
	}
	q.log.Info(ctx, "dead upload discarded", "id", id)
	return nil
}

// RequeueDeadLetters appends every dead-lettered upload to the end of the
// queue with a fresh retry budget.
func (q *UploadQueue) RequeueDeadLetters(ctx context.Context) (int, error) {
	dead, err := q.repo.GetAllDead(ctx)
	if err != nil {
		return 0, err
	}
	if len(dead) == 0 {
		return 0, nil
	}

	q.mu.Lock()
	for _, d := range dead {
		rec := d.QueuedUpload
		rec.Attempts = 0
		rec.LastError = ""
		q.items = append(q.items, &models.RecoveredUpload{QueuedUpload: rec})
	}
	online := q.online
	q.mu.Unlock()

	q.persist(ctx)
	for _, d := range dead {
		if err := q.repo.DeleteDead(ctx, d.ID); err != nil {
			q.log.Warn(ctx, "failed to remove requeued dead upload", "id", d.ID, "error", err)
		}
	}
	q.log.Info(ctx, "dead uploads requeued", "count", len(dead))

	if online {
		q.trigger()
	}
	return len(dead), nil
}

// Close stops background processing and waits for it to return.
func (q *UploadQueue) Close() {
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
