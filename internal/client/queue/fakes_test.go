package queue

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
)

var errUnavailable = errors.New("remote unavailable")

// docStore is an in-memory remote.DocumentStore.
type docStore struct {
	mu     sync.Mutex
	docs   map[string]map[string]any
	fail   map[string]error // keyed by collection/id
	writes []string         // collection/id in write order
	gets   int

	// block, when set, is received from before every write.
	block chan struct{}
}

func newDocStore() *docStore {
	return &docStore{docs: map[string]map[string]any{}, fail: map[string]error{}}
}

func key(c, id string) string { return c + "/" + id }

func (s *docStore) put(c, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key(c, id)] = fields
}

func (s *docStore) doc(c, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.docs[key(c, id)])
}

func (s *docStore) setFailure(c, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, key(c, id))
		return
	}
	s.fail[key(c, id)] = err
}

func (s *docStore) writeLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.writes)
}

func (s *docStore) Get(_ context.Context, c, id string) (*remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if err := s.fail[key(c, id)]; err != nil {
		return nil, err
	}
	f, ok := s.docs[key(c, id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &remote.Document{Collection: c, ID: id, Fields: maps.Clone(f)}, nil
}

func (s *docStore) write(ctx context.Context, c, id string, fn func(cur map[string]any, ok bool) (map[string]any, error)) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[key(c, id)]; err != nil {
		return err
	}
	cur, ok := s.docs[key(c, id)]
	next, err := fn(cur, ok)
	if err != nil {
		return err
	}
	s.docs[key(c, id)] = next
	s.writes = append(s.writes, key(c, id))
	return nil
}

func (s *docStore) Set(ctx context.Context, c, id string, fields map[string]any) error {
	return s.write(ctx, c, id, func(map[string]any, bool) (map[string]any, error) {
		return maps.Clone(fields), nil
	})
}

func (s *docStore) Update(ctx context.Context, c, id string, fields map[string]any) error {
	return s.write(ctx, c, id, func(cur map[string]any, ok bool) (map[string]any, error) {
		if !ok {
			return nil, common.ErrNotFound
		}
		next := maps.Clone(cur)
		maps.Copy(next, fields)
		return next, nil
	})
}

// condStore adds a native conditional write on top of docStore.
type condStore struct {
	*docStore
	applies atomic.Int32
}

func (s *condStore) Apply(ctx context.Context, m remote.Mutation) (remote.Outcome, error) {
	s.applies.Add(1)
	s.mu.Lock()
	cur, ok := s.docs[key(m.Collection, m.DocumentID)]
	s.mu.Unlock()
	if ok && (&remote.Document{Fields: cur}).NewerThan(m.Timestamp) {
		return remote.OutcomeSkipped, nil
	}
	return remote.OutcomeApplied, remote.Write(ctx, s.docStore, m)
}

// opRepo is an in-memory operations.Repository.
type opRepo struct {
	mu      sync.Mutex
	ops     []models.PendingOperation
	dead    map[string]models.DeadOperation
	saves   int
	saveErr error
	loadErr error
	deadErr error
}

func newOpRepo() *opRepo { return &opRepo{dead: map[string]models.DeadOperation{}} }

func (r *opRepo) ReplaceAll(_ context.Context, ops []*models.PendingOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.ops = r.ops[:0]
	for _, op := range ops {
		r.ops = append(r.ops, *op)
	}
	return nil
}

func (r *opRepo) GetAll(context.Context) ([]*models.PendingOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make([]*models.PendingOperation, len(r.ops))
	for i := range r.ops {
		op := r.ops[i]
		out[i] = &op
	}
	return out, nil
}

func (r *opRepo) stored() []models.PendingOperation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.ops)
}

func (r *opRepo) AddDead(_ context.Context, op *models.DeadOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deadErr != nil {
		return r.deadErr
	}
	r.dead[op.ID] = *op
	return nil
}

func (r *opRepo) GetAllDead(context.Context) ([]*models.DeadOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DeadOperation
	for _, d := range r.dead {
		out = append(out, &d)
	}
	slices.SortFunc(out, func(a, b *models.DeadOperation) int { return int(a.EnqueuedAt - b.EnqueuedAt) })
	return out, nil
}

func (r *opRepo) DeleteDead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dead[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.dead, id)
	return nil
}

// uploadRepo is an in-memory uploads.Repository.
type uploadRepo struct {
	mu      sync.Mutex
	items   []models.QueuedUpload
	dead    map[string]models.DeadUpload
	saveErr error
	deadErr error
}

func newUploadRepo() *uploadRepo { return &uploadRepo{dead: map[string]models.DeadUpload{}} }

func (r *uploadRepo) ReplaceAll(_ context.Context, items []*models.QueuedUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.items = r.items[:0]
	for _, u := range items {
		r.items = append(r.items, *u)
	}
	return nil
}

func (r *uploadRepo) GetAll(context.Context) ([]*models.QueuedUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.QueuedUpload, len(r.items))
	for i := range r.items {
		u := r.items[i]
		out[i] = &u
	}
	return out, nil
}

func (r *uploadRepo) stored() []models.QueuedUpload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

func (r *uploadRepo) AddDead(_ context.Context, u *models.DeadUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deadErr != nil {
		return r.deadErr
	}
	r.dead[u.ID] = *u
	return nil
}

func (r *uploadRepo) GetAllDead(context.Context) ([]*models.DeadUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DeadUpload
	for _, d := range r.dead {
		out = append(out, &d)
	}
	return out, nil
}

func (r *uploadRepo) DeleteDead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dead[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.dead, id)
	return nil
}

// blobStore is an in-memory remote.BlobStore that tracks concurrency.
type blobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	meta     map[string]map[string]string
	order    []string
	fail     map[string]error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func newBlobStore() *blobStore {
	return &blobStore{objects: map[string][]byte{}, meta: map[string]map[string]string{}, fail: map[string]error{}}
}

func (b *blobStore) setFailure(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, path)
		return
	}
	b.fail[path] = err
}

func (b *blobStore) uploaded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.order)
}

func (b *blobStore) Upload(ctx context.Context, path string, r io.Reader, size int64, metadata map[string]string, progress remote.ProgressFunc) error {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	err := b.fail[path]
	b.mu.Unlock()
	if err != nil {
		return err
	}

	var data []byte
	buf := make([]byte, 4)
	for {
		k, rerr := r.Read(buf)
		data = append(data, buf[:k]...)
		if k > 0 && progress != nil {
			progress(int64(len(data)), size)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = data
	b.meta[path] = metadata
	b.order = append(b.order, path)
	return nil
}

func (b *blobStore) URL(_ context.Context, path string) (string, error) {
	return "https://blobs.test/" + path, nil
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// seqIDs returns ids "1", "2", ...
func seqIDs() func() string {
	var n atomic.Int64
	return func() string {
		return strconv.FormatInt(n.Add(1), 10)
	}
}
