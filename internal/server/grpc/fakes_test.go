package grpc

import (
	"context"
	"maps"
	"sync"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

type memStore struct {
	mu   sync.Mutex
	docs map[string]map[string]any
	err  error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]map[string]any{}}
}

func (m *memStore) Get(_ context.Context, c, id string) (*remote.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.docs[c+"/"+id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &remote.Document{Collection: c, ID: id, Fields: maps.Clone(f)}, nil
}

func (m *memStore) Set(_ context.Context, c, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[c+"/"+id] = maps.Clone(fields)
	return nil
}

func (m *memStore) Update(_ context.Context, c, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	f, ok := m.docs[c+"/"+id]
	if !ok {
		return common.ErrNotFound
	}
	maps.Copy(f, fields)
	return nil
}

type condStore struct {
	*memStore
	applied []remote.Mutation
}

func (c *condStore) Apply(_ context.Context, m remote.Mutation) (remote.Outcome, error) {
	c.applied = append(c.applied, m)
	return remote.OutcomeSkipped, nil
}

type fakePresigner struct {
	put    *syncpb.PresignResponse
	get    string
	err    error
	gotKey string
	gotMD  map[string]string
}

func (f *fakePresigner) PresignPut(_ context.Context, key string, md map[string]string) (*syncpb.PresignResponse, error) {
	f.gotKey, f.gotMD = key, md
	return f.put, f.err
}

func (f *fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	f.gotKey = key
	return f.get, f.err
}

const testSecret = "k"

func newServer(docs remote.DocumentStore, blobs Presigner) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop(), docs, blobs, testSecret)
}
