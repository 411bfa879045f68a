package grpc

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

func mustStruct(t *testing.T, s interface{ Struct() (*structpb.Struct, error) }) *structpb.Struct {
	t.Helper()
	out, err := s.Struct()
	require.NoError(t, err)
	return out
}

func applyReq(t *testing.T, kind string, ts int64, payload map[string]any) *structpb.Struct {
	return mustStruct(t, &syncpb.OperationRequest{
		Collection: "students", ID: "s1", Kind: kind, Payload: payload, Timestamp: ts,
	})
}

func TestPing_OK(t *testing.T) {
	s := newServer(newMemStore(), nil)
	resp, err := s.Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestDocuments_SetGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newServer(store, nil)

	_, err := s.SetDocument(ctx, mustStruct(t, &syncpb.DocumentRequest{
		Collection: "students", ID: "s1", Fields: map[string]any{"name": "Ann"},
	}))
	require.NoError(t, err)

	_, err = s.UpdateDocument(ctx, mustStruct(t, &syncpb.DocumentRequest{
		Collection: "students", ID: "s1", Fields: map[string]any{"grade": 3.0},
	}))
	require.NoError(t, err)

	resp, err := s.GetDocument(ctx, mustStruct(t, &syncpb.DocumentRequest{Collection: "students", ID: "s1"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann", "grade": 3.0}, resp.AsMap())
}

func TestDocuments_ErrorCodes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newServer(store, nil)

	_, err := s.GetDocument(ctx, mustStruct(t, &syncpb.DocumentRequest{Collection: "students", ID: "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = s.UpdateDocument(ctx, mustStruct(t, &syncpb.DocumentRequest{
		Collection: "students", ID: "nope", Fields: map[string]any{"a": 1.0},
	}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = s.GetDocument(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.SetDocument(ctx, mustStruct(t, &syncpb.DocumentRequest{Collection: "students", ID: "s1"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	store.err = errors.New("connection reset")
	_, err = s.GetDocument(ctx, mustStruct(t, &syncpb.DocumentRequest{Collection: "students", ID: "s1"}))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())
}

func TestApplyOperation_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newServer(store, nil)

	resp, err := s.ApplyOperation(ctx, applyReq(t, "create", 2000, map[string]any{"name": "Ann"}))
	require.NoError(t, err)
	assert.Equal(t, "applied", syncpb.ParseOutcome(resp))

	// older writer loses
	resp, err = s.ApplyOperation(ctx, applyReq(t, "update", 1000, map[string]any{"name": "Old"}))
	require.NoError(t, err)
	assert.Equal(t, "skipped", syncpb.ParseOutcome(resp))

	// equal timestamp applies
	resp, err = s.ApplyOperation(ctx, applyReq(t, "update", 2000, map[string]any{"name": "Bob"}))
	require.NoError(t, err)
	assert.Equal(t, "applied", syncpb.ParseOutcome(resp))

	resp, err = s.ApplyOperation(ctx, applyReq(t, "delete", 3000, nil))
	require.NoError(t, err)
	assert.Equal(t, "applied", syncpb.ParseOutcome(resp))

	doc, err := store.Get(ctx, "students", "s1")
	require.NoError(t, err)
	assert.True(t, doc.Deleted())
	assert.Equal(t, int64(3000), doc.Timestamp())
}

func TestApplyOperation_Errors(t *testing.T) {
	ctx := context.Background()
	s := newServer(newMemStore(), nil)

	_, err := s.ApplyOperation(ctx, applyReq(t, "upsert", 1, nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.ApplyOperation(ctx, applyReq(t, "update", 1, map[string]any{"a": 1.0}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = s.ApplyOperation(ctx, mustStruct(t, &syncpb.DocumentRequest{Collection: "c", ID: "i"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestApplyOperation_UsesConditionalWriter(t *testing.T) {
	store := &condStore{memStore: newMemStore()}
	s := newServer(store, nil)

	resp, err := s.ApplyOperation(context.Background(), applyReq(t, "create", 5, map[string]any{"x": 1.0}))
	require.NoError(t, err)
	assert.Equal(t, "skipped", syncpb.ParseOutcome(resp))
	require.Len(t, store.applied, 1)
	assert.Equal(t, remote.Mutation{
		Collection: "students", DocumentID: "s1", Kind: remote.KindCreate,
		Payload: map[string]any{"x": 1.0}, Timestamp: 5,
	}, store.applied[0])
}

func TestPresign(t *testing.T) {
	ctx := context.Background()
	p := &fakePresigner{
		put: &syncpb.PresignResponse{URL: "http://s3/put", Method: http.MethodPut, Headers: map[string]string{"X-Amz-Meta-Student": "s1"}},
		get: "http://s3/get",
	}
	s := newServer(newMemStore(), p)

	resp, err := s.PresignUpload(ctx, mustStruct(t, &syncpb.PresignRequest{Path: "rec/1.wav", Metadata: map[string]string{"student": "s1"}}))
	require.NoError(t, err)
	put, err := syncpb.ParsePresignResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, p.put, put)
	assert.Equal(t, "rec/1.wav", p.gotKey)
	assert.Equal(t, map[string]string{"student": "s1"}, p.gotMD)

	resp, err = s.PresignDownload(ctx, mustStruct(t, &syncpb.PresignRequest{Path: "rec/1.wav"}))
	require.NoError(t, err)
	get, err := syncpb.ParsePresignResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "http://s3/get", get.URL)
	assert.Equal(t, http.MethodGet, get.Method)
}

func TestPresign_Errors(t *testing.T) {
	ctx := context.Background()

	s := newServer(newMemStore(), nil)
	_, err := s.PresignUpload(ctx, mustStruct(t, &syncpb.PresignRequest{Path: "a"}))
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	p := &fakePresigner{err: common.ErrInvalidInput}
	s = newServer(newMemStore(), p)
	_, err = s.PresignDownload(ctx, mustStruct(t, &syncpb.PresignRequest{Path: "../x"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.PresignUpload(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus_Context(t *testing.T) {
	s := newServer(newMemStore(), nil)
	assert.Equal(t, codes.Canceled, status.Code(s.toStatus(context.Background(), context.Canceled)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(s.toStatus(context.Background(), context.DeadlineExceeded)))
}
