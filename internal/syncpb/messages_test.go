package syncpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestDocumentRequest(t *testing.T) {
	in := &DocumentRequest{Collection: "sessions", ID: "s1", Fields: map[string]any{"title": "intro", "timestamp": int64(1700000000123)}}
	s, err := in.Struct()
	require.NoError(t, err)

	out, err := ParseDocumentRequest(s)
	require.NoError(t, err)
	assert.Equal(t, "sessions", out.Collection)
	assert.Equal(t, "s1", out.ID)
	assert.Equal(t, "intro", out.Fields["title"])
	assert.Equal(t, float64(1700000000123), out.Fields["timestamp"], "numbers travel as doubles")

	s, err = (&DocumentRequest{Collection: "c", ID: "d"}).Struct()
	require.NoError(t, err)
	out, err = ParseDocumentRequest(s)
	require.NoError(t, err)
	assert.Nil(t, out.Fields)

	_, err = ParseDocumentRequest(&structpb.Struct{})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOperationRequest(t *testing.T) {
	in := &OperationRequest{Collection: "c", ID: "d", Kind: "update", Payload: map[string]any{"n": 1}, Timestamp: 42}
	s, err := in.Struct()
	require.NoError(t, err)

	out, err := ParseOperationRequest(s)
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.Timestamp)
	assert.Equal(t, "update", out.Kind)
	assert.Equal(t, map[string]any{"n": float64(1)}, out.Payload)

	noTS, err := structpb.NewStruct(map[string]any{"collection": "c", "id": "d", "kind": "create"})
	require.NoError(t, err)
	_, err = ParseOperationRequest(noTS)
	assert.ErrorIs(t, err, ErrMalformed)

	noKind, err := structpb.NewStruct(map[string]any{"collection": "c", "id": "d", "timestamp": 1})
	require.NoError(t, err)
	_, err = ParseOperationRequest(noKind)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "skipped", ParseOutcome(NewOutcome("skipped")))
	assert.Equal(t, "", ParseOutcome(nil))
}

func TestPresignMessages(t *testing.T) {
	req, err := (&PresignRequest{Path: "a/b.png", Metadata: map[string]string{"session": "s1"}}).Struct()
	require.NoError(t, err)
	pr, err := ParsePresignRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "a/b.png", pr.Path)
	assert.Equal(t, map[string]string{"session": "s1"}, pr.Metadata)

	_, err = ParsePresignRequest(&structpb.Struct{})
	assert.ErrorIs(t, err, ErrMalformed)

	resp, err := (&PresignResponse{URL: "https://s3/x", Method: "PUT", Headers: map[string]string{"X-Amz-Meta-Session": "s1"}}).Struct()
	require.NoError(t, err)
	out, err := ParsePresignResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/x", out.URL)
	assert.Equal(t, "PUT", out.Method)
	assert.Equal(t, map[string]string{"X-Amz-Meta-Session": "s1"}, out.Headers)

	_, err = ParsePresignResponse(&structpb.Struct{})
	assert.ErrorIs(t, err, ErrMalformed)
}
