package syncpb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

var ErrMalformed = errors.New("malformed message")

// Struct keys shared by requests and responses.
const (
	keyCollection = "collection"
	keyID         = "id"
	keyFields     = "fields"
	keyKind       = "kind"
	keyPayload    = "payload"
	keyTimestamp  = "timestamp"
	keyOutcome    = "outcome"
	keyPath       = "path"
	keyMetadata   = "metadata"
	keyURL        = "url"
	keyMethod     = "method"
	keyHeaders    = "headers"
)

// DocumentRequest addresses a document, optionally with fields to write.
type DocumentRequest struct {
	Collection string
	ID         string
	Fields     map[string]any
}

func (r *DocumentRequest) Struct() (*structpb.Struct, error) {
	m := map[string]any{keyCollection: r.Collection, keyID: r.ID}
	if r.Fields != nil {
		m[keyFields] = r.Fields
	}
	return structpb.NewStruct(m)
}

func ParseDocumentRequest(s *structpb.Struct) (*DocumentRequest, error) {
	r := &DocumentRequest{
		Collection: stringField(s, keyCollection),
		ID:         stringField(s, keyID),
		Fields:     structMap(s.GetFields()[keyFields]),
	}
	if r.Collection == "" || r.ID == "" {
		return nil, fmt.Errorf("%w: collection and id are required", ErrMalformed)
	}
	return r, nil
}

// OperationRequest is a conditional write: it is applied unless the stored
// document has a newer timestamp.
type OperationRequest struct {
	Collection string
	ID         string
	Kind       string
	Payload    map[string]any
	Timestamp  int64
}

func (r *OperationRequest) Struct() (*structpb.Struct, error) {
	m := map[string]any{
		keyCollection: r.Collection,
		keyID:         r.ID,
		keyKind:       r.Kind,
		keyTimestamp:  r.Timestamp,
	}
	if r.Payload != nil {
		m[keyPayload] = r.Payload
	}
	return structpb.NewStruct(m)
}

func ParseOperationRequest(s *structpb.Struct) (*OperationRequest, error) {
	ts, ok := s.GetFields()[keyTimestamp].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, fmt.Errorf("%w: timestamp is required", ErrMalformed)
	}
	r := &OperationRequest{
		Collection: stringField(s, keyCollection),
		ID:         stringField(s, keyID),
		Kind:       stringField(s, keyKind),
		Payload:    structMap(s.GetFields()[keyPayload]),
		Timestamp:  int64(ts.NumberValue),
	}
	if r.Collection == "" || r.ID == "" || r.Kind == "" {
		return nil, fmt.Errorf("%w: collection, id and kind are required", ErrMalformed)
	}
	return r, nil
}

// NewOutcome builds an ApplyOperation response.
func NewOutcome(outcome string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{keyOutcome: structpb.NewStringValue(outcome)}}
}

func ParseOutcome(s *structpb.Struct) string {
	return stringField(s, keyOutcome)
}

// PresignRequest asks for a presigned URL for an object path.
type PresignRequest struct {
	Path     string
	Metadata map[string]string
}

func (r *PresignRequest) Struct() (*structpb.Struct, error) {
	m := map[string]any{keyPath: r.Path}
	if len(r.Metadata) > 0 {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		m[keyMetadata] = meta
	}
	return structpb.NewStruct(m)
}

func ParsePresignRequest(s *structpb.Struct) (*PresignRequest, error) {
	r := &PresignRequest{
		Path:     stringField(s, keyPath),
		Metadata: stringMap(s.GetFields()[keyMetadata].GetStructValue()),
	}
	if r.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrMalformed)
	}
	return r, nil
}

// PresignResponse is a presigned request the client performs itself.
type PresignResponse struct {
	URL     string
	Method  string
	Headers map[string]string
}

func (r *PresignResponse) Struct() (*structpb.Struct, error) {
	headers := make(map[string]any, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	return structpb.NewStruct(map[string]any{
		keyURL:     r.URL,
		keyMethod:  r.Method,
		keyHeaders: headers,
	})
}

func ParsePresignResponse(s *structpb.Struct) (*PresignResponse, error) {
	r := &PresignResponse{
		URL:     stringField(s, keyURL),
		Method:  stringField(s, keyMethod),
		Headers: stringMap(s.GetFields()[keyHeaders].GetStructValue()),
	}
	if r.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrMalformed)
	}
	return r, nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func structMap(v *structpb.Value) map[string]any {
	if sv := v.GetStructValue(); sv != nil {
		return sv.AsMap()
	}
	return nil
}

func stringMap(s *structpb.Struct) map[string]string {
	out := make(map[string]string, len(s.GetFields()))
	for k, v := range s.GetFields() {
		out[k] = v.GetStringValue()
	}
	return out
}
