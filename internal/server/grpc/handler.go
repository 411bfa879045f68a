package grpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := syncpb.ParseDocumentRequest(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	doc, err := s.documents.Get(ctx, r.Collection, r.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp, err := structpb.NewStruct(doc.Fields)
	if err != nil {
		return nil, s.toStatus(ctx, fmt.Errorf("encode document: %w", err))
	}
	return resp, nil
}

func (s *GRPCServer) SetDocument(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	r, err := parseWrite(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := s.documents.Set(ctx, r.Collection, r.ID, r.Fields); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) UpdateDocument(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	r, err := parseWrite(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := s.documents.Update(ctx, r.Collection, r.ID, r.Fields); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func parseWrite(req *structpb.Struct) (*syncpb.DocumentRequest, error) {
	r, err := syncpb.ParseDocumentRequest(req)
	if err != nil {
		return nil, err
	}
	if r.Fields == nil {
		return nil, fmt.Errorf("%w: fields are required", syncpb.ErrMalformed)
	}
	return r, nil
}

func (s *GRPCServer) ApplyOperation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := syncpb.ParseOperationRequest(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	m := remote.Mutation{
		Collection: r.Collection,
		DocumentID: r.ID,
		Kind:       remote.Kind(r.Kind),
		Payload:    r.Payload,
		Timestamp:  r.Timestamp,
	}
	if !m.Kind.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown operation kind %q", r.Kind)
	}

	outcome, err := remote.Apply(ctx, s.documents, m)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	subject, _ := SubjectFromContext(ctx)
	s.logger.Debug(ctx, "Operation applied",
		"subject", subject, "collection", m.Collection, "id", m.DocumentID,
		"kind", m.Kind, "outcome", outcome.String())

	return syncpb.NewOutcome(outcome.String()), nil
}

func (s *GRPCServer) PresignUpload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.blobs == nil {
		return nil, status.Error(codes.Unimplemented, "blob storage is not configured")
	}
	r, err := syncpb.ParsePresignRequest(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	presigned, err := s.blobs.PresignPut(ctx, r.Path, r.Metadata)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.encodePresigned(ctx, presigned)
}

func (s *GRPCServer) PresignDownload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.blobs == nil {
		return nil, status.Error(codes.Unimplemented, "blob storage is not configured")
	}
	r, err := syncpb.ParsePresignRequest(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	url, err := s.blobs.PresignGet(ctx, r.Path)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.encodePresigned(ctx, &syncpb.PresignResponse{URL: url, Method: http.MethodGet})
}

func (s *GRPCServer) encodePresigned(ctx context.Context, r *syncpb.PresignResponse) (*structpb.Struct, error) {
	resp, err := r.Struct()
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return resp, nil
}

// toStatus converts domain errors into gRPC statuses. Unexpected errors are
// logged and reported as Internal without detail.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, syncpb.ErrMalformed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
