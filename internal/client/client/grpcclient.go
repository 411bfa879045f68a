package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      syncpb.SyncServiceClient
	accessToken string
	timeout     time.Duration
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects lazily to endpointURL. timeout bounds every call;
// zero leaves deadlines to the caller.
func NewGRPCClient(endpointURL, accessToken string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, timeout: timeout}
	if err := c.initGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = syncpb.NewSyncServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	if _, err := s.client.Ping(ctx, &emptypb.Empty{}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	req, err := (&syncpb.DocumentRequest{Collection: collection, ID: id}).Struct()
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetDocument(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &remote.Document{Collection: collection, ID: id, Fields: resp.AsMap()}, nil
}

func (s *GRPCClient) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	req, err := (&syncpb.DocumentRequest{Collection: collection, ID: id, Fields: fields}).Struct()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := s.client.SetDocument(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	req, err := (&syncpb.DocumentRequest{Collection: collection, ID: id, Fields: fields}).Struct()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := s.client.UpdateDocument(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Apply performs the timestamp check and the write on the server in one call.
func (s *GRPCClient) Apply(ctx context.Context, m remote.Mutation) (remote.Outcome, error) {
	req, err := (&syncpb.OperationRequest{
		Collection: m.Collection,
		ID:         m.DocumentID,
		Kind:       string(m.Kind),
		Payload:    m.Payload,
		Timestamp:  m.Timestamp,
	}).Struct()
	if err != nil {
		return remote.OutcomeApplied, fmt.Errorf("encode operation: %w", err)
	}
	resp, err := s.client.ApplyOperation(ctx, req)
	if err != nil {
		return remote.OutcomeApplied, s.mapError(err)
	}
	if syncpb.ParseOutcome(resp) == remote.OutcomeSkipped.String() {
		return remote.OutcomeSkipped, nil
	}
	return remote.OutcomeApplied, nil
}

func (s *GRPCClient) PresignUpload(ctx context.Context, path string, meta map[string]string) (*syncpb.PresignResponse, error) {
	req, err := (&syncpb.PresignRequest{Path: path, Metadata: meta}).Struct()
	if err != nil {
		return nil, err
	}
	resp, err := s.client.PresignUpload(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return syncpb.ParsePresignResponse(resp)
}

func (s *GRPCClient) PresignDownload(ctx context.Context, path string) (string, error) {
	req, err := (&syncpb.PresignRequest{Path: path}).Struct()
	if err != nil {
		return "", err
	}
	resp, err := s.client.PresignDownload(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}
	pr, err := syncpb.ParsePresignResponse(resp)
	if err != nil {
		return "", err
	}
	return pr.URL, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidInput, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
