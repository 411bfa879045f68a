// Package syncpb defines the tutorsim.sync.v1.SyncService gRPC contract.
//
// Requests and responses travel as google.protobuf.Struct values so that
// document payloads keep their free-form shape; the typed helpers in
// messages.go convert between those structs and Go values.
package syncpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "tutorsim.sync.v1.SyncService"

const (
	SyncService_Ping_FullMethodName            = "/" + ServiceName + "/Ping"
	SyncService_GetDocument_FullMethodName     = "/" + ServiceName + "/GetDocument"
	SyncService_SetDocument_FullMethodName     = "/" + ServiceName + "/SetDocument"
	SyncService_UpdateDocument_FullMethodName  = "/" + ServiceName + "/UpdateDocument"
	SyncService_ApplyOperation_FullMethodName  = "/" + ServiceName + "/ApplyOperation"
	SyncService_PresignUpload_FullMethodName   = "/" + ServiceName + "/PresignUpload"
	SyncService_PresignDownload_FullMethodName = "/" + ServiceName + "/PresignDownload"
)

// SyncServiceClient is the client API for SyncService.
type SyncServiceClient interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	UpdateDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ApplyOperation(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PresignUpload(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PresignDownload(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type syncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncServiceClient(cc grpc.ClientConnInterface) SyncServiceClient {
	return &syncServiceClient{cc}
}

func invoke[Resp any, PResp interface {
	*Resp
	proto.Message
}](ctx context.Context, cc grpc.ClientConnInterface, method string, in proto.Message, opts []grpc.CallOption) (PResp, error) {
	out := PResp(new(Resp))
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		var zero PResp
		return zero, err
	}
	return out, nil
}

func (c *syncServiceClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, SyncService_Ping_FullMethodName, in, opts)
}

func (c *syncServiceClient) GetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SyncService_GetDocument_FullMethodName, in, opts)
}

func (c *syncServiceClient) SetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, SyncService_SetDocument_FullMethodName, in, opts)
}

func (c *syncServiceClient) UpdateDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, SyncService_UpdateDocument_FullMethodName, in, opts)
}

func (c *syncServiceClient) ApplyOperation(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SyncService_ApplyOperation_FullMethodName, in, opts)
}

func (c *syncServiceClient) PresignUpload(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SyncService_PresignUpload_FullMethodName, in, opts)
}

func (c *syncServiceClient) PresignDownload(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, SyncService_PresignDownload_FullMethodName, in, opts)
}

// SyncServiceServer is the server API for SyncService. Implementations must
// embed UnimplementedSyncServiceServer.
type SyncServiceServer interface {
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDocument(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	UpdateDocument(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ApplyOperation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PresignUpload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PresignDownload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedSyncServiceServer()
}

// UnimplementedSyncServiceServer answers every method with codes.Unimplemented.
type UnimplementedSyncServiceServer struct{}

func (UnimplementedSyncServiceServer) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedSyncServiceServer) GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDocument not implemented")
}
func (UnimplementedSyncServiceServer) SetDocument(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetDocument not implemented")
}
func (UnimplementedSyncServiceServer) UpdateDocument(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateDocument not implemented")
}
func (UnimplementedSyncServiceServer) ApplyOperation(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ApplyOperation not implemented")
}
func (UnimplementedSyncServiceServer) PresignUpload(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method PresignUpload not implemented")
}
func (UnimplementedSyncServiceServer) PresignDownload(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method PresignDownload not implemented")
}
func (UnimplementedSyncServiceServer) mustEmbedUnimplementedSyncServiceServer() {}

func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&SyncService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](fullMethod string, call func(SyncServiceServer, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SyncServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SyncServiceServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SyncService_ServiceDesc is the grpc.ServiceDesc for SyncService.
var SyncService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler:    unaryHandler[emptypb.Empty](SyncService_Ping_FullMethodName, SyncServiceServer.Ping),
		},
		{
			MethodName: "GetDocument",
			Handler:    unaryHandler[structpb.Struct](SyncService_GetDocument_FullMethodName, SyncServiceServer.GetDocument),
		},
		{
			MethodName: "SetDocument",
			Handler:    unaryHandler[structpb.Struct](SyncService_SetDocument_FullMethodName, SyncServiceServer.SetDocument),
		},
		{
			MethodName: "UpdateDocument",
			Handler:    unaryHandler[structpb.Struct](SyncService_UpdateDocument_FullMethodName, SyncServiceServer.UpdateDocument),
		},
		{
			MethodName: "ApplyOperation",
			Handler:    unaryHandler[structpb.Struct](SyncService_ApplyOperation_FullMethodName, SyncServiceServer.ApplyOperation),
		},
		{
			MethodName: "PresignUpload",
			Handler:    unaryHandler[structpb.Struct](SyncService_PresignUpload_FullMethodName, SyncServiceServer.PresignUpload),
		},
		{
			MethodName: "PresignDownload",
			Handler:    unaryHandler[structpb.Struct](SyncService_PresignDownload_FullMethodName, SyncServiceServer.PresignDownload),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tutorsim/sync/v1/sync.proto",
}
