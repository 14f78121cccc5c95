package posture

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "posture.v1.PostureMonitor"

// Full method names.
const (
	GetStatusMethod   = "/" + ServiceName + "/GetStatus"
	WatchAlertsMethod = "/" + ServiceName + "/WatchAlerts"
)

// Handler is the server-side contract of the PostureMonitor service.
type Handler interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	WatchAlerts(req *emptypb.Empty, stream grpc.ServerStream) error
}

// ServiceDesc describes the PostureMonitor service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchAlerts",
			Handler:       watchAlertsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "posture/v1/posture.proto",
}

// Register attaches the handler to a gRPC server.
func Register(registrar grpc.ServiceRegistrar, handler Handler) {
	registrar.RegisterService(&ServiceDesc, handler)
}

func getStatusHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(Handler).GetStatus(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetStatusMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handler).GetStatus(ctx, req.(*emptypb.Empty)) //nolint:forcetypeassert // Same as above.
	}

	return interceptor(ctx, in, info, handler)
}

func watchAlertsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(Handler).WatchAlerts(in, stream) //nolint:forcetypeassert // Guaranteed by HandlerType.
}
