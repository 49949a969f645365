package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RoomAdmin описан вручную поверх well-known типов protobuf,
// поэтому отдельного .proto и кодогенерации нет.
const (
	RoomAdminServiceName = "callservice.v1.RoomAdmin"

	methodCreateRoom = "/callservice.v1.RoomAdmin/CreateRoom"
	methodGetRoom    = "/callservice.v1.RoomAdmin/GetRoom"
	methodListRooms  = "/callservice.v1.RoomAdmin/ListRooms"
)

type RoomAdminServer interface {
	CreateRoom(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	GetRoom(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListRooms(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

var roomAdminDesc = grpc.ServiceDesc{
	ServiceName: RoomAdminServiceName,
	HandlerType: (*RoomAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRoom", Handler: createRoomHandler},
		{MethodName: "GetRoom", Handler: getRoomHandler},
		{MethodName: "ListRooms", Handler: listRoomsHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func Register(gs grpc.ServiceRegistrar, s RoomAdminServer) {
	gs.RegisterService(&roomAdminDesc, s)
}

func createRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomAdminServer).CreateRoom(ctx, req.(*wrapperspb.StringValue))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCreateRoom}, call)
}

func getRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomAdminServer).GetRoom(ctx, req.(*wrapperspb.StringValue))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetRoom}, call)
}

func listRoomsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomAdminServer).ListRooms(ctx, req.(*emptypb.Empty))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListRooms}, call)
}

// RoomAdminClient: клиент для CLI и тестов.
type RoomAdminClient struct {
	cc grpc.ClientConnInterface
}

func NewRoomAdminClient(cc grpc.ClientConnInterface) *RoomAdminClient {
	return &RoomAdminClient{cc: cc}
}

func (c *RoomAdminClient) CreateRoom(ctx context.Context, id string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodCreateRoom, wrapperspb.String(id), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *RoomAdminClient) GetRoom(ctx context.Context, id string, opts ...grpc.CallOption) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetRoom, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *RoomAdminClient) ListRooms(ctx context.Context, opts ...grpc.CallOption) ([]any, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListRooms, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	return out.AsSlice(), nil
}
