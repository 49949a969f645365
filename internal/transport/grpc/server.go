package grpcx

import (
	"context"
	"errors"
	"time"

	"github.com/cwrk-planet/call-service/internal/domain"
	"github.com/cwrk-planet/call-service/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type RoomSvc interface {
	CreateRoom(ctx context.Context, id string) (service.RoomInfo, error)
	GetRoom(ctx context.Context, id string) (service.RoomInfo, error)
	ListRooms(ctx context.Context) ([]service.RoomInfo, error)
}

type Server struct {
	roomSvc RoomSvc
}

func NewServer(roomSvc RoomSvc) *Server {
	return &Server{roomSvc: roomSvc}
}

// New собирает grpc.Server с интерцепторами, health и RoomAdmin.
func New(s *Server, callTimeout time.Duration) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(callTimeout)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	Register(gs, s)
	hs.SetServingStatus(RoomAdminServiceName, healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}

// -------- helpers --------

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrRoomExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrInvalidRoomID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func roomFields(r service.RoomInfo) map[string]any {
	m := map[string]any{
		"roomId":       r.ID,
		"createdAt":    r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"participants": r.Participants,
	}
	if r.DestructionScheduledAt != nil {
		m["destructionScheduledAt"] = r.DestructionScheduledAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

// -------- methods --------

func (s *Server) CreateRoom(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	room, err := s.roomSvc.CreateRoom(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(room.ID), nil
}

func (s *Server) GetRoom(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "room id is required")
	}
	room, err := s.roomSvc.GetRoom(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := structpb.NewStruct(roomFields(room))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) ListRooms(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	rooms, err := s.roomSvc.ListRooms(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	items := make([]any, 0, len(rooms))
	for _, r := range rooms {
		items = append(items, roomFields(r))
	}
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
