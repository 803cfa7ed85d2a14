// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const ServiceName = "arena.matchmaking.v1.Matchmaker"

type EnqueueResponse struct {
	TicketID string `json:"ticket_id"`
}

type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type MatchPlayerRequest struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
}

type CancelMatchRequest struct {
	MatchID string `json:"match_id"`
	Reason  string `json:"reason"`
}

type MatchRequest struct {
	MatchID string `json:"match_id"`
}

type StatsRequest struct{}

// MatchResponse is the public view of a match.
type MatchResponse struct {
	MatchID         string                 `json:"match_id"`
	GameMode        string                 `json:"game_mode"`
	State           string                 `json:"state"`
	Region          string                 `json:"region"`
	RegionName      string                 `json:"region_name"`
	Teams           []models.Team          `json:"teams"`
	JoinedPlayerIDs []string               `json:"joined_player_ids"`
	FormedAt        *timestamppb.Timestamp `json:"formed_at"`
	JoinDeadline    *timestamppb.Timestamp `json:"join_deadline"`
	CloseReason     string                 `json:"close_reason,omitempty"`
}

type MatchmakerServer interface {
	Enqueue(context.Context, *engine.EnqueueRequest) (*EnqueueResponse, error)
	CancelTicket(context.Context, *PlayerRequest) (*emptypb.Empty, error)
	ReportJoin(context.Context, *MatchPlayerRequest) (*emptypb.Empty, error)
	ReportLeave(context.Context, *MatchPlayerRequest) (*emptypb.Empty, error)
	ReportDisconnect(context.Context, *MatchPlayerRequest) (*emptypb.Empty, error)
	CancelMatch(context.Context, *CancelMatchRequest) (*emptypb.Empty, error)
	GetMatch(context.Context, *MatchRequest) (*MatchResponse, error)
	GetStats(context.Context, *StatsRequest) (*engine.Stats, error)
}

type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unaryHandler[Req any, Resp any](method string, call func(MatchmakerServer, context.Context, *Req) (*Resp, error)) methodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MatchmakerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(MatchmakerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var MatchmakerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchmakerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Enqueue", Handler: unaryHandler("Enqueue", MatchmakerServer.Enqueue)},
		{MethodName: "CancelTicket", Handler: unaryHandler("CancelTicket", MatchmakerServer.CancelTicket)},
		{MethodName: "ReportJoin", Handler: unaryHandler("ReportJoin", MatchmakerServer.ReportJoin)},
		{MethodName: "ReportLeave", Handler: unaryHandler("ReportLeave", MatchmakerServer.ReportLeave)},
		{MethodName: "ReportDisconnect", Handler: unaryHandler("ReportDisconnect", MatchmakerServer.ReportDisconnect)},
		{MethodName: "CancelMatch", Handler: unaryHandler("CancelMatch", MatchmakerServer.CancelMatch)},
		{MethodName: "GetMatch", Handler: unaryHandler("GetMatch", MatchmakerServer.GetMatch)},
		{MethodName: "GetStats", Handler: unaryHandler("GetStats", MatchmakerServer.GetStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arena/matchmaking/v1/matchmaker.proto",
}

func RegisterMatchmakerServer(s grpc.ServiceRegistrar, srv MatchmakerServer) {
	s.RegisterService(&MatchmakerServiceDesc, srv)
}

// MatchmakerClient calls the service over a connection using Codec.
type MatchmakerClient struct {
	cc grpc.ClientConnInterface
}

func NewMatchmakerClient(cc grpc.ClientConnInterface) *MatchmakerClient {
	return &MatchmakerClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MatchmakerClient) Enqueue(ctx context.Context, in *engine.EnqueueRequest, opts ...grpc.CallOption) (*EnqueueResponse, error) {
	return invoke[EnqueueResponse](ctx, c.cc, "Enqueue", in, opts...)
}

func (c *MatchmakerClient) CancelTicket(ctx context.Context, in *PlayerRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "CancelTicket", in, opts...)
}

func (c *MatchmakerClient) ReportJoin(ctx context.Context, in *MatchPlayerRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "ReportJoin", in, opts...)
}

func (c *MatchmakerClient) ReportLeave(ctx context.Context, in *MatchPlayerRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "ReportLeave", in, opts...)
}

func (c *MatchmakerClient) ReportDisconnect(ctx context.Context, in *MatchPlayerRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "ReportDisconnect", in, opts...)
}

func (c *MatchmakerClient) CancelMatch(ctx context.Context, in *CancelMatchRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "CancelMatch", in, opts...)
}

func (c *MatchmakerClient) GetMatch(ctx context.Context, in *MatchRequest, opts ...grpc.CallOption) (*MatchResponse, error) {
	return invoke[MatchResponse](ctx, c.cc, "GetMatch", in, opts...)
}

func (c *MatchmakerClient) GetStats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*engine.Stats, error) {
	return invoke[engine.Stats](ctx, c.cc, "GetStats", in, opts...)
}
