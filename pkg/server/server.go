// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package server exposes the engine as a gRPC service.
package server

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Server adapts engine calls to the gRPC service.
type Server struct {
	engine *engine.Engine
}

func New(e *engine.Engine) *Server {
	return &Server{engine: e}
}

// NewGRPCServer builds a gRPC server with logging, panic recovery, prometheus metrics and
// tracing, and registers the matchmaker service on it.
func NewGRPCServer(e *engine.Engine, registry prometheus.Registerer, logger *logrus.Logger) *grpc.Server {
	srvMetrics := grpcprom.NewServerMetrics(grpcprom.WithServerHandlingTimeHistogram())
	registry.MustRegister(srvMetrics)

	recoveryHandler := func(p interface{}) error {
		logger.WithField("panic", p).Error("recovered from panic in gRPC handler")
		return status.Errorf(codes.Internal, "%v", p)
	}

	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(Codec{}),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			srvMetrics.UnaryServerInterceptor(),
			logging.UnaryServerInterceptor(InterceptorLogger(logger)),
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(recoveryHandler)),
		),
	)
	RegisterMatchmakerServer(grpcServer, New(e))
	srvMetrics.InitializeMetrics(grpcServer)
	return grpcServer
}

// InterceptorLogger adapts logrus to the interceptor logger.
func InterceptorLogger(l logrus.FieldLogger) logging.Logger {
	return logging.LoggerFunc(func(_ context.Context, lvl logging.Level, msg string, fields ...any) {
		f := make(map[string]any, len(fields)/2)
		i := logging.Fields(fields).Iterator()
		for i.Next() {
			k, v := i.At()
			f[k] = v
		}
		entry := l.WithFields(f)

		switch lvl {
		case logging.LevelDebug:
			entry.Debug(msg)
		case logging.LevelInfo:
			entry.Info(msg)
		case logging.LevelWarn:
			entry.Warn(msg)
		case logging.LevelError:
			entry.Error(msg)
		default:
			panic(fmt.Sprintf("unknown level %v", lvl))
		}
	})
}

// toStatus maps engine errors to gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, models.ErrDuplicatePlayer):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, models.ErrTicketNotFound), errors.Is(err, models.ErrUnknownMatch):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, models.ErrTicketClaimed), errors.Is(err, models.ErrMatchClosed), errors.Is(err, models.ErrPlayerNotInRoster):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, models.ErrUnknownGameMode), errors.Is(err, models.ErrUnknownRegion),
		errors.Is(err, models.ErrInvalidSkillRating), errors.Is(err, models.ErrEmptyPlayerID):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func (s *Server) Enqueue(ctx context.Context, req *engine.EnqueueRequest) (*EnqueueResponse, error) {
	ticketID, err := s.engine.Enqueue(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &EnqueueResponse{TicketID: ticketID}, nil
}

func (s *Server) CancelTicket(ctx context.Context, req *PlayerRequest) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, toStatus(s.engine.CancelTicket(ctx, req.PlayerID))
}

func (s *Server) ReportJoin(ctx context.Context, req *MatchPlayerRequest) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, toStatus(s.engine.ReportJoin(ctx, req.MatchID, req.PlayerID))
}

func (s *Server) ReportLeave(ctx context.Context, req *MatchPlayerRequest) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, toStatus(s.engine.ReportLeave(ctx, req.MatchID, req.PlayerID))
}

func (s *Server) ReportDisconnect(ctx context.Context, req *MatchPlayerRequest) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, toStatus(s.engine.ReportDisconnect(ctx, req.MatchID, req.PlayerID))
}

func (s *Server) CancelMatch(ctx context.Context, req *CancelMatchRequest) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, toStatus(s.engine.CancelMatch(ctx, req.MatchID, req.Reason))
}

func (s *Server) GetMatch(ctx context.Context, req *MatchRequest) (*MatchResponse, error) {
	match, err := s.engine.Match(req.MatchID)
	if err != nil {
		return nil, toStatus(err)
	}
	joined := make([]string, 0, len(match.JoinedPlayerIDs))
	for id := range match.JoinedPlayerIDs {
		joined = append(joined, id)
	}
	sort.Strings(joined)

	return &MatchResponse{
		MatchID:         match.MatchID,
		GameMode:        match.GameMode,
		State:           string(match.State),
		Region:          match.Region,
		RegionName:      match.RegionName,
		Teams:           match.Teams(),
		JoinedPlayerIDs: joined,
		FormedAt:        timestamppb.New(match.FormedAt),
		JoinDeadline:    timestamppb.New(match.JoinDeadline),
		CloseReason:     match.CloseReason,
	}, nil
}

func (s *Server) GetStats(ctx context.Context, req *StatsRequest) (*engine.Stats, error) {
	stats := s.engine.Stats()
	return &stats, nil
}
