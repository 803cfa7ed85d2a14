// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/clock"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/notify"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/testsetup"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fixture struct {
	client   *MatchmakerClient
	engine   *engine.Engine
	clock    *clock.Fake
	recorder *testsetup.RecordingNotifier
}

func newFixture(t *testing.T) fixture {
	clk := clock.NewFake(testsetup.Epoch)
	recorder := testsetup.NewRecordingNotifier()
	e, err := engine.New(models.DefaultPolicyDocument(), models.DefaultTuning(),
		engine.WithClock(clk), engine.WithNotifier(recorder), engine.WithMetrics(testsetup.NewMetrics()))
	require.NoError(t, err)

	listener := bufconn.Listen(1024 * 1024)
	grpcServer := NewGRPCServer(e, prometheus.NewRegistry(), logrus.New())
	go func() {
		_ = grpcServer.Serve(listener)
	}()
	t.Cleanup(grpcServer.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return listener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return fixture{client: NewMatchmakerClient(conn), engine: e, clock: clk, recorder: recorder}
}

func TestServer_Flow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("ffa-%02d", i)
		resp, err := f.client.Enqueue(ctx, &engine.EnqueueRequest{PlayerID: id, GameMode: models.GameModeFFA, SkillRating: 1000, PreferredRegion: "asia-east"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.TicketID)
		ids = append(ids, id)
	}

	stats, err := f.client.GetStats(ctx, &StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TicketsByMode[models.GameModeFFA])

	matches := f.engine.TickMode(testsetup.NewTestScope(), models.GameModeFFA)
	require.Len(t, matches, 1)
	matchID := matches[0].MatchID

	_, err = f.client.ReportJoin(ctx, &MatchPlayerRequest{MatchID: matchID, PlayerID: ids[0]})
	require.NoError(t, err)

	match, err := f.client.GetMatch(ctx, &MatchRequest{MatchID: matchID})
	require.NoError(t, err)
	assert.Equal(t, string(models.MatchAwaitingJoins), match.State)
	assert.Equal(t, "ape1", match.Region)
	assert.Equal(t, []string{ids[0]}, match.JoinedPlayerIDs)
	require.Len(t, match.Teams, 1)
	assert.Len(t, match.Teams[0].PlayerIDs, 12)
	require.NotNil(t, match.JoinDeadline)
	assert.True(t, match.JoinDeadline.AsTime().Equal(testsetup.Epoch.Add(30*time.Second)))
	assert.True(t, match.FormedAt.AsTime().Equal(testsetup.Epoch))

	_, err = f.client.CancelMatch(ctx, &CancelMatchRequest{MatchID: matchID})
	require.NoError(t, err)
	assert.Len(t, f.recorder.OfKind(notify.KindMatchCancelled), 1)
}

func TestServer_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.Enqueue(ctx, &engine.EnqueueRequest{PlayerID: "p", GameMode: models.GameModeTDM, SkillRating: 1000})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{
			name: "duplicate_player",
			call: func() error {
				_, err := f.client.Enqueue(ctx, &engine.EnqueueRequest{PlayerID: "p", GameMode: models.GameModeFFA, SkillRating: 1000})
				return err
			},
			want: codes.AlreadyExists,
		}, {
			name: "unknown_game_mode",
			call: func() error {
				_, err := f.client.Enqueue(ctx, &engine.EnqueueRequest{PlayerID: "q", GameMode: "BR"})
				return err
			},
			want: codes.InvalidArgument,
		}, {
			name: "ticket_not_found",
			call: func() error {
				_, err := f.client.CancelTicket(ctx, &PlayerRequest{PlayerID: "nobody"})
				return err
			},
			want: codes.NotFound,
		}, {
			name: "unknown_match",
			call: func() error {
				_, err := f.client.ReportJoin(ctx, &MatchPlayerRequest{MatchID: "missing", PlayerID: "p"})
				return err
			},
			want: codes.NotFound,
		}, {
			name: "leave_is_always_ok",
			call: func() error {
				_, err := f.client.ReportLeave(ctx, &MatchPlayerRequest{MatchID: "missing", PlayerID: "p"})
				return err
			},
			want: codes.OK,
		}, {
			name: "disconnect_requires_player",
			call: func() error {
				_, err := f.client.ReportDisconnect(ctx, &MatchPlayerRequest{MatchID: "missing"})
				return err
			},
			want: codes.InvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(tt.call()))
		})
	}
}

func TestToStatus(t *testing.T) {
	assert.NoError(t, toStatus(nil))
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(models.ErrTicketClaimed)))
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(models.ErrMatchClosed)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}
