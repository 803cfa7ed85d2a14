// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/clock"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/lifecycle"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/notify"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/queue"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/testsetup"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

type panickingNotifier struct {
	testsetup.RecordingNotifier
	panicFor string
}

func (p *panickingNotifier) Notify(scope *envelope.Scope, event notify.Event) error {
	for _, id := range event.PlayerIDs {
		if id == p.panicFor {
			panic("notifier exploded")
		}
	}
	return p.RecordingNotifier.Notify(scope, event)
}

type fakeTable struct {
	stale     []string
	closed    []string
	expired   []string
	forgotten []string
	panicFor  string
}

func (f *fakeTable) Stale(now time.Time, grace int) []string { return f.stale }

func (f *fakeTable) Closed(before time.Time) []string { return f.closed }

func (f *fakeTable) ForceExpire(scope *envelope.Scope, matchID, reason string) error {
	if matchID == f.panicFor {
		panic("corrupted match")
	}
	f.expired = append(f.expired, matchID)
	return nil
}

func (f *fakeTable) Forget(matchID string) bool {
	f.forgotten = append(f.forgotten, matchID)
	return true
}

func modes() []string {
	return models.DefaultPolicyDocument().Table().GameModes()
}

// A lone FFA ticket never forms a match and is evicted once it waited longer than the max wait time.
func TestSweepQueues_EvictsAfterMaxWaitTime(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	store := queue.NewStore(modes())
	clk := clock.NewFake(testsetup.Epoch)
	recorder := testsetup.NewRecordingNotifier()
	metrics := testsetup.NewCountingMetrics()
	sweeper := New(modes(), models.DefaultTuning(), store, &fakeTable{}, recorder, clk, metrics)

	g.Expect(store.Enqueue(models.NewTicket("lonely", models.GameModeFFA, 1000, "us-east", clk.Now(), 0))).To(Succeed())
	clk.Advance(100 * time.Second)
	g.Expect(store.Enqueue(models.NewTicket("fresh", models.GameModeTDM, 1000, "us-east", clk.Now(), 0))).To(Succeed())

	clk.Advance(80 * time.Second)
	g.Expect(sweeper.SweepQueues(g.TestScope)).To(Equal(0))

	clk.Advance(time.Second)
	g.Expect(sweeper.SweepQueues(g.TestScope)).To(Equal(1))

	_, ok := store.Lookup("lonely")
	g.Expect(ok).To(BeFalse())
	_, ok = store.Lookup("fresh")
	g.Expect(ok).To(BeTrue())

	events := recorder.OfKind(notify.KindMatchmakingTimeout)
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].PlayerIDs).To(Equal([]string{"lonely"}))
	g.Expect(metrics.TimeoutCount(notify.KindMatchmakingTimeout.String())).To(Equal(1))
}

func TestSweepQueues_ClaimedTicketIsLeftToTheBuilder(t *testing.T) {
	store := queue.NewStore(modes())
	clk := clock.NewFake(testsetup.Epoch)
	sweeper := New(modes(), models.DefaultTuning(), store, &fakeTable{}, testsetup.NewRecordingNotifier(), clk, testsetup.NewMetrics())
	ticket := models.NewTicket("p", models.GameModeFFA, 1000, "us-east", clk.Now(), 0)
	require.NoError(t, store.Enqueue(ticket))
	require.True(t, store.Claim([]*models.Ticket{ticket}))

	clk.Advance(time.Hour)
	assert.Equal(t, 0, sweeper.SweepQueues(testsetup.NewTestScope()))
	assert.Equal(t, models.TicketClaimed, ticket.State())
}

func TestSweepQueues_IsolatesFailingItems(t *testing.T) {
	store := queue.NewStore(modes())
	clk := clock.NewFake(testsetup.Epoch)
	notifier := &panickingNotifier{panicFor: "bad"}
	sweeper := New(modes(), models.DefaultTuning(), store, &fakeTable{}, notifier, clk, testsetup.NewMetrics())
	require.NoError(t, store.Enqueue(models.NewTicket("bad", models.GameModeFFA, 900, "us-east", clk.Now(), 0)))
	require.NoError(t, store.Enqueue(models.NewTicket("good", models.GameModeFFA, 1000, "us-east", clk.Now(), 0)))

	spans := testsetup.NewSpanRecorder(t)
	scope := envelope.NewRootScope(context.Background(), "test", "")

	clk.Advance(181 * time.Second)
	assert.Equal(t, 2, sweeper.SweepQueues(scope))
	assert.Equal(t, 0, store.Count())
	assert.Len(t, notifier.ForPlayer("good"), 1)

	span, ok := testsetup.EndedSpan(spans, constants.SweepQueuesFunction)
	require.True(t, ok)
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.NotEmpty(t, span.Events())
}

func TestSweepMatches_WithLifecycle(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	policies := models.DefaultPolicyDocument().Table()
	store := queue.NewStore(policies.GameModes())
	clk := clock.NewFake(testsetup.Epoch)
	recorder := testsetup.NewRecordingNotifier()
	tuning := models.DefaultTuning()
	manager := lifecycle.NewManager(policies, tuning, store, recorder, clk, testsetup.NewMetrics())
	sweeper := New(policies.GameModes(), tuning, store, manager, recorder, clk, testsetup.NewMetrics())

	tickets := testsetup.NewTickets("ffa", models.GameModeFFA, "us-east", clk.Now(), testsetup.Repeat(1000, 6)...)
	roster := make([]models.RosterEntry, 0, len(tickets))
	for _, ticket := range tickets {
		g.Expect(store.Enqueue(ticket)).To(Succeed())
		roster = append(roster, ticket.RosterEntry(0))
	}
	g.Expect(store.Claim(tickets)).To(BeTrue())
	store.Commit("m1", tickets)
	g.Expect(manager.Publish(g.TestScope, &models.Match{
		MatchID: "m1", GameMode: models.GameModeFFA, Roster: roster, TeamCount: 1,
		State: models.MatchForming, FormedAt: clk.Now(),
	})).To(Succeed())

	// the join deadline passed but nobody checked it: the sweeper is the safety net
	clk.Advance(91 * time.Second)
	expired, forgotten := sweeper.SweepMatches(g.TestScope)
	g.Expect(expired).To(Equal(1))
	g.Expect(forgotten).To(Equal(0))

	match, err := manager.Get("m1")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(match.State).To(Equal(models.MatchExpired))
	g.Expect(store.CountByMode(models.GameModeFFA)).To(Equal(6))

	clk.Advance(tuning.MatchRetention + time.Second)
	_, forgotten = sweeper.SweepMatches(g.TestScope)
	g.Expect(forgotten).To(Equal(1))
	_, err = manager.Get("m1")
	g.Expect(err).To(MatchError(models.ErrUnknownMatch))
}

func TestSweepMatches_IsolatesFailingItems(t *testing.T) {
	table := &fakeTable{stale: []string{"a", "broken", "c"}, closed: []string{"old"}, panicFor: "broken"}
	sweeper := New(modes(), models.DefaultTuning(), queue.NewStore(modes()), table, testsetup.NewRecordingNotifier(), clock.NewFake(testsetup.Epoch), testsetup.NewMetrics())

	spans := testsetup.NewSpanRecorder(t)

	expired, forgotten := sweeper.SweepMatches(envelope.NewRootScope(context.Background(), "test", ""))

	assert.Equal(t, 2, expired)
	assert.Equal(t, 1, forgotten)
	assert.Equal(t, []string{"a", "c"}, table.expired)

	span, ok := testsetup.EndedSpan(spans, constants.SweepMatchesFunction)
	require.True(t, ok)
	assert.Equal(t, codes.Error, span.Status().Code)
}
