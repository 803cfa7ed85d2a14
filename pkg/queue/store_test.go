// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package queue

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/testsetup"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modes = []string{models.GameModeTDM, models.GameModeFFA}

func newTicket(playerID, mode string, rating int, enqueuedAt time.Time) *models.Ticket {
	return models.NewTicket(playerID, mode, rating, "us-east", enqueuedAt, 0)
}

func TestEnqueue_RejectsDuplicateAcrossModes(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	store := NewStore(modes)

	g.Expect(store.Enqueue(newTicket("p1", models.GameModeTDM, 1000, testsetup.Epoch))).To(Succeed())
	err := store.Enqueue(newTicket("p1", models.GameModeFFA, 1000, testsetup.Epoch))
	g.Expect(err).To(MatchError(models.ErrDuplicatePlayer))
	g.Expect(store.Count()).To(Equal(1))
}

func TestEnqueue_UnknownMode(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	store := NewStore(modes)

	err := store.Enqueue(newTicket("p1", "BR", 1000, testsetup.Epoch))
	g.Expect(err).To(MatchError(models.ErrUnknownGameMode))
}

func TestSnapshotByMode_SortedBySkillThenAge(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	store := NewStore(modes)

	store.Enqueue(newTicket("c", models.GameModeTDM, 1200, testsetup.Epoch))
	store.Enqueue(newTicket("b", models.GameModeTDM, 1000, testsetup.Epoch.Add(time.Second)))
	store.Enqueue(newTicket("a", models.GameModeTDM, 1000, testsetup.Epoch))
	store.Enqueue(newTicket("x", models.GameModeFFA, 900, testsetup.Epoch))

	snapshot := store.SnapshotByMode(models.GameModeTDM)
	ids := make([]string, 0, len(snapshot))
	for _, t := range snapshot {
		ids = append(ids, t.PlayerID)
	}
	g.Expect(ids).To(Equal([]string{"a", "b", "c"}))
	g.Expect(store.CountByMode(models.GameModeFFA)).To(Equal(1))
}

func TestCancel(t *testing.T) {
	store := NewStore(modes)
	ticket := newTicket("p1", models.GameModeTDM, 1000, testsetup.Epoch)
	require.NoError(t, store.Enqueue(ticket))

	_, err := store.Cancel("unknown")
	assert.ErrorIs(t, err, models.ErrTicketNotFound)

	cancelled, err := store.Cancel("p1")
	require.NoError(t, err)
	assert.Equal(t, ticket, cancelled)
	assert.Equal(t, models.TicketRemoved, ticket.State())
	assert.Equal(t, 0, store.Count())

	// removal is idempotent
	assert.False(t, store.Remove("p1"))
	// the player may enqueue again
	assert.NoError(t, store.Enqueue(newTicket("p1", models.GameModeFFA, 1000, testsetup.Epoch)))
}

func TestCancel_ClaimedTicketIsKept(t *testing.T) {
	store := NewStore(modes)
	ticket := newTicket("p1", models.GameModeTDM, 1000, testsetup.Epoch)
	require.NoError(t, store.Enqueue(ticket))
	require.True(t, store.Claim([]*models.Ticket{ticket}))

	_, err := store.Cancel("p1")
	assert.ErrorIs(t, err, models.ErrTicketClaimed)
	assert.Empty(t, store.SnapshotByMode(models.GameModeTDM))

	store.Unclaim([]*models.Ticket{ticket})
	assert.Len(t, store.SnapshotByMode(models.GameModeTDM), 1)
}

func TestClaim_AllOrNothing(t *testing.T) {
	store := NewStore(modes)
	tickets := testsetup.NewTickets("p", models.GameModeTDM, "us-east", testsetup.Epoch, 1000, 1010, 1020)
	for _, ticket := range tickets {
		require.NoError(t, store.Enqueue(ticket))
	}
	_, err := store.Cancel(tickets[2].PlayerID)
	require.NoError(t, err)

	assert.False(t, store.Claim(tickets))
	assert.Equal(t, models.TicketWaiting, tickets[0].State())
	assert.Equal(t, models.TicketWaiting, tickets[1].State())
}

func TestCommitAndRequeue(t *testing.T) {
	store := NewStore(modes)
	tickets := testsetup.NewTickets("p", models.GameModeTDM, "us-east", testsetup.Epoch, 1000, 1010)
	for _, ticket := range tickets {
		require.NoError(t, store.Enqueue(ticket))
	}
	require.True(t, store.Claim(tickets))
	store.Commit("m1", tickets)

	assert.Equal(t, 0, store.Count())
	matchID, ok := store.ReservedBy("p-00")
	assert.True(t, ok)
	assert.Equal(t, "m1", matchID)

	// reserved players cannot queue again or cancel
	assert.ErrorIs(t, store.Enqueue(newTicket("p-00", models.GameModeFFA, 1, testsetup.Epoch)), models.ErrDuplicatePlayer)
	_, err := store.Cancel("p-00")
	assert.ErrorIs(t, err, models.ErrTicketClaimed)

	requeued := models.NewTicket("p-00", models.GameModeTDM, 1000, "us-east", testsetup.Epoch, 3)
	assert.False(t, store.Requeue("m2", requeued))
	assert.True(t, store.Requeue("m1", requeued))
	got, ok := store.Lookup("p-00")
	require.True(t, ok)
	assert.Equal(t, 3, got.ToleranceExpansions())

	assert.True(t, store.Release("m1", "p-01"))
	assert.False(t, store.Release("m1", "p-01"))
	_, ok = store.ReservedBy("p-01")
	assert.False(t, ok)
}

func TestRemoveTicket_OnlyRemovesSameTicket(t *testing.T) {
	store := NewStore(modes)
	old := newTicket("p1", models.GameModeTDM, 1000, testsetup.Epoch)
	require.NoError(t, store.Enqueue(old))
	require.True(t, store.Remove("p1"))
	fresh := newTicket("p1", models.GameModeTDM, 1000, testsetup.Epoch.Add(time.Minute))
	require.NoError(t, store.Enqueue(fresh))

	assert.False(t, store.RemoveTicket(old))
	assert.True(t, store.RemoveTicket(fresh))
	assert.Equal(t, 0, store.Count())
}

// Random interleavings of enqueue, cancel and claim must never leave a player in the queue twice.
func TestStore_ConcurrentOperationsKeepOneTicketPerPlayer(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	store := NewStore(modes)
	players := 40

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < 500; i++ {
				playerID := fmt.Sprintf("player-%d", rnd.Intn(players))
				mode := modes[rnd.Intn(len(modes))]
				switch rnd.Intn(3) {
				case 0:
					_ = store.Enqueue(newTicket(playerID, mode, rnd.Intn(2000), testsetup.Epoch))
				case 1:
					store.Remove(playerID)
				case 2:
					snapshot := store.SnapshotByMode(mode)
					if len(snapshot) > 1 && store.Claim(snapshot[:2]) {
						store.Unclaim(snapshot[:2])
					}
				}
			}
		}(int64(worker))
	}
	wg.Wait()

	seen := map[string]int{}
	for _, mode := range modes {
		for _, ticket := range store.SnapshotByMode(mode) {
			seen[ticket.PlayerID]++
		}
	}
	for playerID, count := range seen {
		g.Expect(count).To(Equal(1), playerID)
		ticket, ok := store.Lookup(playerID)
		g.Expect(ok).To(BeTrue())
		g.Expect(ticket.State()).To(Equal(models.TicketWaiting))
	}
	g.Expect(store.Count()).To(Equal(len(seen)))
}
