// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

func TestTicket_ExpandTolerance(t *testing.T) {
	t.Parallel()

	ticket := NewTicket("p1", "TDM", 1500, "us-east", epoch, 0)
	interval := 10 * time.Second

	got, changed := ticket.ExpandTolerance(epoch.Add(9*time.Second), interval)
	assert.Equal(t, 0, got)
	assert.False(t, changed)

	got, changed = ticket.ExpandTolerance(epoch.Add(25*time.Second), interval)
	assert.Equal(t, 2, got)
	assert.True(t, changed)

	// an earlier clock reading never shrinks the counter
	got, changed = ticket.ExpandTolerance(epoch.Add(5*time.Second), interval)
	assert.Equal(t, 2, got)
	assert.False(t, changed)

	got, _ = ticket.ExpandTolerance(epoch.Add(time.Hour), 0)
	assert.Equal(t, 2, got)
}

func TestTicket_ExpandToleranceKeepsBase(t *testing.T) {
	t.Parallel()

	ticket := NewTicket("p1", "TDM", 1500, "", epoch, 3)
	assert.Equal(t, 3, ticket.ToleranceExpansions())

	got, _ := ticket.ExpandTolerance(epoch.Add(15*time.Second), 10*time.Second)
	assert.Equal(t, 4, got)
}

func TestTicket_ExpandToleranceConcurrent(t *testing.T) {
	t.Parallel()

	ticket := NewTicket("p1", "TDM", 1500, "", epoch, 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket.ExpandTolerance(epoch.Add(time.Duration(i)*time.Second), time.Second)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 49, ticket.ToleranceExpansions())
}

func TestTicket_Age(t *testing.T) {
	t.Parallel()

	ticket := NewTicket("p1", "TDM", 1500, "", epoch, 0)
	assert.Equal(t, time.Duration(0), ticket.Age(epoch.Add(-time.Second)))
	assert.Equal(t, 30*time.Second, ticket.Age(epoch.Add(30*time.Second)))
}

func TestTicket_TransitionState(t *testing.T) {
	t.Parallel()

	ticket := NewTicket("p1", "TDM", 1500, "", epoch, 0)
	assert.Equal(t, TicketWaiting, ticket.State())
	assert.True(t, ticket.TransitionState(TicketWaiting, TicketClaimed))
	assert.False(t, ticket.TransitionState(TicketWaiting, TicketClaimed))
	assert.True(t, ticket.TransitionState(TicketClaimed, TicketRemoved))
	assert.Equal(t, "removed", ticket.State().String())
}

func TestTicket_IDsAreUnique(t *testing.T) {
	t.Parallel()

	a := NewTicket("p1", "TDM", 1500, "", epoch, 0)
	b := NewTicket("p1", "TDM", 1500, "", epoch, 0)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
