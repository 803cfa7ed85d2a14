// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"sync/atomic"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/utils"
)

// TicketState is the claim state of a waiting ticket.
type TicketState int32

const (
	TicketWaiting TicketState = iota
	// TicketClaimed is set by the builder while a ticket is being placed in a forming match.
	TicketClaimed
	// TicketRemoved is terminal: cancelled, evicted or committed to a match.
	TicketRemoved
)

func (s TicketState) String() string {
	switch s {
	case TicketWaiting:
		return "waiting"
	case TicketClaimed:
		return "claimed"
	case TicketRemoved:
		return "removed"
	}
	return "unknown"
}

// Ticket is one waiting player intent.
// A ticket is shared by pointer between the queue and the builder, never copied.
type Ticket struct {
	ID              string
	PlayerID        string
	GameMode        string
	SkillRating     int
	PreferredRegion string
	EnqueuedAt      time.Time

	// BaseExpansions is the tolerance carried over from a match that was rolled back.
	BaseExpansions int

	expansions atomic.Int32
	state      atomic.Int32
}

// NewTicket creates a waiting ticket.
func NewTicket(playerID, gameMode string, skillRating int, preferredRegion string, enqueuedAt time.Time, baseExpansions int) *Ticket {
	t := &Ticket{
		ID:              utils.GenerateUUID(),
		PlayerID:        playerID,
		GameMode:        gameMode,
		SkillRating:     skillRating,
		PreferredRegion: preferredRegion,
		EnqueuedAt:      enqueuedAt,
		BaseExpansions:  baseExpansions,
	}
	t.expansions.Store(int32(baseExpansions))
	return t
}

// ToleranceExpansions returns how many times the skill tolerance was widened.
func (t *Ticket) ToleranceExpansions() int {
	return int(t.expansions.Load())
}

// ExpandTolerance moves the expansion counter to the boundary the ticket age has crossed.
// The counter never decreases. It reports whether the counter changed.
func (t *Ticket) ExpandTolerance(now time.Time, interval time.Duration) (int, bool) {
	if interval <= 0 {
		return t.ToleranceExpansions(), false
	}
	target := int32(t.BaseExpansions + int(t.Age(now)/interval))
	for {
		current := t.expansions.Load()
		if target <= current {
			return int(current), false
		}
		if t.expansions.CompareAndSwap(current, target) {
			return int(target), true
		}
	}
}

// Age is the time spent in the queue since the ticket was enqueued.
func (t *Ticket) Age(now time.Time) time.Duration {
	if now.Before(t.EnqueuedAt) {
		return 0
	}
	return now.Sub(t.EnqueuedAt)
}

func (t *Ticket) State() TicketState {
	return TicketState(t.state.Load())
}

// TransitionState atomically moves the ticket from one state to another.
func (t *Ticket) TransitionState(from, to TicketState) bool {
	return t.state.CompareAndSwap(int32(from), int32(to))
}

// RosterEntry converts the ticket into a roster slot.
func (t *Ticket) RosterEntry(teamIndex int) RosterEntry {
	return RosterEntry{
		PlayerID:            t.PlayerID,
		TeamIndex:           teamIndex,
		SkillRating:         t.SkillRating,
		PreferredRegion:     t.PreferredRegion,
		ToleranceExpansions: t.ToleranceExpansions(),
	}
}
