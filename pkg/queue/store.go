// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package queue holds the waiting tickets of every game mode.
//
// Tickets are sharded per game mode so scans of different modes never contend. A single player
// index spans all shards and records what a player is currently engaged in: a waiting ticket, or a
// reservation on the roster of a match that has not reached a terminal state. The index is what
// enforces "one active ticket per player". Lock order is always index first, then shard.
package queue

import (
	"sort"
	"sync"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
)

type engagement struct {
	ticket  *models.Ticket
	matchID string
}

type shard struct {
	mu sync.RWMutex
	// ordered by skill rating, then enqueued at, then ticket id
	tickets []*models.Ticket
}

// Store is the thread-safe queue store.
type Store struct {
	mu      sync.Mutex
	players map[string]*engagement

	// read-only after construction
	shards map[string]*shard
}

// NewStore creates one shard per configured game mode.
func NewStore(gameModes []string) *Store {
	shards := make(map[string]*shard, len(gameModes))
	for _, mode := range gameModes {
		shards[mode] = &shard{}
	}
	return &Store{
		players: make(map[string]*engagement),
		shards:  shards,
	}
}

// Enqueue adds a waiting ticket.
// It fails with ErrDuplicatePlayer when the player already waits in any mode or sits on a live roster.
func (s *Store) Enqueue(ticket *models.Ticket) error {
	sh, ok := s.shards[ticket.GameMode]
	if !ok {
		return models.ErrUnknownGameMode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[ticket.PlayerID]; exists {
		return models.ErrDuplicatePlayer
	}
	s.players[ticket.PlayerID] = &engagement{ticket: ticket}
	sh.insert(ticket)
	return nil
}

// Cancel removes an unclaimed ticket. A claimed ticket, or a player already reserved by a
// forming match, returns ErrTicketClaimed: that player has to leave through the match lifecycle.
func (s *Store) Cancel(playerID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.players[playerID]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	if e.ticket == nil {
		return nil, models.ErrTicketClaimed
	}
	if !e.ticket.TransitionState(models.TicketWaiting, models.TicketRemoved) {
		return nil, models.ErrTicketClaimed
	}
	ticket := e.ticket
	delete(s.players, playerID)
	s.shards[ticket.GameMode].remove(ticket)
	return ticket, nil
}

// Remove drops the waiting ticket of a player. It is a no-op when there is none.
func (s *Store) Remove(playerID string) bool {
	_, err := s.Cancel(playerID)
	return err == nil
}

// RemoveTicket drops exactly this ticket if it is still waiting.
// It is used by the sweeper so a ticket replaced in the meantime is left alone.
func (s *Store) RemoveTicket(ticket *models.Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.players[ticket.PlayerID]
	if !ok || e.ticket != ticket {
		return false
	}
	if !ticket.TransitionState(models.TicketWaiting, models.TicketRemoved) {
		return false
	}
	delete(s.players, ticket.PlayerID)
	s.shards[ticket.GameMode].remove(ticket)
	return true
}

// SnapshotByMode returns the waiting tickets of a mode ordered by skill rating, oldest first among
// equal ratings. The returned slice is owned by the caller.
func (s *Store) SnapshotByMode(gameMode string) []*models.Ticket {
	sh, ok := s.shards[gameMode]
	if !ok {
		return nil
	}
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	snapshot := make([]*models.Ticket, 0, len(sh.tickets))
	for _, t := range sh.tickets {
		if t.State() == models.TicketWaiting {
			snapshot = append(snapshot, t)
		}
	}
	return snapshot
}

// Claim marks every ticket as claimed, or none of them.
func (s *Store) Claim(tickets []*models.Ticket) bool {
	for i, t := range tickets {
		if !t.TransitionState(models.TicketWaiting, models.TicketClaimed) {
			s.Unclaim(tickets[:i])
			return false
		}
	}
	return true
}

// Unclaim puts claimed tickets back to waiting.
func (s *Store) Unclaim(tickets []*models.Ticket) {
	for _, t := range tickets {
		t.TransitionState(models.TicketClaimed, models.TicketWaiting)
	}
}

// Commit removes claimed tickets from their shard and reserves their players for the match.
func (s *Store) Commit(matchID string, tickets []*models.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tickets {
		if !t.TransitionState(models.TicketClaimed, models.TicketRemoved) {
			continue
		}
		if e, ok := s.players[t.PlayerID]; ok && e.ticket == t {
			e.ticket = nil
			e.matchID = matchID
		}
		s.shards[t.GameMode].remove(t)
	}
}

// Requeue puts a released roster member back in the queue. It only succeeds while the player is
// still reserved by the given match, so a player who left or was released is never resurrected.
func (s *Store) Requeue(matchID string, ticket *models.Ticket) bool {
	sh, ok := s.shards[ticket.GameMode]
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.players[ticket.PlayerID]
	if !ok || e.matchID != matchID {
		return false
	}
	e.matchID = ""
	e.ticket = ticket
	sh.insert(ticket)
	return true
}

// Release drops the reservation a match holds on a player.
func (s *Store) Release(matchID string, playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.players[playerID]
	if !ok || e.matchID != matchID {
		return false
	}
	delete(s.players, playerID)
	return true
}

// Lookup returns the waiting or claimed ticket of a player.
func (s *Store) Lookup(playerID string) (*models.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.players[playerID]
	if !ok || e.ticket == nil {
		return nil, false
	}
	return e.ticket, true
}

// ReservedBy returns the match currently holding the player.
func (s *Store) ReservedBy(playerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.players[playerID]
	if !ok || e.matchID == "" {
		return "", false
	}
	return e.matchID, true
}

// CountByMode returns the number of tickets held by a mode shard.
func (s *Store) CountByMode(gameMode string) int {
	sh, ok := s.shards[gameMode]
	if !ok {
		return 0
	}
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.tickets)
}

// Count returns the number of tickets over all modes.
func (s *Store) Count() int {
	var total int
	for mode := range s.shards {
		total += s.CountByMode(mode)
	}
	return total
}

func ticketLess(a, b *models.Ticket) bool {
	if a.SkillRating != b.SkillRating {
		return a.SkillRating < b.SkillRating
	}
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.ID < b.ID
}

func (sh *shard) insert(ticket *models.Ticket) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	i := sort.Search(len(sh.tickets), func(i int) bool {
		return !ticketLess(sh.tickets[i], ticket)
	})
	sh.tickets = append(sh.tickets, nil)
	copy(sh.tickets[i+1:], sh.tickets[i:])
	sh.tickets[i] = ticket
}

func (sh *shard) remove(ticket *models.Ticket) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	i := sort.Search(len(sh.tickets), func(i int) bool {
		return sh.tickets[i].SkillRating >= ticket.SkillRating
	})
	for ; i < len(sh.tickets) && sh.tickets[i].SkillRating == ticket.SkillRating; i++ {
		if sh.tickets[i] == ticket {
			sh.tickets = append(sh.tickets[:i], sh.tickets[i+1:]...)
			return
		}
	}
}
