// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package lifecycle owns every state transition of a formed match.
//
// Matches are sharded per game mode. Queue side effects (requeue, release) run under the match
// shard lock so a player is never both on a live roster and back in the queue. Notifications are
// collected while locked and sent after the lock is released.
package lifecycle

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/clock"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/notify"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/queue"

	"github.com/elliotchance/pie/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

type shard struct {
	mu      sync.Mutex
	matches map[string]*models.Match
}

// Manager is the match table and its state machine.
type Manager struct {
	policies models.PolicyTable
	tuning   models.Tuning
	store    *queue.Store
	notifier notify.Notifier
	clock    clock.Clock
	metrics  metrics.MatchmakingMetrics

	// read-only after construction
	shards map[string]*shard

	locatorMu sync.RWMutex
	locator   map[string]string // matchID -> game mode
}

func NewManager(
	policies models.PolicyTable,
	tuning models.Tuning,
	store *queue.Store,
	notifier notify.Notifier,
	clk clock.Clock,
	metrics metrics.MatchmakingMetrics,
) *Manager {
	shards := make(map[string]*shard, len(policies))
	for mode := range policies {
		shards[mode] = &shard{matches: make(map[string]*models.Match)}
	}
	return &Manager{
		policies: policies,
		tuning:   tuning,
		store:    store,
		notifier: notifier,
		clock:    clk,
		metrics:  metrics,
		shards:   shards,
		locator:  make(map[string]string),
	}
}

// outcome collects what a transition produced, handled once the shard lock is released.
type outcome struct {
	events      []notify.Event
	transitions []models.MatchState
}

func (o *outcome) notify(event notify.Event) {
	if len(event.PlayerIDs) > 0 {
		o.events = append(o.events, event)
	}
}

func (m *Manager) flush(scope *envelope.Scope, gameMode string, o outcome) {
	for _, state := range o.transitions {
		m.metrics.AddMatchTransition(gameMode, string(state))
	}
	for _, event := range o.events {
		if err := m.notifier.Notify(scope, event); err != nil {
			scope.Log.WithError(err).WithFields(logrus.Fields{
				"kind":    event.Kind,
				"matchID": event.MatchID,
			}).Error("unable to deliver notification")
		}
	}
}

// Publish moves a forming match to awaiting joins and tells the roster where to go.
func (m *Manager) Publish(rootScope *envelope.Scope, match *models.Match) error {
	scope := rootScope.NewChildScope("lifecycle.Publish")
	defer scope.Finish()

	policy, ok := m.policies.Get(match.GameMode)
	if !ok {
		return models.ErrUnknownGameMode
	}
	if match.State != models.MatchForming {
		return eris.Errorf("match %s is %s, expected %s", match.MatchID, match.State, models.MatchForming)
	}
	scope.SetAttributes(envelope.MatchIDTag, match.MatchID)
	scope.SetAttributes(envelope.RosterTag, match.PlayerIDs())

	now := m.clock.Now()
	match.State = models.MatchAwaitingJoins
	match.JoinDeadline = now.Add(policy.JoinTimeout())
	if match.JoinedPlayerIDs == nil {
		match.JoinedPlayerIDs = make(map[string]struct{}, len(match.Roster))
	}

	sh := m.shards[match.GameMode]
	sh.mu.Lock()
	sh.matches[match.MatchID] = match
	event := notify.MatchEvent(notify.KindMatchReady, match, match.PlayerIDs(), "", now)
	sh.mu.Unlock()

	m.locatorMu.Lock()
	m.locator[match.MatchID] = match.GameMode
	m.locatorMu.Unlock()

	var o outcome
	o.transitions = append(o.transitions, models.MatchAwaitingJoins)
	o.notify(event)
	m.flush(scope, match.GameMode, o)
	return nil
}

// lock returns the locked shard holding the match. The caller must unlock it.
func (m *Manager) lock(matchID string) (*shard, *models.Match, bool) {
	m.locatorMu.RLock()
	mode, ok := m.locator[matchID]
	m.locatorMu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	sh := m.shards[mode]
	sh.mu.Lock()
	match, ok := sh.matches[matchID]
	if !ok {
		sh.mu.Unlock()
		return nil, nil, false
	}
	return sh, match, true
}

// ReportJoin records that a roster member entered the match.
func (m *Manager) ReportJoin(rootScope *envelope.Scope, matchID, playerID string) error {
	scope := rootScope.NewChildScope("lifecycle.ReportJoin")
	defer scope.Finish()

	sh, match, ok := m.lock(matchID)
	if !ok {
		return models.ErrUnknownMatch
	}
	if match.RosterIndex(playerID) < 0 {
		sh.mu.Unlock()
		return models.ErrPlayerNotInRoster
	}
	switch match.State {
	case models.MatchActive:
		sh.mu.Unlock()
		return nil
	case models.MatchExpired, models.MatchCancelled:
		sh.mu.Unlock()
		return eris.Wrapf(models.ErrMatchClosed, "match %s is %s", matchID, match.State)
	}

	var o outcome
	match.JoinedPlayerIDs[playerID] = struct{}{}
	if match.IsFullyJoined() {
		m.activate(match, &o)
	}
	gameMode := match.GameMode
	sh.mu.Unlock()

	m.flush(scope, gameMode, o)
	return nil
}

// ReportLeave removes a player from a match that is still waiting for joins. It always succeeds.
func (m *Manager) ReportLeave(rootScope *envelope.Scope, matchID, playerID string) {
	m.leave(rootScope, matchID, playerID, constants.ReasonPlayerLeft)
}

// ReportDisconnect is a leave initiated by the game backend.
func (m *Manager) ReportDisconnect(rootScope *envelope.Scope, matchID, playerID string) {
	m.leave(rootScope, matchID, playerID, constants.ReasonPlayerDisconnected)
}

func (m *Manager) leave(rootScope *envelope.Scope, matchID, playerID, reason string) {
	scope := rootScope.NewChildScope("lifecycle.leave")
	defer scope.Finish()
	log := scope.Log.WithFields(logrus.Fields{"matchID": matchID, "playerID": playerID, "reason": reason})

	sh, match, ok := m.lock(matchID)
	if !ok {
		log.Debug("leave reported for unknown match")
		return
	}
	if match.State.IsTerminal() {
		sh.mu.Unlock()
		log.Debug("leave reported for closed match")
		return
	}
	if _, removed := match.RemovePlayer(playerID); !removed {
		sh.mu.Unlock()
		return
	}
	m.store.Release(matchID, playerID)

	var o outcome
	policy := m.policies[match.GameMode]
	switch {
	case len(match.Roster) < policy.MinPlayers:
		m.cancel(match, constants.ReasonRosterBelowMinimum, &o)
	case policy.IsBalanced() && match.TeamSizeSpread() > 1:
		m.cancel(match, constants.ReasonTeamsUnbalanced, &o)
	case match.IsFullyJoined():
		m.activate(match, &o)
	}
	gameMode := match.GameMode
	sh.mu.Unlock()

	log.Info("player left match")
	m.flush(scope, gameMode, o)
}

// Cancel is an administrative cancellation of a match that is not active yet.
func (m *Manager) Cancel(rootScope *envelope.Scope, matchID, reason string) error {
	scope := rootScope.NewChildScope("lifecycle.Cancel")
	defer scope.Finish()

	sh, match, ok := m.lock(matchID)
	if !ok {
		return models.ErrUnknownMatch
	}
	if match.State.IsTerminal() {
		sh.mu.Unlock()
		return eris.Wrapf(models.ErrMatchClosed, "match %s is %s", matchID, match.State)
	}
	if reason == "" {
		reason = constants.ReasonAdministrativeCancel
	}
	var o outcome
	m.cancel(match, reason, &o)
	gameMode := match.GameMode
	sh.mu.Unlock()

	scope.Log.WithFields(logrus.Fields{"matchID": matchID, "reason": reason}).Info("match cancelled")
	m.flush(scope, gameMode, o)
	return nil
}

// CheckDeadlines expires every match whose join window has passed and returns their ids.
func (m *Manager) CheckDeadlines(rootScope *envelope.Scope) []string {
	scope := rootScope.NewChildScope(constants.CheckDeadlines)
	defer scope.Finish()

	var expired []string
	for mode, sh := range m.shards {
		started := time.Now()
		now := m.clock.Now()
		var o outcome

		sh.mu.Lock()
		for id, match := range sh.matches {
			if match.State != models.MatchAwaitingJoins || !now.After(match.JoinDeadline) {
				continue
			}
			m.expire(match, constants.ReasonMatchJoinTimeout, now, &o)
			expired = append(expired, id)
		}
		sh.mu.Unlock()

		m.flush(scope, mode, o)
		m.metrics.AddTickElapsedTimeMs(mode, constants.CheckDeadlines, time.Since(started))
	}
	if len(expired) > 0 {
		scope.Log.WithField("matchIDs", expired).Info("join deadline passed")
	}
	return expired
}

// ForceExpire moves a stuck match to expired.
func (m *Manager) ForceExpire(rootScope *envelope.Scope, matchID, reason string) error {
	scope := rootScope.NewChildScope("lifecycle.ForceExpire")
	defer scope.Finish()

	sh, match, ok := m.lock(matchID)
	if !ok {
		return models.ErrUnknownMatch
	}
	if match.State.IsTerminal() {
		sh.mu.Unlock()
		return eris.Wrapf(models.ErrMatchClosed, "match %s is %s", matchID, match.State)
	}
	var o outcome
	m.expire(match, reason, m.clock.Now(), &o)
	gameMode := match.GameMode
	sh.mu.Unlock()

	scope.Log.WithFields(logrus.Fields{"matchID": matchID, "reason": reason}).Warn("match force expired")
	m.flush(scope, gameMode, o)
	return nil
}

// activate must be called with the shard lock held.
func (m *Manager) activate(match *models.Match, o *outcome) {
	now := m.clock.Now()
	match.State = models.MatchActive
	match.ClosedAt = now
	for _, id := range match.PlayerIDs() {
		m.store.Release(match.MatchID, id)
	}
	o.transitions = append(o.transitions, models.MatchActive)
	o.notify(notify.MatchEvent(notify.KindMatchActive, match, match.PlayerIDs(), "", now))
}

// cancel must be called with the shard lock held. The whole remaining roster goes back to the queue.
func (m *Manager) cancel(match *models.Match, reason string, o *outcome) {
	now := m.clock.Now()
	match.State = models.MatchCancelled
	match.ClosedAt = now
	match.CloseReason = reason
	o.transitions = append(o.transitions, models.MatchCancelled)
	o.notify(notify.MatchEvent(notify.KindMatchCancelled, match, match.PlayerIDs(), reason, now))
	o.notify(notify.MatchEvent(notify.KindRequeued, match, m.requeue(match, match.Roster, now), reason, now))
}

// expire must be called with the shard lock held.
// Players who never joined get a join timeout notice and, unless configured otherwise, are released
// instead of requeued. Players who joined are always requeued.
func (m *Manager) expire(match *models.Match, reason string, now time.Time, o *outcome) {
	joined, notJoined := match.Partition()
	match.State = models.MatchExpired
	match.ClosedAt = now
	match.CloseReason = reason
	o.transitions = append(o.transitions, models.MatchExpired)

	notJoinedIDs := pie.Map(notJoined, func(e models.RosterEntry) string { return e.PlayerID })
	if len(notJoinedIDs) > 0 {
		m.metrics.AddTimeout(match.GameMode, notify.KindMatchJoinTimeout.String())
	}
	o.notify(notify.MatchEvent(notify.KindMatchJoinTimeout, match, notJoinedIDs, reason, now))

	requeued := m.requeue(match, joined, now)
	if m.tuning.RequeueUnjoined {
		requeued = append(requeued, m.requeue(match, notJoined, now)...)
	} else {
		for _, id := range notJoinedIDs {
			m.store.Release(match.MatchID, id)
		}
	}
	o.notify(notify.MatchEvent(notify.KindRequeued, match, requeued, reason, now))
}

func (m *Manager) requeue(match *models.Match, entries []models.RosterEntry, now time.Time) []string {
	requeued := make([]string, 0, len(entries))
	for _, entry := range entries {
		if m.store.Requeue(match.MatchID, entry.Requeue(match.GameMode, now)) {
			requeued = append(requeued, entry.PlayerID)
		}
	}
	return requeued
}

// Get returns a deep copy of the match.
func (m *Manager) Get(matchID string) (models.Match, error) {
	sh, match, ok := m.lock(matchID)
	if !ok {
		return models.Match{}, models.ErrUnknownMatch
	}
	defer sh.mu.Unlock()
	return match.Copy(), nil
}

// Stale returns the non-terminal matches formed longer than grace join timeouts ago.
func (m *Manager) Stale(now time.Time, grace int) []string {
	var stale []string
	for mode, sh := range m.shards {
		limit := time.Duration(grace) * m.policies[mode].JoinTimeout()
		sh.mu.Lock()
		for id, match := range sh.matches {
			if !match.State.IsTerminal() && now.Sub(match.FormedAt) > limit {
				stale = append(stale, id)
			}
		}
		sh.mu.Unlock()
	}
	return stale
}

// Closed returns the terminal matches closed before the given time.
func (m *Manager) Closed(before time.Time) []string {
	var closed []string
	for _, sh := range m.shards {
		sh.mu.Lock()
		for id, match := range sh.matches {
			if match.State.IsTerminal() && match.ClosedAt.Before(before) {
				closed = append(closed, id)
			}
		}
		sh.mu.Unlock()
	}
	return closed
}

// Forget drops a terminal match from the table.
func (m *Manager) Forget(matchID string) bool {
	sh, match, ok := m.lock(matchID)
	if !ok {
		return false
	}
	if !match.State.IsTerminal() {
		sh.mu.Unlock()
		return false
	}
	delete(sh.matches, matchID)
	sh.mu.Unlock()

	m.locatorMu.Lock()
	delete(m.locator, matchID)
	m.locatorMu.Unlock()
	return true
}

// CountByState returns the number of tracked matches per state.
func (m *Manager) CountByState() map[models.MatchState]int {
	counts := make(map[models.MatchState]int)
	for _, sh := range m.shards {
		sh.mu.Lock()
		for _, match := range sh.matches {
			counts[match.State]++
		}
		sh.mu.Unlock()
	}
	return counts
}
