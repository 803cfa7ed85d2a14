// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package sweeper reclaims tickets and matches left behind by unresponsive collaborators.
package sweeper

import (
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/clock"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/common"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/notify"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/queue"

	"github.com/sirupsen/logrus"
)

// MatchTable is the part of the lifecycle manager the sweeper drives.
type MatchTable interface {
	Stale(now time.Time, grace int) []string
	Closed(before time.Time) []string
	ForceExpire(scope *envelope.Scope, matchID, reason string) error
	Forget(matchID string) bool
}

type Sweeper struct {
	modes    []string
	tuning   models.Tuning
	store    *queue.Store
	matches  MatchTable
	notifier notify.Notifier
	clock    clock.Clock
	metrics  metrics.MatchmakingMetrics
}

func New(
	modes []string,
	tuning models.Tuning,
	store *queue.Store,
	matches MatchTable,
	notifier notify.Notifier,
	clk clock.Clock,
	metrics metrics.MatchmakingMetrics,
) *Sweeper {
	return &Sweeper{
		modes:    modes,
		tuning:   tuning,
		store:    store,
		matches:  matches,
		notifier: notifier,
		clock:    clk,
		metrics:  metrics,
	}
}

// SweepQueues evicts every waiting ticket older than the max wait time and tells its player.
// It returns the number of evicted tickets.
func (s *Sweeper) SweepQueues(rootScope *envelope.Scope) int {
	scope := rootScope.NewChildScope(constants.SweepQueuesFunction)
	defer scope.Finish()

	evicted := 0
	for _, mode := range s.modes {
		started := time.Now()
		now := s.clock.Now()
		for _, ticket := range s.store.SnapshotByMode(mode) {
			if ticket.Age(now) <= s.tuning.MaxWaitTime {
				continue
			}
			ticket := ticket
			err := common.RunIsolated(func() error {
				if !s.store.RemoveTicket(ticket) {
					// claimed by the builder or cancelled in the meantime
					return nil
				}
				evicted++
				s.metrics.AddTimeout(mode, notify.KindMatchmakingTimeout.String())
				return s.notifier.Notify(scope, notify.Event{
					Kind:      notify.KindMatchmakingTimeout,
					GameMode:  mode,
					PlayerIDs: []string{ticket.PlayerID},
					Reason:    constants.ReasonMatchmakingTimeout,
					At:        now,
				})
			})
			if err != nil {
				scope.RecordError(err)
				scope.Log.WithError(err).WithFields(logrus.Fields{
					"gameMode": mode,
					"playerID": ticket.PlayerID,
				}).Error("unable to evict stale ticket")
			}
		}
		s.metrics.AddTickElapsedTimeMs(mode, constants.SweepQueuesFunction, time.Since(started))
	}
	if evicted > 0 {
		scope.Log.WithField("evicted", evicted).Info("stale tickets evicted")
	}
	return evicted
}

// SweepMatches forces stuck matches to expired and forgets terminal matches past retention.
func (s *Sweeper) SweepMatches(rootScope *envelope.Scope) (expired int, forgotten int) {
	scope := rootScope.NewChildScope(constants.SweepMatchesFunction)
	defer scope.Finish()

	now := s.clock.Now()
	for _, matchID := range s.matches.Stale(now, s.tuning.StaleMatchGrace) {
		matchID := matchID
		err := common.RunIsolated(func() error {
			return s.matches.ForceExpire(scope, matchID, constants.ReasonStaleMatch)
		})
		if err != nil {
			scope.RecordError(err)
			scope.Log.WithError(err).WithField("matchID", matchID).Warn("unable to expire stale match")
			continue
		}
		expired++
	}

	for _, matchID := range s.matches.Closed(now.Add(-s.tuning.MatchRetention)) {
		matchID := matchID
		err := common.RunIsolated(func() error {
			if s.matches.Forget(matchID) {
				forgotten++
			}
			return nil
		})
		if err != nil {
			scope.RecordError(err)
			scope.Log.WithError(err).WithField("matchID", matchID).Warn("unable to forget match")
		}
	}

	if expired > 0 || forgotten > 0 {
		scope.Log.WithFields(logrus.Fields{"expired": expired, "forgotten": forgotten}).Info("matches swept")
	}
	return expired, forgotten
}
