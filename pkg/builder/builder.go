// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package builder turns the waiting tickets of one game mode into formed matches.
package builder

import (
	"sort"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/clock"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/common"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/queue"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/rebalance"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/region"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/utils"

	"github.com/davecgh/go-spew/spew"
	"github.com/elliotchance/pie/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Publisher receives every formed match. The lifecycle manager implements it.
type Publisher interface {
	Publish(scope *envelope.Scope, match *models.Match) error
}

// Builder runs the tick of a single game mode. Ticks of one builder must not overlap.
type Builder struct {
	policy    models.ModePolicy
	tuning    models.Tuning
	store     *queue.Store
	selector  *region.Selector
	publisher Publisher
	clock     clock.Clock
	metrics   metrics.MatchmakingMetrics
	pool      *models.Pool
}

func New(
	policy models.ModePolicy,
	tuning models.Tuning,
	store *queue.Store,
	selector *region.Selector,
	publisher Publisher,
	clk clock.Clock,
	metrics metrics.MatchmakingMetrics,
) *Builder {
	return &Builder{
		policy:    policy,
		tuning:    tuning,
		store:     store,
		selector:  selector,
		publisher: publisher,
		clock:     clk,
		metrics:   metrics,
		pool:      models.NewPool(),
	}
}

func (b *Builder) GameMode() string {
	return b.policy.GameMode
}

/*
Tick scans the mode queue once and returns the matches it formed.

Step 1: take the skill ordered snapshot and widen the tolerance of every ticket whose age crossed
the next expansion boundary.

Step 2: walk anchors from the oldest ticket. The window of an anchor holds the unplaced tickets
within its tolerance, nearest skill first, FIFO among equal distance, capped at max players.

Step 3: a full window forms right away. A window of at least min players forms only once the anchor
waited for the mode match timeout. Otherwise the next oldest ticket becomes the anchor.
*/
func (b *Builder) Tick(rootScope *envelope.Scope) []*models.Match {
	scope := rootScope.NewChildScope(constants.BuildMatchesFunction)
	defer scope.Finish()
	scope.SetAttributes(envelope.GameModeTag, b.policy.GameMode)

	started := time.Now()
	defer func() {
		b.metrics.AddTickElapsedTimeMs(b.policy.GameMode, constants.BuildMatchesFunction, time.Since(started))
	}()

	snapshot := b.store.SnapshotByMode(b.policy.GameMode)
	b.metrics.SetTicketsInQueue(b.policy.GameMode, len(snapshot))
	if len(snapshot) == 0 {
		return nil
	}

	now := b.clock.Now()
	for _, ticket := range snapshot {
		if expansions, changed := ticket.ExpandTolerance(now, b.tuning.ExpansionInterval); changed {
			scope.Log.WithField("playerID", ticket.PlayerID).WithField("expansions", expansions).
				Trace("skill tolerance expanded")
		}
	}

	anchors := append(b.pool.GetTickets(), snapshot...)
	defer b.pool.PutTickets(anchors)
	sort.SliceStable(anchors, func(i, j int) bool {
		if !anchors[i].EnqueuedAt.Equal(anchors[j].EnqueuedAt) {
			return anchors[i].EnqueuedAt.Before(anchors[j].EnqueuedAt)
		}
		return anchors[i].ID < anchors[j].ID
	})

	placed := make(map[*models.Ticket]struct{})
	var matches []*models.Match
	for _, anchor := range anchors {
		if time.Since(started) > constants.TickTimeLimit {
			scope.Log.WithField("gameMode", b.policy.GameMode).Warn("tick time limit reached, remaining anchors wait for the next tick")
			break
		}
		if _, ok := placed[anchor]; ok || anchor.State() != models.TicketWaiting {
			continue
		}
		if len(snapshot)-len(placed) < b.policy.MinPlayers {
			b.metrics.AddUnmatchedReason(b.policy.GameMode, constants.ReasonNotEnoughPlayers)
			break
		}

		window := b.window(snapshot, anchor, placed)
		reason := b.unmatchedReason(anchor, len(window), now)
		if reason != "" {
			b.metrics.AddUnmatchedReason(b.policy.GameMode, reason)
			b.pool.PutTickets(window)
			continue
		}
		if scope.Log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			scope.Log.WithField("anchor", anchor.PlayerID).Debug("window accepted: ", spew.Sdump(b.ratings(window)))
		}

		match, err := b.form(scope, anchor, window, now)
		if err != nil {
			scope.Log.WithError(err).WithField("anchor", anchor.PlayerID).Warn("unable to form match")
			b.pool.PutTickets(window)
			continue
		}
		for _, t := range window {
			placed[t] = struct{}{}
		}
		b.pool.PutTickets(window)
		matches = append(matches, match)
	}
	return matches
}

func (b *Builder) unmatchedReason(anchor *models.Ticket, size int, now time.Time) string {
	switch {
	case size >= b.policy.MaxPlayers:
		return ""
	case size < b.policy.MinPlayers:
		return constants.ReasonNotEnoughPlayers
	case anchor.Age(now) < b.policy.MatchTimeout():
		return constants.ReasonWaitingForTimeout
	}
	return ""
}

// window returns the anchor followed by its nearest candidates. The slice comes from the pool.
func (b *Builder) window(snapshot []*models.Ticket, anchor *models.Ticket, placed map[*models.Ticket]struct{}) []*models.Ticket {
	tolerance := b.tuning.Tolerance(anchor.ToleranceExpansions())
	low := sort.Search(len(snapshot), func(i int) bool {
		return snapshot[i].SkillRating >= anchor.SkillRating-tolerance
	})
	high := sort.Search(len(snapshot), func(i int) bool {
		return snapshot[i].SkillRating > anchor.SkillRating+tolerance
	})

	candidates := b.pool.GetTickets()
	for _, t := range snapshot[low:high] {
		if t == anchor || t.State() != models.TicketWaiting {
			continue
		}
		if _, ok := placed[t]; ok {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, c := candidates[i], candidates[j]
		da := mathutil.Abs(a.SkillRating - anchor.SkillRating)
		dc := mathutil.Abs(c.SkillRating - anchor.SkillRating)
		if da != dc {
			return da < dc
		}
		if !a.EnqueuedAt.Equal(c.EnqueuedAt) {
			return a.EnqueuedAt.Before(c.EnqueuedAt)
		}
		return a.PlayerID < c.PlayerID
	})

	limit := min(len(candidates), b.policy.MaxPlayers-1)
	window := append(b.pool.GetTickets(), anchor)
	window = append(window, candidates[:limit]...)
	b.pool.PutTickets(candidates)
	return window
}

func (b *Builder) ratings(window []*models.Ticket) []int {
	return pie.Map(window, func(t *models.Ticket) int { return t.SkillRating })
}

// form claims the window, splits it into teams, assigns a region and publishes the match.
// Every failure leaves the window tickets waiting, or requeued once they were committed.
func (b *Builder) form(scope *envelope.Scope, anchor *models.Ticket, window []*models.Ticket, now time.Time) (*models.Match, error) {
	if !b.store.Claim(window) {
		b.metrics.AddUnmatchedReason(b.policy.GameMode, constants.ReasonClaimConflict)
		err := eris.New("window ticket claimed or cancelled concurrently")
		scope.RecordError(err)
		return nil, err
	}

	teams := rebalance.Balance(scope, window, b.policy.TeamCount())
	roster := make([]models.RosterEntry, 0, len(window))
	for teamIndex, team := range teams.Teams {
		for _, t := range team {
			roster = append(roster, t.RosterEntry(teamIndex))
		}
	}

	selected, err := b.selector.SelectRegion(roster)
	if err != nil {
		b.store.Unclaim(window)
		b.metrics.AddUnmatchedReason(b.policy.GameMode, constants.ReasonRegionUnavailable)
		scope.RecordError(err)
		return nil, eris.Wrap(err, "unable to select region")
	}
	scope.SetAttributes(envelope.RegionTag, selected.Code)

	match := &models.Match{
		MatchID:         utils.GenerateMatchID(),
		GameMode:        b.policy.GameMode,
		Roster:          roster,
		TeamCount:       len(teams.Teams),
		Region:          selected.Code,
		RegionName:      selected.Name,
		State:           models.MatchForming,
		FormedAt:        now,
		JoinedPlayerIDs: make(map[string]struct{}, len(roster)),
		AnchorPlayerID:  anchor.PlayerID,
	}
	b.store.Commit(match.MatchID, window)

	if err := b.publisher.Publish(scope, match); err != nil {
		for _, entry := range roster {
			b.store.Requeue(match.MatchID, entry.Requeue(b.policy.GameMode, now))
		}
		b.metrics.AddUnmatchedReason(b.policy.GameMode, constants.ReasonPublishFailed)
		scope.RecordError(err)
		return nil, eris.Wrapf(err, "unable to publish match %s", match.MatchID)
	}

	b.metrics.AddMatchFormed(b.policy.GameMode, selected.Code, len(roster))
	for _, t := range window {
		b.metrics.ObserveWaitTime(b.policy.GameMode, t.Age(now))
	}
	scope.Log.WithFields(logrus.Fields{
		"matchID":   match.MatchID,
		"gameMode":  match.GameMode,
		"region":    match.Region,
		"players":   len(roster),
		"teamSums":  teams.Sums,
		"anchor":    anchor.PlayerID,
		"anchorAge": anchor.Age(now).String(),
	}).Info("match formed")
	if scope.Log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		scope.Log.WithField("matchID", match.MatchID).Debug("teams: ", common.LogJSONFormatter(match.Teams()))
	}
	return match, nil
}
