// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package engine wires the queue, builders, lifecycle manager and sweeper together and exposes
// the operations collaborators call.
package engine

import (
	"context"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/builder"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/common"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/lifecycle"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/queue"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/region"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/sweeper"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EnqueueRequest is a player asking to be matched.
type EnqueueRequest struct {
	PlayerID        string `json:"player_id"`
	GameMode        string `json:"game_mode"`
	SkillRating     int    `json:"skill_rating"`
	PreferredRegion string `json:"preferred_region"`
}

// Stats is a point in time view of the engine.
type Stats struct {
	TicketsByMode  map[string]int `json:"tickets_by_mode"`
	MatchesByState map[string]int `json:"matches_by_state"`
}

type Engine struct {
	policies models.PolicyTable
	tuning   models.Tuning
	opts     options

	store    *queue.Store
	selector *region.Selector
	matches  *lifecycle.Manager
	builders map[string]*builder.Builder
	sweeper  *sweeper.Sweeper
}

// New validates the policy document and the tuning and builds every component. An empty region map is fatal.
func New(doc models.PolicyDocument, tuning models.Tuning, opts ...Option) (*Engine, error) {
	if err := doc.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid policy document")
	}
	if err := tuning.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid tuning")
	}
	selector, err := region.NewSelector(doc.Regions)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	policies := doc.Table()
	modes := policies.GameModes()
	store := queue.NewStore(modes)
	matches := lifecycle.NewManager(policies, tuning, store, o.notifier, o.clock, o.metrics)

	builders := make(map[string]*builder.Builder, len(modes))
	for _, mode := range modes {
		builders[mode] = builder.New(policies[mode], tuning, store, selector, matches, o.clock, o.metrics)
	}

	return &Engine{
		policies: policies,
		tuning:   tuning,
		opts:     o,
		store:    store,
		selector: selector,
		matches:  matches,
		builders: builders,
		sweeper:  sweeper.New(modes, tuning, store, matches, o.notifier, o.clock, o.metrics),
	}, nil
}

// Enqueue validates the request and puts a new ticket in the queue of its mode.
func (e *Engine) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	scope := envelope.ChildScopeFromRemoteScope(ctx, "engine.Enqueue")
	defer scope.Finish()
	scope.SetAttributes(envelope.PlayerIDTag, req.PlayerID)
	scope.SetAttributes(envelope.GameModeTag, req.GameMode)

	ticket, err := e.newTicket(req)
	if err == nil {
		err = e.store.Enqueue(ticket)
	}
	if err != nil {
		scope.RecordError(err)
		scope.Log.WithField("playerID", req.PlayerID).WithError(err).Debug("enqueue rejected")
		return "", err
	}

	scope.Log.WithFields(logrus.Fields{
		"playerID":    req.PlayerID,
		"gameMode":    req.GameMode,
		"skillRating": req.SkillRating,
		"ticketID":    ticket.ID,
	}).Debug("ticket enqueued")
	return ticket.ID, nil
}

func (e *Engine) newTicket(req EnqueueRequest) (*models.Ticket, error) {
	switch {
	case req.PlayerID == "":
		return nil, models.ErrEmptyPlayerID
	case req.SkillRating < 0:
		return nil, models.ErrInvalidSkillRating
	case req.PreferredRegion != "" && !e.selector.Known(req.PreferredRegion):
		return nil, eris.Wrapf(models.ErrUnknownRegion, "region %s", req.PreferredRegion)
	}
	if _, ok := e.policies.Get(req.GameMode); !ok {
		return nil, eris.Wrapf(models.ErrUnknownGameMode, "game mode %s", req.GameMode)
	}
	return models.NewTicket(req.PlayerID, req.GameMode, req.SkillRating, req.PreferredRegion, e.opts.clock.Now(), 0), nil
}

// CancelTicket withdraws a waiting ticket. A ticket already placed in a forming match returns
// ErrTicketClaimed; that player has to leave through ReportLeave.
func (e *Engine) CancelTicket(ctx context.Context, playerID string) error {
	scope := envelope.ChildScopeFromRemoteScope(ctx, "engine.CancelTicket")
	defer scope.Finish()
	scope.SetAttributes(envelope.PlayerIDTag, playerID)

	if playerID == "" {
		return models.ErrEmptyPlayerID
	}
	_, err := e.store.Cancel(playerID)
	scope.RecordError(err)
	return err
}

func (e *Engine) ReportJoin(ctx context.Context, matchID, playerID string) error {
	scope := envelope.ChildScopeFromRemoteScope(ctx, "engine.ReportJoin")
	defer scope.Finish()
	scope.SetAttributes(envelope.MatchIDTag, matchID)
	scope.SetAttributes(envelope.PlayerIDTag, playerID)

	if playerID == "" {
		return models.ErrEmptyPlayerID
	}
	err := e.matches.ReportJoin(scope, matchID, playerID)
	scope.RecordError(err)
	return err
}

func (e *Engine) ReportLeave(ctx context.Context, matchID, playerID string) error {
	scope := envelope.ChildScopeFromRemoteScope(ctx, "engine.ReportLeave")
	defer scope.Finish()
	scope.SetAttributes(envelope.MatchIDTag, matchID)
	scope.SetAttributes(envelope.PlayerIDTag, playerID)

	if playerID == "" {
		return models.ErrEmptyPlayerID
	}
	e.matches.ReportLeave(scope, matchID, playerID)
	return nil
}

func (e *Engine) ReportDisconnect(ctx context.Context, matchID, playerID string) error {
	scope := envelope.ChildScopeFromRemoteScope(ctx, "engine.ReportDisconnect")
	defer scope.Finish()
	scope.SetAttributes(envelope.MatchIDTag, matchID)
	scope.SetAttributes(envelope.PlayerIDTag, playerID)

	if playerID == "" {
		return models.ErrEmptyPlayerID
	}
	e.matches.ReportDisconnect(scope, matchID, playerID)
	return nil
}

func (e *Engine) CancelMatch(ctx context.Context, matchID, reason string) error {
	scope := envelope.ChildScopeFromRemoteScope(ctx, "engine.CancelMatch")
	defer scope.Finish()
	scope.SetAttributes(envelope.MatchIDTag, matchID)

	err := e.matches.Cancel(scope, matchID, reason)
	scope.RecordError(err)
	return err
}

// Match returns a copy of a tracked match.
func (e *Engine) Match(matchID string) (models.Match, error) {
	return e.matches.Get(matchID)
}

func (e *Engine) Stats() Stats {
	stats := Stats{
		TicketsByMode:  make(map[string]int, len(e.builders)),
		MatchesByState: make(map[string]int),
	}
	for _, mode := range e.policies.GameModes() {
		stats.TicketsByMode[mode] = e.store.CountByMode(mode)
	}
	for state, count := range e.matches.CountByState() {
		stats.MatchesByState[string(state)] = count
	}
	return stats
}

// GameModes returns the configured modes.
func (e *Engine) GameModes() []string {
	return e.policies.GameModes()
}

// TickMode runs one builder pass over a mode and returns copies of the matches it formed.
func (e *Engine) TickMode(scope *envelope.Scope, gameMode string) []models.Match {
	b, ok := e.builders[gameMode]
	if !ok {
		return nil
	}
	formed := b.Tick(scope)
	matches := make([]models.Match, 0, len(formed))
	for _, m := range formed {
		match, err := e.matches.Get(m.MatchID)
		if err != nil {
			continue
		}
		matches = append(matches, match)
	}
	return matches
}

func (e *Engine) CheckLifecycle(scope *envelope.Scope) []string {
	return e.matches.CheckDeadlines(scope)
}

func (e *Engine) SweepQueues(scope *envelope.Scope) int {
	return e.sweeper.SweepQueues(scope)
}

func (e *Engine) SweepMatches(scope *envelope.Scope) (int, int) {
	return e.sweeper.SweepMatches(scope)
}

// Run drives the periodic tasks until ctx is done: one builder loop per mode, the join deadline
// checker and both sweeps. No task blocks another.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for mode := range e.builders {
		mode := mode
		g.Go(func() error {
			return e.every(ctx, constants.BuildMatchesFunction, e.opts.tickInterval, func(scope *envelope.Scope) {
				e.TickMode(scope.WithField("gameMode", mode), mode)
			})
		})
	}
	g.Go(func() error {
		return e.every(ctx, constants.CheckDeadlines, e.opts.lifecycleCheckInterval, func(scope *envelope.Scope) {
			e.CheckLifecycle(scope)
		})
	})
	g.Go(func() error {
		return e.every(ctx, constants.SweepQueuesFunction, e.tuning.CleanupStaleQueues, func(scope *envelope.Scope) {
			e.SweepQueues(scope)
		})
	})
	g.Go(func() error {
		return e.every(ctx, constants.SweepMatchesFunction, e.tuning.CleanupStaleMatches, func(scope *envelope.Scope) {
			e.SweepMatches(scope)
		})
	})

	return g.Wait()
}

func (e *Engine) every(ctx context.Context, name string, interval time.Duration, task func(scope *envelope.Scope)) error {
	if interval <= 0 {
		return eris.Errorf("interval of %s must be greater than 0", name)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			scope := envelope.NewRootScope(ctx, name, "")
			err := common.RunIsolated(func() error {
				task(scope)
				return nil
			})
			if err != nil {
				scope.Log.WithError(err).Errorf("periodic task %s failed", name)
			}
			scope.Finish()
		}
	}
}

var (
	_ builder.Publisher  = (*lifecycle.Manager)(nil)
	_ sweeper.MatchTable = (*lifecycle.Manager)(nil)
)
