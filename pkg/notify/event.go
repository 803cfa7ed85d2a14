// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package notify delivers matchmaking outcomes to the collaborators of the affected players.
package notify

import (
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
)

// Kind is the type of a notification.
type Kind string

const (
	KindMatchReady         Kind = "match_ready"
	KindMatchJoinTimeout   Kind = "match_join_timeout"
	KindMatchmakingTimeout Kind = "matchmaking_timeout"
	KindMatchCancelled     Kind = "match_cancelled"
	KindRequeued           Kind = "requeued"
	KindMatchActive        Kind = "match_active"
)

func (k Kind) String() string {
	return string(k)
}

// Event is addressed to PlayerIDs. Match fields are empty for queue level events.
type Event struct {
	Kind         Kind          `json:"kind"`
	MatchID      string        `json:"match_id,omitempty"`
	GameMode     string        `json:"game_mode"`
	PlayerIDs    []string      `json:"player_ids"`
	Teams        []models.Team `json:"teams,omitempty"`
	Region       string        `json:"region,omitempty"`
	RegionName   string        `json:"region_name,omitempty"`
	JoinDeadline time.Time     `json:"join_deadline,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	At           time.Time     `json:"at"`
}

// MatchEvent builds an event describing a match, addressed to the given players.
func MatchEvent(kind Kind, match *models.Match, playerIDs []string, reason string, at time.Time) Event {
	return Event{
		Kind:         kind,
		MatchID:      match.MatchID,
		GameMode:     match.GameMode,
		PlayerIDs:    playerIDs,
		Teams:        match.Teams(),
		Region:       match.Region,
		RegionName:   match.RegionName,
		JoinDeadline: match.JoinDeadline,
		Reason:       reason,
		At:           at,
	}
}

// Notifier delivers events. Implementations must be safe for concurrent use and must not block
// for long: events are sent from the tick and sweep loops.
type Notifier interface {
	Notify(scope *envelope.Scope, event Event) error
}

// Fanout sends every event to all notifiers and returns the first error.
type Fanout []Notifier

func (f Fanout) Notify(scope *envelope.Scope, event Event) error {
	var firstErr error
	for _, n := range f {
		if err := n.Notify(scope, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
