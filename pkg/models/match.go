// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/mitchellh/copystructure"
	"github.com/sirupsen/logrus"
)

// MatchState is the lifecycle state of a match.
type MatchState string

const (
	MatchForming       MatchState = "forming"
	MatchAwaitingJoins MatchState = "awaiting_joins"
	MatchActive        MatchState = "active"
	MatchExpired       MatchState = "expired"
	MatchCancelled     MatchState = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s MatchState) IsTerminal() bool {
	return s == MatchActive || s == MatchExpired || s == MatchCancelled
}

// RosterEntry is one player slot of a match.
type RosterEntry struct {
	PlayerID            string `json:"player_id"`
	TeamIndex           int    `json:"team_index"`
	SkillRating         int    `json:"skill_rating"`
	PreferredRegion     string `json:"preferred_region"`
	ToleranceExpansions int    `json:"tolerance_expansions"`
}

// Requeue creates a fresh waiting ticket for a released roster member.
// The wait clock restarts while the tolerance expansions earned so far are kept.
func (e RosterEntry) Requeue(gameMode string, now time.Time) *Ticket {
	return NewTicket(e.PlayerID, gameMode, e.SkillRating, e.PreferredRegion, now, e.ToleranceExpansions)
}

// Team is a roster view grouped by team index.
type Team struct {
	TeamIndex int      `json:"team_index"`
	PlayerIDs []string `json:"player_ids"`
	SkillSum  int      `json:"skill_sum"`
}

// Match is a proposed or active group session.
type Match struct {
	MatchID         string
	GameMode        string
	Roster          []RosterEntry
	TeamCount       int
	Region          string // backend region code
	RegionName      string
	State           MatchState
	FormedAt        time.Time
	JoinDeadline    time.Time
	JoinedPlayerIDs map[string]struct{}
	ClosedAt        time.Time
	CloseReason     string

	// AnchorPlayerID is the oldest ticket the window was built around.
	AnchorPlayerID string
}

// PlayerIDs returns roster player ids in roster order.
func (m *Match) PlayerIDs() []string {
	return pie.Map(m.Roster, func(e RosterEntry) string { return e.PlayerID })
}

// RosterIndex returns the roster position of a player or -1.
func (m *Match) RosterIndex(playerID string) int {
	return pie.FindFirstUsing(m.Roster, func(e RosterEntry) bool { return e.PlayerID == playerID })
}

// RemovePlayer drops a player from the roster and the joined set.
func (m *Match) RemovePlayer(playerID string) (RosterEntry, bool) {
	i := m.RosterIndex(playerID)
	if i < 0 {
		return RosterEntry{}, false
	}
	entry := m.Roster[i]
	m.Roster = append(m.Roster[:i:i], m.Roster[i+1:]...)
	delete(m.JoinedPlayerIDs, playerID)
	return entry, true
}

// IsFullyJoined reports whether every roster member has joined.
func (m *Match) IsFullyJoined() bool {
	if len(m.Roster) == 0 {
		return false
	}
	for _, e := range m.Roster {
		if _, ok := m.JoinedPlayerIDs[e.PlayerID]; !ok {
			return false
		}
	}
	return true
}

// Partition splits the roster into joined and not joined members.
func (m *Match) Partition() (joined []RosterEntry, notJoined []RosterEntry) {
	for _, e := range m.Roster {
		if _, ok := m.JoinedPlayerIDs[e.PlayerID]; ok {
			joined = append(joined, e)
		} else {
			notJoined = append(notJoined, e)
		}
	}
	return joined, notJoined
}

// Teams groups the roster by team index.
func (m *Match) Teams() []Team {
	count := max(m.TeamCount, 1)
	teams := make([]Team, count)
	for i := range teams {
		teams[i] = Team{TeamIndex: i, PlayerIDs: []string{}}
	}
	for _, e := range m.Roster {
		if e.TeamIndex < 0 || e.TeamIndex >= count {
			continue
		}
		teams[e.TeamIndex].PlayerIDs = append(teams[e.TeamIndex].PlayerIDs, e.PlayerID)
		teams[e.TeamIndex].SkillSum += e.SkillRating
	}
	return teams
}

// TeamSizeSpread is the difference between the largest and the smallest team.
func (m *Match) TeamSizeSpread() int {
	teams := m.Teams()
	sizes := pie.Map(teams, func(t Team) int { return len(t.PlayerIDs) })
	return pie.Max(sizes) - pie.Min(sizes)
}

// Copy deep copies the match so callers never share state with the lifecycle manager.
func (m *Match) Copy() Match {
	copied, err := copystructure.Copy(*m)
	if err != nil {
		logrus.Warn("Failed to copy Match struct:", err)
		return *m
	}
	match, _ := copied.(Match)
	return match
}
