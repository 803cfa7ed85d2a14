// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package constants

import "time"

const (
	// TickTimeLimit bounds one builder pass over a single game mode.
	TickTimeLimit = 4 * time.Second
	// ExactPartitionLimit is the largest two-team roster searched exhaustively.
	ExactPartitionLimit = 14
	// SwapRefinementMaxLoop bounds the pairwise swap pass of team balancing.
	SwapRefinementMaxLoop = 64
)

const (
	BuildMatchesFunction = "buildMatches"
	CheckDeadlines       = "checkDeadlines"
	SweepQueuesFunction  = "sweepQueues"
	SweepMatchesFunction = "sweepMatches"

	// not matched reason constants.
	ReasonNotEnoughPlayers     = "not_enough_players"
	ReasonWaitingForTimeout    = "waiting_for_match_timeout"
	ReasonClaimConflict        = "claim_conflict"
	ReasonRegionUnavailable    = "region_unavailable"
	ReasonPublishFailed        = "publish_failed"
	ReasonNoMatchableTickets   = "no_matchable_tickets"
	ReasonMatchmakingTimeout   = "matchmaking_timeout"
	ReasonMatchJoinTimeout     = "match_join_timeout"
	ReasonStaleMatch           = "stale_match"
	ReasonPlayerLeft           = "player_left"
	ReasonPlayerDisconnected   = "player_disconnected"
	ReasonRosterBelowMinimum   = "roster_below_minimum"
	ReasonTeamsUnbalanced      = "teams_unbalanced"
	ReasonAdministrativeCancel = "administrative_cancel"
	ReasonMatchRolledBack      = "match_rolled_back"
)
