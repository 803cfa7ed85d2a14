// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import "errors"

// Request errors returned synchronously to collaborators.
var (
	ErrDuplicatePlayer    = errors.New("player already has an active ticket or match")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrTicketClaimed      = errors.New("ticket already claimed by a forming match")
	ErrUnknownMatch       = errors.New("unknown match")
	ErrPlayerNotInRoster  = errors.New("player not in match roster")
	ErrMatchClosed        = errors.New("match is no longer open for joins")
	ErrUnknownGameMode    = errors.New("unknown game mode")
	ErrUnknownRegion      = errors.New("unknown region")
	ErrInvalidSkillRating = errors.New("skill rating cannot be negative")
	ErrEmptyPlayerID      = errors.New("player id cannot be empty")
)

// ErrNoRegionAvailable is a configuration fault, only raised at startup.
var ErrNoRegionAvailable = errors.New("no region available")
