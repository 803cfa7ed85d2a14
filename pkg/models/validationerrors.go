// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
)

var (
	ValidationErrorEmptyGameMode     = errors.New("game mode name cannot be empty")
	ValidationErrorDuplicateGameMode = errors.New("game mode defined more than once")
	ValidationErrorPlayerBounds      = errors.New("max players must be greater than or equal with min players")
	ValidationErrorZeroMinPlayers    = errors.New("min players must be at least 1")
	ValidationErrorTeamSize          = errors.New("team size must be between 1 and max players")
	ValidationErrorTeamCount         = errors.New("balanced mode needs at least 2 teams and min players covering every team")
	ValidationErrorTimeout           = errors.New("match timeout and join timeout must be greater than 0")
	ValidationErrorNoModes           = errors.New("policy document must define at least one game mode")
	ValidationErrorRegion            = errors.New("region name and code cannot be empty and names must be unique")
	ValidationErrorSkillRange        = errors.New("skill range and skill range expansion cannot be negative")
	ValidationErrorWaitTimes         = errors.New("expansion interval and max wait time must be greater than 0")
	ValidationErrorCleanupInterval   = errors.New("stale queue and stale match cleanup intervals must be greater than 0")
	ValidationErrorStaleGrace        = errors.New("stale match grace must be at least 1 and match retention cannot be negative")
)

var validationErrorCodeMap = map[error]int{
	ValidationErrorEmptyGameMode:     510115,
	ValidationErrorDuplicateGameMode: 510116,
	ValidationErrorPlayerBounds:      510117,
	ValidationErrorZeroMinPlayers:    510118,
	ValidationErrorTeamSize:          510119,
	ValidationErrorTeamCount:         510120,
	ValidationErrorTimeout:           510121,
	ValidationErrorNoModes:           510122,
	ValidationErrorRegion:            510123,
	ValidationErrorSkillRange:        510124,
	ValidationErrorWaitTimes:         510125,
	ValidationErrorCleanupInterval:   510126,
	ValidationErrorStaleGrace:        510127,
}

// ValidationErrorCode returns a code for the error.
// It returns 20002 if the error is not registered in the map.
func ValidationErrorCode(err error) int {
	for known, code := range validationErrorCodeMap {
		if errors.Is(err, known) {
			return code
		}
	}
	return 20002
}
