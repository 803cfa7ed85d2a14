// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type MatchmakingMetrics interface {
	SetTicketsInQueue(gameMode string, count int)
	AddMatchFormed(gameMode string, region string, players int)
	AddTickElapsedTimeMs(gameMode string, function string, elapsedTime time.Duration)
	AddUnmatchedReason(gameMode string, reason string)
	AddTimeout(gameMode string, kind string)
	ObserveWaitTime(gameMode string, waited time.Duration)
	AddMatchTransition(gameMode string, state string)
}

func NewMetrics(registry *prometheus.Registry) MatchmakingMetrics {
	return setupPrometheusMetrics(registry)
}
