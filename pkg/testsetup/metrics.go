// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/metrics"
)

type stubMetricsCollection struct{}

func (s stubMetricsCollection) SetTicketsInQueue(gameMode string, count int) {}

func (s stubMetricsCollection) AddMatchFormed(gameMode string, region string, players int) {}

func (s stubMetricsCollection) AddTickElapsedTimeMs(gameMode string, function string, elapsedTime time.Duration) {
}

func (s stubMetricsCollection) AddUnmatchedReason(gameMode string, reason string) {}

func (s stubMetricsCollection) AddTimeout(gameMode string, kind string) {}

func (s stubMetricsCollection) ObserveWaitTime(gameMode string, waited time.Duration) {}

func (s stubMetricsCollection) AddMatchTransition(gameMode string, state string) {}

func NewMetrics() metrics.MatchmakingMetrics {
	return stubMetricsCollection{}
}

// CountingMetrics records unmatched reasons and timeouts so tests can assert on them.
type CountingMetrics struct {
	stubMetricsCollection

	mu        sync.Mutex
	Unmatched map[string]int
	Timeouts  map[string]int
	Formed    int
}

func NewCountingMetrics() *CountingMetrics {
	return &CountingMetrics{
		Unmatched: map[string]int{},
		Timeouts:  map[string]int{},
	}
}

func (c *CountingMetrics) AddUnmatchedReason(gameMode string, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Unmatched[reason]++
}

func (c *CountingMetrics) AddTimeout(gameMode string, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Timeouts[kind]++
}

func (c *CountingMetrics) AddMatchFormed(gameMode string, region string, players int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Formed++
}

func (c *CountingMetrics) UnmatchedCount(reason string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Unmatched[reason]
}

func (c *CountingMetrics) TimeoutCount(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Timeouts[kind]
}
