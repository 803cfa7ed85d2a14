// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	ticketsInQueue   prometheus.GaugeVec
	matchesFormed    prometheus.CounterVec
	rosterSize       prometheus.HistogramVec
	tickElapsedTime  prometheus.HistogramVec
	unmatchedReasons prometheus.CounterVec
	timeouts         prometheus.CounterVec
	waitTime         prometheus.HistogramVec
	matchTransitions prometheus.CounterVec
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)
	modeLabel := []string{"game_mode"}

	ticketsInQueue := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arena_mm_tickets_in_queue",
			Help: "Number of waiting tickets per game mode",
		}, modeLabel)

	matchesFormed := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_mm_matches_formed_total",
			Help: "Number of matches formed per game mode and region",
		}, []string{"game_mode", "region"})

	rosterSize := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_mm_roster_size",
			Help:    "A histogram of formed roster sizes",
			Buckets: prometheus.LinearBuckets(2, 2, 16),
		}, modeLabel)

	//nolint:promlinter
	tickElapsedTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_mm_tick_elapsed_time_ms",
			Help:    "A histogram of periodic task elapsed time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"game_mode", "function"})

	unmatchedReasons := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_mm_unmatched_reasons",
			Help: "A counter for reasons a window did not form a match",
		}, []string{"game_mode", "reason"})

	timeouts := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_mm_timeouts_total",
			Help: "Matchmaking and join timeouts per game mode",
		}, []string{"game_mode", "kind"})

	waitTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_mm_ticket_wait_time_seconds",
			Help:    "A histogram of time tickets waited before being placed in a match",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		}, modeLabel)

	matchTransitions := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_mm_match_transitions_total",
			Help: "Match state transitions per game mode",
		}, []string{"game_mode", "state"})

	return prometheusMetrics{
		ticketsInQueue:   *ticketsInQueue,
		matchesFormed:    *matchesFormed,
		rosterSize:       *rosterSize,
		tickElapsedTime:  *tickElapsedTime,
		unmatchedReasons: *unmatchedReasons,
		timeouts:         *timeouts,
		waitTime:         *waitTime,
		matchTransitions: *matchTransitions,
	}
}

func (metrics prometheusMetrics) SetTicketsInQueue(gameMode string, count int) {
	metrics.ticketsInQueue.With(prometheus.Labels{"game_mode": gameMode}).Set(float64(count))
}

func (metrics prometheusMetrics) AddMatchFormed(gameMode string, region string, players int) {
	metrics.matchesFormed.With(prometheus.Labels{"game_mode": gameMode, "region": region}).Inc()
	metrics.rosterSize.With(prometheus.Labels{"game_mode": gameMode}).Observe(float64(players))
}

func (metrics prometheusMetrics) AddTickElapsedTimeMs(gameMode string, function string, elapsedTime time.Duration) {
	metrics.tickElapsedTime.With(prometheus.Labels{"game_mode": gameMode, "function": function}).Observe(float64(elapsedTime.Milliseconds()))
}

func (metrics prometheusMetrics) AddUnmatchedReason(gameMode string, reason string) {
	metrics.unmatchedReasons.With(prometheus.Labels{"game_mode": gameMode, "reason": reason}).Add(float64(1))
}

func (metrics prometheusMetrics) AddTimeout(gameMode string, kind string) {
	metrics.timeouts.With(prometheus.Labels{"game_mode": gameMode, "kind": kind}).Inc()
}

func (metrics prometheusMetrics) ObserveWaitTime(gameMode string, waited time.Duration) {
	metrics.waitTime.With(prometheus.Labels{"game_mode": gameMode}).Observe(waited.Seconds())
}

func (metrics prometheusMetrics) AddMatchTransition(gameMode string, state string) {
	metrics.matchTransitions.With(prometheus.Labels{"game_mode": gameMode, "state": state}).Inc()
}
