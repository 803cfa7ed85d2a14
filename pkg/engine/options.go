// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/clock"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/notify"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	clock                  clock.Clock
	metrics                metrics.MatchmakingMetrics
	notifier               notify.Notifier
	tickInterval           time.Duration
	lifecycleCheckInterval time.Duration
}

func defaultOptions() options {
	return options{
		clock:                  clock.Real(),
		metrics:                metrics.NewMetrics(prometheus.NewRegistry()),
		notifier:               notify.LogNotifier{},
		tickInterval:           time.Second,
		lifecycleCheckInterval: time.Second,
	}
}

// Option customizes an Engine.
type Option func(*options)

func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func WithMetrics(m metrics.MatchmakingMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithNotifier replaces the default log notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		o.tickInterval = d
	}
}

func WithLifecycleCheckInterval(d time.Duration) Option {
	return func(o *options) {
		o.lifecycleCheckInterval = d
	}
}
