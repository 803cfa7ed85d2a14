// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/rotisserie/eris"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"arena-matchmaker" envDocs:"service name reported in traces and logs"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"             envDocs:"logrus level"`
	LogJSON     bool   `env:"LOG_JSON"     envDefault:"true"             envDocs:"log in JSON format"`

	GRPCPort    int    `env:"GRPC_PORT"    envDefault:"6565" envDocs:"port of the matchmaking gRPC service"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080" envDocs:"port serving /metrics"`
	ZipkinURL   string `env:"ZIPKIN_URL"   envDefault:""     envDocs:"zipkin collector endpoint, tracing export is disabled when empty"`

	RedisAddr          string `env:"REDIS_ADDR"           envDefault:""            envDocs:"redis address for notification fan-out, disabled when empty"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"matchmaking" envDocs:"prefix of the redis pub/sub channels"`

	PolicyFilePath string `env:"POLICY_FILE_PATH" envDefault:"" envDocs:"JSON policy document with game modes and regions (empty means use default from code)"`

	TickIntervalMs            int  `env:"TICK_INTERVAL_MS"                envDefault:"1000" envDocs:"match builder tick per game mode"`
	LifecycleCheckIntervalMs  int  `env:"LIFECYCLE_CHECK_INTERVAL_MS"     envDefault:"1000" envDocs:"join deadline check interval"`
	SkillRange                int  `env:"SKILL_RANGE"                     envDefault:"100"  envDocs:"initial accepted skill distance from the anchor ticket"`
	SkillRangeExpansion       int  `env:"SKILL_RANGE_EXPANSION"           envDefault:"50"   envDocs:"skill distance added on each tolerance expansion"`
	SkillExpansionIntervalSec int  `env:"SKILL_EXPANSION_INTERVAL_SECOND" envDefault:"10"   envDocs:"ticket age between two tolerance expansions"`
	MaxWaitTimeSecond         int  `env:"MAX_WAIT_TIME_SECOND"            envDefault:"180"  envDocs:"tickets older than this are evicted with a matchmaking timeout"`
	CleanupStaleQueuesSecond  int  `env:"CLEANUP_STALE_QUEUES_SECOND"     envDefault:"15"   envDocs:"interval of the stale ticket sweep"`
	CleanupStaleMatchesSecond int  `env:"CLEANUP_STALE_MATCHES_SECOND"    envDefault:"30"   envDocs:"interval of the stale match sweep"`
	StaleMatchGraceMultiplier int  `env:"STALE_MATCH_GRACE_MULTIPLIER"    envDefault:"3"    envDocs:"multiple of join timeout after which a non-terminal match is forced to expire"`
	MatchRetentionSecond      int  `env:"MATCH_RETENTION_SECOND"          envDefault:"300"  envDocs:"how long terminal matches are kept for late reports"`
	RequeueUnjoined           bool `env:"REQUEUE_UNJOINED"                envDefault:"true" envDocs:"requeue players that never joined an expired match"`
}

// Load parses the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, eris.Wrap(err, "failed to parse matchmaker config")
	}
	return cfg, nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *Config) LifecycleCheckInterval() time.Duration {
	return time.Duration(c.LifecycleCheckIntervalMs) * time.Millisecond
}

// Tuning returns the immutable matchmaking knobs.
func (c *Config) Tuning() models.Tuning {
	return models.Tuning{
		SkillRange:          c.SkillRange,
		SkillRangeExpansion: c.SkillRangeExpansion,
		ExpansionInterval:   time.Duration(c.SkillExpansionIntervalSec) * time.Second,
		MaxWaitTime:         time.Duration(c.MaxWaitTimeSecond) * time.Second,
		CleanupStaleQueues:  time.Duration(c.CleanupStaleQueuesSecond) * time.Second,
		CleanupStaleMatches: time.Duration(c.CleanupStaleMatchesSecond) * time.Second,
		StaleMatchGrace:     c.StaleMatchGraceMultiplier,
		MatchRetention:      time.Duration(c.MatchRetentionSecond) * time.Second,
		RequeueUnjoined:     c.RequeueUnjoined,
	}
}

// Validate rejects knob values that would stall or spin the periodic tasks.
func (c *Config) Validate() error {
	if c.TickIntervalMs <= 0 || c.LifecycleCheckIntervalMs <= 0 {
		return eris.New("tick and lifecycle check intervals must be greater than 0")
	}
	if err := c.Tuning().Validate(); err != nil {
		return eris.Wrap(err, "invalid matchmaking tuning")
	}
	return nil
}

// LoadPolicyDocument reads the policy file, or returns the built-in document when no path is set.
func (c *Config) LoadPolicyDocument() (models.PolicyDocument, error) {
	if c.PolicyFilePath == "" {
		return models.DefaultPolicyDocument(), nil
	}
	data, err := os.ReadFile(c.PolicyFilePath)
	if err != nil {
		return models.PolicyDocument{}, eris.Wrapf(err, "failed to read policy file %s", c.PolicyFilePath)
	}
	return models.PolicyDocumentFromJSON(data)
}
