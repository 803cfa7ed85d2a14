// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"sort"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/mathutil"

	validator "github.com/AccelByte/justice-input-validation-go"
	"github.com/go-openapi/swag"
	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// ModePolicy is the immutable per game mode matchmaking policy.
type ModePolicy struct {
	GameMode           string `json:"game_mode"            valid:"stringlength(1|32)"`
	MinPlayers         int    `json:"min_players"          valid:"range(0|1000)"`
	MaxPlayers         int    `json:"max_players"          valid:"range(0|1000)"`
	TeamSize           int    `json:"team_size"            valid:"range(0|1000)"`
	MatchTimeoutSecond int    `json:"match_timeout_second" valid:"range(0|86400)"`
	JoinTimeoutSecond  int    `json:"join_timeout_second"  valid:"range(0|86400)"`
	// Balanced defaults to true when the mode has more than one team.
	Balanced *bool `json:"balanced,omitempty"`
}

func (p ModePolicy) Validate() error {
	if p.GameMode == "" {
		return ValidationErrorEmptyGameMode
	}
	if _, err := validator.ValidateStruct(p); err != nil {
		return eris.Wrapf(err, "invalid policy for game mode %s", p.GameMode)
	}
	if p.MinPlayers < 1 {
		return eris.Wrapf(ValidationErrorZeroMinPlayers, "game mode %s", p.GameMode)
	}
	if p.MinPlayers > p.MaxPlayers {
		return eris.Wrapf(ValidationErrorPlayerBounds, "game mode %s", p.GameMode)
	}
	if p.TeamSize < 1 || p.TeamSize > p.MaxPlayers {
		return eris.Wrapf(ValidationErrorTeamSize, "game mode %s", p.GameMode)
	}
	if p.MatchTimeoutSecond <= 0 || p.JoinTimeoutSecond <= 0 {
		return eris.Wrapf(ValidationErrorTimeout, "game mode %s", p.GameMode)
	}
	if p.IsBalanced() && (p.teamCount() < 2 || p.MinPlayers < p.teamCount()) {
		return eris.Wrapf(ValidationErrorTeamCount, "game mode %s", p.GameMode)
	}
	return nil
}

// IsBalanced reports whether the roster is split into skill balanced teams.
func (p ModePolicy) IsBalanced() bool {
	if p.Balanced == nil {
		return p.teamCount() > 1
	}
	return swag.BoolValue(p.Balanced)
}

// TeamCount is the number of teams a formed roster is split into.
// Unbalanced modes always use a single team.
func (p ModePolicy) TeamCount() int {
	if !p.IsBalanced() {
		return 1
	}
	return p.teamCount()
}

func (p ModePolicy) teamCount() int {
	if p.TeamSize <= 0 {
		return 1
	}
	return max(mathutil.CeilDiv(p.MaxPlayers, p.TeamSize), 1)
}

func (p ModePolicy) MatchTimeout() time.Duration {
	return time.Duration(p.MatchTimeoutSecond) * time.Second
}

func (p ModePolicy) JoinTimeout() time.Duration {
	return time.Duration(p.JoinTimeoutSecond) * time.Second
}

// Region maps a logical region name to the backend region code.
type Region struct {
	Name string `json:"name" valid:"stringlength(1|64)"`
	Code string `json:"code" valid:"stringlength(1|64)"`
}

// RegionMap is ordered; the order is the deterministic tie-break order.
type RegionMap []Region

func (m RegionMap) Validate() error {
	seen := make(map[string]struct{}, len(m))
	for _, r := range m {
		if r.Name == "" || r.Code == "" {
			return ValidationErrorRegion
		}
		if _, err := validator.ValidateStruct(r); err != nil {
			return eris.Wrapf(err, "invalid region %s", r.Name)
		}
		if _, ok := seen[r.Name]; ok {
			return eris.Wrapf(ValidationErrorRegion, "region %s", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// PolicyTable holds the policy of every configured game mode.
type PolicyTable map[string]ModePolicy

// GameModes returns the configured modes in a stable order.
func (t PolicyTable) GameModes() []string {
	modes := make([]string, 0, len(t))
	for mode := range t {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// Get returns the policy for a mode.
func (t PolicyTable) Get(gameMode string) (ModePolicy, bool) {
	p, ok := t[gameMode]
	return p, ok
}

// PolicyDocument is the static configuration loaded once at startup.
type PolicyDocument struct {
	Modes   []ModePolicy `json:"modes"`
	Regions RegionMap    `json:"regions"`
}

// PolicyDocumentFromJSON decodes and validates a policy document.
func PolicyDocumentFromJSON(data []byte) (PolicyDocument, error) {
	var doc PolicyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return PolicyDocument{}, eris.Wrap(err, "failed to decode policy document")
	}
	if err := doc.Validate(); err != nil {
		return PolicyDocument{}, err
	}
	return doc, nil
}

func (d PolicyDocument) Validate() error {
	if len(d.Modes) == 0 {
		return ValidationErrorNoModes
	}
	seen := make(map[string]struct{}, len(d.Modes))
	for _, mode := range d.Modes {
		if err := mode.Validate(); err != nil {
			return err
		}
		if _, ok := seen[mode.GameMode]; ok {
			return eris.Wrapf(ValidationErrorDuplicateGameMode, "game mode %s", mode.GameMode)
		}
		seen[mode.GameMode] = struct{}{}
	}
	if len(d.Regions) == 0 {
		return ErrNoRegionAvailable
	}
	return d.Regions.Validate()
}

// Table indexes the document modes by name.
func (d PolicyDocument) Table() PolicyTable {
	table := make(PolicyTable, len(d.Modes))
	for _, mode := range d.Modes {
		table[mode.GameMode] = mode
	}
	return table
}

// DefaultPolicyDocument is used when no policy file is configured.
func DefaultPolicyDocument() PolicyDocument {
	return PolicyDocument{
		Modes: []ModePolicy{
			{GameMode: GameModeTDM, MinPlayers: 8, MaxPlayers: 16, TeamSize: 8, MatchTimeoutSecond: 60, JoinTimeoutSecond: 30, Balanced: swag.Bool(true)},
			{GameMode: GameModeFFA, MinPlayers: 6, MaxPlayers: 12, TeamSize: 1, MatchTimeoutSecond: 45, JoinTimeoutSecond: 30, Balanced: swag.Bool(false)},
			{GameMode: GameModeCTF, MinPlayers: 8, MaxPlayers: 16, TeamSize: 8, MatchTimeoutSecond: 60, JoinTimeoutSecond: 30, Balanced: swag.Bool(true)},
			{GameMode: GameModeDOM, MinPlayers: 6, MaxPlayers: 12, TeamSize: 6, MatchTimeoutSecond: 60, JoinTimeoutSecond: 30, Balanced: swag.Bool(true)},
		},
		Regions: RegionMap{
			{Name: "us-east", Code: "use1"},
			{Name: "us-west", Code: "usw2"},
			{Name: "eu-west", Code: "euw1"},
			{Name: "eu-central", Code: "euc1"},
			{Name: "asia-east", Code: "ape1"},
		},
	}
}

// Game modes shipped with the default policy document.
const (
	GameModeTDM = "TDM"
	GameModeFFA = "FFA"
	GameModeCTF = "CTF"
	GameModeDOM = "DOM"
)

// Tuning holds the process wide matchmaking knobs.
type Tuning struct {
	SkillRange          int
	SkillRangeExpansion int
	ExpansionInterval   time.Duration
	MaxWaitTime         time.Duration
	CleanupStaleQueues  time.Duration
	CleanupStaleMatches time.Duration
	// StaleMatchGrace is the multiple of a mode's join timeout after which a non-terminal match is stuck.
	StaleMatchGrace int
	// MatchRetention is how long terminal matches are kept so late reports still resolve.
	MatchRetention  time.Duration
	RequeueUnjoined bool
}

// Validate rejects knobs the periodic tasks cannot run with.
func (t Tuning) Validate() error {
	if t.SkillRange < 0 || t.SkillRangeExpansion < 0 {
		return ValidationErrorSkillRange
	}
	if t.ExpansionInterval <= 0 || t.MaxWaitTime <= 0 {
		return ValidationErrorWaitTimes
	}
	if t.CleanupStaleQueues <= 0 || t.CleanupStaleMatches <= 0 {
		return ValidationErrorCleanupInterval
	}
	if t.StaleMatchGrace < 1 || t.MatchRetention < 0 {
		return ValidationErrorStaleGrace
	}
	return nil
}

// Tolerance returns the accepted skill distance after the given number of expansions.
func (t Tuning) Tolerance(expansions int) int {
	return t.SkillRange + expansions*t.SkillRangeExpansion
}

// DefaultTuning mirrors the env defaults of the config package.
func DefaultTuning() Tuning {
	return Tuning{
		SkillRange:          100,
		SkillRangeExpansion: 50,
		ExpansionInterval:   10 * time.Second,
		MaxWaitTime:         180 * time.Second,
		CleanupStaleQueues:  15 * time.Second,
		CleanupStaleMatches: 30 * time.Second,
		StaleMatchGrace:     3,
		MatchRetention:      5 * time.Minute,
		RequeueUnjoined:     true,
	}
}
