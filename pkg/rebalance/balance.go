// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package rebalance splits a selected roster into teams with near equal skill sums.
package rebalance

import (
	"sort"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"

	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/combin"
)

// Result is a team assignment. Teams[i] holds the tickets of team i.
type Result struct {
	Teams [][]*models.Ticket
	Sums  []int
}

// Spread is the difference between the strongest and the weakest team.
func (r Result) Spread() int {
	return Spread(r.Sums)
}

// Spread returns max-min of the given sums.
func Spread(sums []int) int {
	if len(sums) == 0 {
		return 0
	}
	return pie.Max(sums) - pie.Min(sums)
}

/*
Balance assigns tickets to teamCount teams.

Step 1: sort players by descending skill and deal them in rounds of teamCount,
the strongest remaining player of a round goes to the currently weakest team.
Team sizes never differ by more than one.

Step 2: swap pairs between the strongest and the weakest team while a swap narrows the gap.

Step 3: for two teams and small rosters, search every split and keep it only when strictly better.

The spread never grows past the skill range of the roster when team sizes are equal.
*/
func Balance(rootScope *envelope.Scope, tickets []*models.Ticket, teamCount int) Result {
	if teamCount <= 1 || len(tickets) == 0 {
		team := append([]*models.Ticket(nil), tickets...)
		return Result{Teams: [][]*models.Ticket{team}, Sums: []int{sumOf(team)}}
	}

	scope := rootScope.NewChildScope("rebalance.Balance")
	defer scope.Finish()

	result := greedy(tickets, teamCount)
	logFields := logrus.Fields{
		"numPlayer":    len(tickets),
		"numTeam":      teamCount,
		"greedySpread": result.Spread(),
	}

	swaps := refineBySwap(&result, constants.SwapRefinementMaxLoop)
	logFields["swaps"] = swaps
	logFields["swapSpread"] = result.Spread()

	if teamCount == 2 && len(tickets) <= constants.ExactPartitionLimit && result.Spread() > 0 {
		if exact, ok := exactTwoTeams(tickets); ok && exact.Spread() < result.Spread() {
			result = exact
			logFields["exact"] = true
		}
	}

	logFields["spread"] = result.Spread()
	scope.Log.WithFields(logFields).Debug("rebalance done")
	return result
}

func sortBySkillDesc(tickets []*models.Ticket) []*models.Ticket {
	sorted := append([]*models.Ticket(nil), tickets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.SkillRating != b.SkillRating {
			return a.SkillRating > b.SkillRating
		}
		if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
			return a.EnqueuedAt.Before(b.EnqueuedAt)
		}
		return a.PlayerID < b.PlayerID
	})
	return sorted
}

func greedy(tickets []*models.Ticket, teamCount int) Result {
	result := Result{
		Teams: make([][]*models.Ticket, teamCount),
		Sums:  make([]int, teamCount),
	}
	for _, t := range sortBySkillDesc(tickets) {
		// only teams that have not received a player in the current round are eligible
		target := -1
		for i := range result.Teams {
			if target == -1 {
				target = i
				continue
			}
			if len(result.Teams[i]) < len(result.Teams[target]) ||
				(len(result.Teams[i]) == len(result.Teams[target]) && result.Sums[i] < result.Sums[target]) {
				target = i
			}
		}
		result.Teams[target] = append(result.Teams[target], t)
		result.Sums[target] += t.SkillRating
	}
	return result
}

// refineBySwap returns the number of swaps applied.
func refineBySwap(result *Result, maxLoop int) int {
	swaps := 0
	for loop := 0; loop < maxLoop; loop++ {
		maxSum, minSum := pie.Max(result.Sums), pie.Min(result.Sums)
		hi := pie.FindFirstUsing(result.Sums, func(s int) bool { return s == maxSum })
		lo := pie.FindFirstUsing(result.Sums, func(s int) bool { return s == minSum })
		gap := result.Sums[hi] - result.Sums[lo]
		if gap == 0 {
			return swaps
		}

		bestGap, bestA, bestB := gap, -1, -1
		for a, strong := range result.Teams[hi] {
			for b, weak := range result.Teams[lo] {
				delta := strong.SkillRating - weak.SkillRating
				if delta <= 0 {
					continue
				}
				if newGap := mathutil.Abs(gap - 2*delta); newGap < bestGap {
					bestGap, bestA, bestB = newGap, a, b
				}
			}
		}
		if bestA < 0 {
			return swaps
		}

		strong, weak := result.Teams[hi][bestA], result.Teams[lo][bestB]
		result.Teams[hi][bestA], result.Teams[lo][bestB] = weak, strong
		delta := strong.SkillRating - weak.SkillRating
		result.Sums[hi] -= delta
		result.Sums[lo] += delta
		swaps++
	}
	return swaps
}

// exactTwoTeams searches every split of the roster into sizes floor(n/2) and ceil(n/2).
func exactTwoTeams(tickets []*models.Ticket) (Result, bool) {
	sorted := sortBySkillDesc(tickets)
	n := len(sorted)
	if n < 2 {
		return Result{}, false
	}
	total := sumOf(sorted)

	var best []int
	bestSpread := -1
	for _, indexes := range combin.Combinations(n, n/2) {
		sum := 0
		for _, i := range indexes {
			sum += sorted[i].SkillRating
		}
		spread := mathutil.Abs(total - 2*sum)
		if bestSpread < 0 || spread < bestSpread {
			bestSpread = spread
			best = indexes
			if spread == 0 {
				break
			}
		}
	}

	inFirst := make(map[int]struct{}, len(best))
	for _, i := range best {
		inFirst[i] = struct{}{}
	}
	result := Result{Teams: make([][]*models.Ticket, 2), Sums: make([]int, 2)}
	for i, t := range sorted {
		// the searched subset is the smaller team, so an odd roster keeps the greedy layout
		team := 0
		if _, ok := inFirst[i]; ok {
			team = 1
		}
		result.Teams[team] = append(result.Teams[team], t)
		result.Sums[team] += t.SkillRating
	}
	return result, true
}

func sumOf(tickets []*models.Ticket) int {
	sum := 0
	for _, t := range tickets {
		sum += t.SkillRating
	}
	return sum
}
