// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package rebalance

import (
	"math/rand"
	"testing"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/testsetup"

	"github.com/elliotchance/pie/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func ratingsOf(tickets []*models.Ticket) []int {
	return pie.Map(tickets, func(t *models.Ticket) int { return t.SkillRating })
}

func TestBalance_EqualGroups(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	ratings := append(testsetup.Repeat(1000, 4), testsetup.Repeat(1200, 4)...)
	tickets := testsetup.NewTickets("p", models.GameModeTDM, "us-east", testsetup.Epoch, ratings...)

	result := Balance(g.TestScope, tickets, 2)

	g.Expect(result.Sums).To(Equal([]int{4400, 4400}))
	g.Expect(result.Teams[0]).To(HaveLen(4))
	g.Expect(result.Teams[1]).To(HaveLen(4))
}

func TestBalance_SingleTeam(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	tickets := testsetup.NewTickets("p", models.GameModeFFA, "us-east", testsetup.Epoch, 900, 1000, 1100)

	result := Balance(g.TestScope, tickets, 1)

	g.Expect(result.Teams).To(HaveLen(1))
	g.Expect(result.Teams[0]).To(HaveLen(3))
	g.Expect(result.Spread()).To(Equal(0))
}

func TestBalance_TeamSizesDifferByAtMostOne(t *testing.T) {
	tests := []struct {
		name      string
		players   int
		teamCount int
	}{
		{name: "odd_two_teams", players: 7, teamCount: 2},
		{name: "three_teams", players: 10, teamCount: 3},
		{name: "four_teams_full", players: 16, teamCount: 4},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			g := testsetup.ParallelWithGomega(t)
			rnd := rand.New(rand.NewSource(int64(tt.players)))
			ratings := make([]int, tt.players)
			for i := range ratings {
				ratings[i] = 800 + rnd.Intn(800)
			}
			tickets := testsetup.NewTickets("p", models.GameModeDOM, "us-east", testsetup.Epoch, ratings...)

			result := Balance(g.TestScope, tickets, tt.teamCount)

			sizes := pie.Map(result.Teams, func(team []*models.Ticket) int { return len(team) })
			g.Expect(pie.Max(sizes) - pie.Min(sizes)).To(BeNumerically("<=", 1))
			g.Expect(pie.Sum(sizes)).To(Equal(tt.players))
		})
	}
}

// With equal team sizes the spread never exceeds the skill range of the roster.
func TestBalance_SpreadBoundedBySkillRange(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		teamCount := 2 + rnd.Intn(3)
		players := teamCount * (1 + rnd.Intn(5))
		ratings := make([]int, players)
		for i := range ratings {
			ratings[i] = rnd.Intn(3000)
		}
		tickets := testsetup.NewTickets("p", models.GameModeTDM, "us-east", testsetup.Epoch, ratings...)

		result := Balance(g.TestScope, tickets, teamCount)

		g.Expect(result.Spread()).To(BeNumerically("<=", pie.Max(ratings)-pie.Min(ratings)), "ratings %v", ratings)
		for i, team := range result.Teams {
			g.Expect(pie.Sum(ratingsOf(team))).To(Equal(result.Sums[i]))
		}
	}
}

func TestBalance_ExactSearchBeatsGreedy(t *testing.T) {
	// splits evenly into 10+8+4 and 9+7+6
	ratings := []int{10, 9, 8, 7, 6, 4}
	tickets := testsetup.NewTickets("p", models.GameModeTDM, "us-east", testsetup.Epoch, ratings...)

	greedyResult := greedy(tickets, 2)
	refineBySwap(&greedyResult, 64)
	exact, ok := exactTwoTeams(tickets)

	assert.True(t, ok)
	assert.Equal(t, 0, exact.Spread())
	assert.LessOrEqual(t, exact.Spread(), greedyResult.Spread())

	result := Balance(testsetup.NewTestScope(), tickets, 2)
	assert.Equal(t, 0, result.Spread())
}
