// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
)

// Epoch is the start time of every fake clock used in tests.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// NewTickets creates one ticket per rating, enqueued one millisecond apart starting at enqueuedAt.
func NewTickets(prefix, gameMode, region string, enqueuedAt time.Time, ratings ...int) []*models.Ticket {
	tickets := make([]*models.Ticket, 0, len(ratings))
	for i, rating := range ratings {
		playerID := fmt.Sprintf("%s-%02d", prefix, i)
		tickets = append(tickets, models.NewTicket(playerID, gameMode, rating, region, enqueuedAt.Add(time.Duration(i)*time.Millisecond), 0))
	}
	return tickets
}

// Repeat returns n copies of rating.
func Repeat(rating, n int) []int {
	ratings := make([]int, n)
	for i := range ratings {
		ratings[i] = rating
	}
	return ratings
}
