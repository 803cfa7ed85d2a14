// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"gopkg.in/typ.v4/sync2"
)

// Pool reusable objects to reduce garbage collector
type Pool struct {
	Tickets *sync2.Pool[[]*Ticket]
}

func NewPool() *Pool {
	return &Pool{
		Tickets: &sync2.Pool[[]*Ticket]{
			New: func() []*Ticket {
				return make([]*Ticket, 0, 16)
			},
		},
	}
}

// GetTickets returns an empty reusable ticket buffer.
func (p *Pool) GetTickets() []*Ticket {
	return p.Tickets.Get()[:0]
}

// PutTickets hands a buffer back; the caller must not keep references to it.
func (p *Pool) PutTickets(tickets []*Ticket) {
	clear(tickets)
	p.Tickets.Put(tickets[:0])
}
