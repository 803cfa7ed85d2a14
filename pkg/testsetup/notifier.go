// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sync"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/notify"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/utils"
)

// RecordingNotifier keeps every event in memory.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (r *RecordingNotifier) Notify(scope *envelope.Scope, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *RecordingNotifier) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

// OfKind returns the recorded events of one kind.
func (r *RecordingNotifier) OfKind(kind notify.Kind) []notify.Event {
	var filtered []notify.Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// ForPlayer returns the recorded events addressed to a player.
func (r *RecordingNotifier) ForPlayer(playerID string) []notify.Event {
	var filtered []notify.Event
	for _, e := range r.Events() {
		if utils.Contains(e.PlayerIDs, playerID) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
