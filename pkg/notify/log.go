// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package notify

import (
	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes every event to the scope logger.
type LogNotifier struct{}

func (LogNotifier) Notify(scope *envelope.Scope, event Event) error {
	entry := scope.Log.WithFields(logrus.Fields{
		"kind":      event.Kind,
		"gameMode":  event.GameMode,
		"playerIDs": event.PlayerIDs,
	})
	if event.MatchID != "" {
		entry = entry.WithField("matchID", event.MatchID)
	}
	if event.Reason != "" {
		entry = entry.WithField("reason", event.Reason)
	}
	entry.Info("notification")
	return nil
}
