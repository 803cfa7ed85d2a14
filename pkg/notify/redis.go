// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package notify

import (
	"fmt"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/envelope"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisNotifier publishes each event on the shared events channel and on the channel of every
// addressed player, so game backends can subscribe per player.
type RedisNotifier struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNotifier(client redis.UniversalClient, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

func (r *RedisNotifier) EventsChannel() string {
	return fmt.Sprintf("%s:events", r.prefix)
}

func (r *RedisNotifier) PlayerChannel(playerID string) string {
	return fmt.Sprintf("%s:player:%s", r.prefix, playerID)
}

func (r *RedisNotifier) Notify(scope *envelope.Scope, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "failed to encode notification")
	}

	pipe := r.client.Pipeline()
	pipe.Publish(scope.Ctx, r.EventsChannel(), payload)
	for _, playerID := range event.PlayerIDs {
		pipe.Publish(scope.Ctx, r.PlayerChannel(playerID), payload)
	}
	if _, err := pipe.Exec(scope.Ctx); err != nil {
		return eris.Wrapf(err, "failed to publish %s notification", event.Kind)
	}
	return nil
}
