package queue

import (
	"context"

	"github.com/redis/rueidis"
)

// RedisDriftLedger keeps the ledger in a redis set so that a separate
// reconcile process can see what the API recorded.
type RedisDriftLedger struct {
	client rueidis.Client
	key    string
}

func NewRedisDriftLedger(client rueidis.Client, key string) *RedisDriftLedger {
	return &RedisDriftLedger{
		client: client,
		key:    key,
	}
}

func (r *RedisDriftLedger) Record(ctx context.Context, userID string) error {
	cmd := r.client.B().Sadd().Key(r.key).Member(userID).Build()
	return r.client.Do(ctx, cmd).Error()
}

func (r *RedisDriftLedger) Drain(ctx context.Context, max int) ([]string, error) {
	cmd := r.client.B().Spop().Key(r.key).Count(int64(max)).Build()
	ids, err := r.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

func (r *RedisDriftLedger) Size(ctx context.Context) (int64, error) {
	cmd := r.client.B().Scard().Key(r.key).Build()
	return r.client.Do(ctx, cmd).AsInt64()
}
