package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix     = "qbank:extraction:status:"
	channelPrefix = "qbank:extraction:"
	maxTxRetries  = 10
)

// RedisStore keeps one JSON value per document and publishes terminal snapshots on
// qbank:extraction:<id> so a UI layer can push completion without polling.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func statusKey(id uint) string { return fmt.Sprintf("%s%d", keyPrefix, id) }

// Channel is the pub/sub channel carrying terminal snapshots of a document.
func Channel(id uint) string { return fmt.Sprintf("%s%d", channelPrefix, id) }

func (r *RedisStore) Get(ctx context.Context, documentID uint) (Snapshot, bool, error) {
	data, err := r.client.Get(ctx, statusKey(documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode status %d: %w", documentID, err)
	}
	return s, true, nil
}

func (r *RedisStore) Set(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, statusKey(s.DocumentID), data, r.ttl).Err(); err != nil {
		return err
	}
	return r.publish(ctx, s, data)
}

// Update retries the WATCH/MULTI transaction when another writer touched the key.
func (r *RedisStore) Update(ctx context.Context, documentID uint, fn func(*Snapshot)) (Snapshot, error) {
	key := statusKey(documentID)
	for i := 0; i < maxTxRetries; i++ {
		var (
			s    Snapshot
			data []byte
		)
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			s = Snapshot{DocumentID: documentID}
			raw, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if err := json.Unmarshal(raw, &s); err != nil {
					return fmt.Errorf("decode status %d: %w", documentID, err)
				}
			}

			fn(&s)
			s.DocumentID = documentID
			if data, err = json.Marshal(s); err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, r.ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Snapshot{}, err
		}
		return s, r.publish(ctx, s, data)
	}
	return Snapshot{}, fmt.Errorf("update status %d: too much contention", documentID)
}

func (r *RedisStore) Delete(ctx context.Context, documentID uint) error {
	return r.client.Del(ctx, statusKey(documentID)).Err()
}

// Subscribe listens for terminal snapshots of documentID.
func (r *RedisStore) Subscribe(ctx context.Context, documentID uint) *redis.PubSub {
	return r.client.Subscribe(ctx, Channel(documentID))
}

func (r *RedisStore) publish(ctx context.Context, s Snapshot, data []byte) error {
	if !s.Terminal() {
		return nil
	}
	return r.client.Publish(ctx, Channel(s.DocumentID), data).Err()
}
