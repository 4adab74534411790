package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
)

// KeyValue is the durable storage the drafts live in
type KeyValue interface {
	Get(c context.Context, key string) ([]byte, bool, error)
	Put(c context.Context, key string, value []byte) error
	Delete(c context.Context, key string) error
}

type Record struct {
	Key       string
	Value     []byte `datastore:",noindex"`
	UpdatedAt time.Time
}

type storeKeyValue struct {
	store mystore.Store[Record]
	nower mytime.Nower
}

func NewStoreKeyValue(store mystore.Store[Record], nower mytime.Nower) KeyValue {
	return &storeKeyValue{
		store: store,
		nower: nower,
	}
}

func (kv *storeKeyValue) Get(c context.Context, key string) ([]byte, bool, error) {
	record, found, err := kv.store.Get(c, key)
	if err != nil {
		return nil, false, fmt.Errorf("error reading %s: %s", key, err)
	}
	if !found {
		return nil, false, nil
	}
	return record.Value, true, nil
}

func (kv *storeKeyValue) Put(c context.Context, key string, value []byte) error {
	return kv.store.Put(c, key, Record{
		Key:       key,
		Value:     value,
		UpdatedAt: kv.nower.Now(),
	})
}

func (kv *storeKeyValue) Delete(c context.Context, key string) error {
	return kv.store.Delete(c, key)
}

type redisKeyValue struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKeyValue expires keys after ttl; zero keeps them forever
func NewRedisKeyValue(client *redis.Client, ttl time.Duration) KeyValue {
	return &redisKeyValue{
		client: client,
		ttl:    ttl,
	}
}

func (kv *redisKeyValue) Get(c context.Context, key string) ([]byte, bool, error) {
	value, err := kv.client.Get(c, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error reading %s from redis: %s", key, err)
	}
	return value, true, nil
}

func (kv *redisKeyValue) Put(c context.Context, key string, value []byte) error {
	err := kv.client.Set(c, key, value, kv.ttl).Err()
	if err != nil {
		return fmt.Errorf("error writing %s to redis: %s", key, err)
	}
	return nil
}

func (kv *redisKeyValue) Delete(c context.Context, key string) error {
	err := kv.client.Del(c, key).Err()
	if err != nil {
		return fmt.Errorf("error deleting %s from redis: %s", key, err)
	}
	return nil
}
