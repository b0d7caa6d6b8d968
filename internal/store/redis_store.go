package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "devbytes"

// RedisItemsKey returns the key holding the full committed set.
func RedisItemsKey(prefix string) string {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return prefix + ":items"
}

// RedisEventsChannel returns the pub/sub channel announcing commits.
func RedisEventsChannel(prefix string) string {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return prefix + ":events"
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type redisEnvelope struct {
	Writer string             `json:"writer"`
	Seq    uint64             `json:"seq"`
	Items  []model.StoredItem `json:"items"`
}

// RedisStore keeps the whole set under one key so SET is the atomic replace.
// The SET and a PUBLISH on the events channel run in one MULTI/EXEC, letting several
// processes share the cache and observe each other's commits.
type RedisStore struct {
	client   *redis.Client
	pubsub   *redis.PubSub
	key      string
	channel  string
	instance string

	mu     sync.Mutex
	seq    uint64
	hub    *broadcaster
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisStore connects, loads the committed set and subscribes to commit events.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &model.StorageError{Op: "redis ping", Err: err}
	}

	s := &RedisStore{
		client:   client,
		key:      RedisItemsKey(opts.Prefix),
		channel:  RedisEventsChannel(opts.Prefix),
		instance: uuid.NewString(),
	}

	items, err := s.load(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.hub = newBroadcaster(items)

	s.pubsub = client.Subscribe(ctx, s.channel)
	if _, err := s.pubsub.Receive(ctx); err != nil {
		s.pubsub.Close()
		client.Close()
		return nil, &model.StorageError{Op: "redis subscribe", Err: err}
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.listen(listenCtx)

	logger.WithComponent("redis-store").Infof("connected to redis, key %s with %d items", s.key, len(items))
	return s, nil
}

func (s *RedisStore) load(ctx context.Context) ([]model.StoredItem, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.StoredItem{}, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "redis get", Err: err}
	}

	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &model.StorageError{Op: "redis decode", Err: err}
	}
	items, err := normalize(env.Items)
	if err != nil {
		return nil, &model.StorageError{Op: "redis load", Err: err}
	}
	return items, nil
}

// ReplaceAll commits the set and the change notice in one transaction.
func (s *RedisStore) ReplaceAll(ctx context.Context, items []model.StoredItem) error {
	next, err := normalize(items)
	if err != nil {
		return &model.StorageError{Op: "redis replace", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &model.StorageError{Op: "redis replace", Err: ErrClosed}
	}

	seq := s.seq + 1
	data, err := json.Marshal(redisEnvelope{Writer: s.instance, Seq: seq, Items: next})
	if err != nil {
		return &model.StorageError{Op: "redis encode", Err: err}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, data, 0)
		pipe.Publish(ctx, s.channel, fmt.Sprintf("%s:%d", s.instance, seq))
		return nil
	})
	if err != nil {
		return &model.StorageError{Op: "redis replace", Err: err}
	}
	s.seq = seq

	s.hub.publish(next)
	logger.WithComponent("redis-store").Debugf("committed %d items (seq %d)", len(next), seq)
	return nil
}

// listen reloads the key when another instance announces a commit.
func (s *RedisStore) listen(ctx context.Context) {
	defer close(s.done)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if strings.HasPrefix(msg.Payload, s.instance+":") {
				continue
			}
			s.reload(ctx)
		}
	}
}

func (s *RedisStore) reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	items, err := s.load(ctx)
	if err != nil {
		logger.WithComponent("redis-store").Warnf("reload after remote commit failed: %v", err)
		return
	}
	if sameItems(items, s.hub.snapshot()) {
		return
	}
	s.hub.publish(items)
	logger.WithComponent("redis-store").Infof("reloaded %d items committed by another instance", len(items))
}

func (s *RedisStore) Observe(ctx context.Context) <-chan []model.StoredItem {
	return s.hub.subscribe(ctx)
}

func (s *RedisStore) Snapshot() []model.StoredItem {
	return s.hub.snapshot()
}

func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.hub.close()
	s.mu.Unlock()

	s.cancel()
	err := s.pubsub.Close()
	<-s.done
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}
