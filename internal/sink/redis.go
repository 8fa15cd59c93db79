package sink

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"nmea-ng/internal/nmea"
)

type RedisConfig struct {
	// Addr is host:port or a redis:// URL.
	Addr          string
	ChannelPrefix string
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes each sentence on the pub/sub channel <prefix>:<tag>.
type Redis struct {
	client  *redis.Client
	pub     redisPublisher
	prefix  string
	timeout time.Duration
}

func DialRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opt := &redis.Options{Addr: cfg.Addr}
	if strings.Contains(cfg.Addr, "://") {
		var err error
		opt, err = redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opt.Addr, err)
	}
	log.Printf("redis connected addr=%s", opt.Addr)

	r := newRedis(client, cfg)
	r.client = client
	return r, nil
}

func newRedis(pub redisPublisher, cfg RedisConfig) *Redis {
	return &Redis{pub: pub, prefix: cfg.ChannelPrefix, timeout: publishTimeout}
}

func (r *Redis) Channel(tag string) string {
	if r.prefix == "" {
		return tag
	}
	return r.prefix + ":" + tag
}

func (r *Redis) Handle(msg nmea.Message) error {
	payload, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", msg.Sentence.Tag, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	channel := r.Channel(msg.Sentence.Tag)
	if err := r.pub.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
