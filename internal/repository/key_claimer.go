package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

const claimTTL = 30 * time.Second

// RedisKeyClaimer serializes concurrent imports of the same row key across
// instances. The unique index on import_key stays the final guard.
type RedisKeyClaimer struct {
	locker *redislock.Client
}

func NewRedisKeyClaimer(client *redis.Client) *RedisKeyClaimer {
	return &RedisKeyClaimer{locker: redislock.New(client)}
}

func (k *RedisKeyClaimer) Claim(ctx context.Context, key string) (func(), error) {
	lock, err := k.locker.Obtain(ctx, "import_key:"+key, claimTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, interfaces.ErrAlreadyClaimed
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			telemetry.Logger.Warn("Failed to release import key", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// LocalKeyClaimer is used without Redis. Claims always succeed.
type LocalKeyClaimer struct{}

func (LocalKeyClaimer) Claim(context.Context, string) (func(), error) {
	return func() {}, nil
}
