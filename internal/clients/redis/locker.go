package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hostguard/guardian-backend/internal/pkg/envutil"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

var ErrLockTimeout = errors.New("lock wait timed out")

// Locker hands out short-lived exclusive leases keyed by name.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
	// Client exposes the underlying connection for health and pool metrics.
	Client() goredis.UniversalClient
	Close() error
}

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
	// Wait bounds how long Lock polls for a held key.
	Wait time.Duration
	Poll time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Addr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envutil.Int("REDIS_DB", 0),
		KeyPrefix: envutil.String("REDIS_LOCK_PREFIX", "guardian:lock:"),
		TTL:       envutil.Seconds("GUARDIAN_LOCK_TTL_SECONDS", 120),
		Wait:      envutil.Seconds("GUARDIAN_LOCK_WAIT_SECONDS", 60),
		Poll:      100 * time.Millisecond,
	}
}

// Compare-and-delete so a lease that expired and was re-acquired elsewhere
// is never released by its previous holder.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type locker struct {
	log *logger.Logger
	rdb *goredis.Client
	cfg Config
}

func NewLocker(log *logger.Logger, cfg Config) (Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 120 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = cfg.TTL
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 100 * time.Millisecond
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &locker{
		log: log.With("service", "RedisLocker"),
		rdb: rdb,
		cfg: cfg,
	}, nil
}

func (l *locker) Lock(ctx context.Context, key string) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fullKey := l.cfg.KeyPrefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.Wait)
	defer cancel()

	ticker := time.NewTicker(l.cfg.Poll)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(waitCtx, fullKey, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redis setnx %s: %w", fullKey, err)
		}
		if ok {
			return func() { l.release(fullKey, token) }, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%s: %w", fullKey, ErrLockTimeout)
		case <-ticker.C:
		}
	}
}

func (l *locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
		l.log.Warn("Releasing lock failed", "key", key, "error", err)
	}
}

func (l *locker) Client() goredis.UniversalClient { return l.rdb }

func (l *locker) Close() error {
	return l.rdb.Close()
}
