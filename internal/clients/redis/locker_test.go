package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

func testLocker(t *testing.T, wait time.Duration) Locker {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis locker tests")
	}
	l, err := NewLocker(logger.Nop(), Config{
		Addr:      addr,
		KeyPrefix: "test:guardian:lock:",
		TTL:       5 * time.Second,
		Wait:      wait,
		Poll:      10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLockerExclusive(t *testing.T) {
	l := testLocker(t, 100*time.Millisecond)
	key := uuid.NewString()

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), key)
	require.True(t, errors.Is(err, ErrLockTimeout), "expected timeout, got %v", err)

	unlock()

	unlock2, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	unlock2()
}

func TestNewLockerRequiresAddr(t *testing.T) {
	_, err := NewLocker(logger.Nop(), Config{})
	require.Error(t, err)
}
