package repository

import (
	"context"
	"time"
)

// RunLock guards against two processes crawling at once
type RunLock interface {
	// Acquire returns false without error when another holder owns the lock
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}
