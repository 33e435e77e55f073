package cache

import (
	"context"
	"time"
)

// Cache is the byte-oriented capability consumed by read paths. Absence of
// a backing store must never affect correctness, only latency, so every
// caller treats a miss and an error the same way.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Noop satisfies Cache without storing anything. It is the default when no
// redis address is configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (*Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (*Noop) Invalidate(ctx context.Context, keys ...string) error {
	return nil
}
