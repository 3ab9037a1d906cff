package kv

import (
	"context"
	"time"
)

// Store is a TTL key-value store. All durable ledger state lives here;
// keys are namespaced by the caller (token:*, claim:*).
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// GetDeleter is implemented by stores that can read and remove a key in
// a single atomic step. The ledger prefers it for one-shot token
// consumption; without it the consume falls back to get-then-delete,
// which leaves a narrow window where two concurrent reads both see the
// key before either delete lands.
type GetDeleter interface {
	GetDel(ctx context.Context, key string) (value []byte, found bool, err error)
}
