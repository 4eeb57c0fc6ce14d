// Package lock serializes migration runs across processes.
package lock

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jokerealm/ai-slides/internal/config"
	"github.com/Jokerealm/ai-slides/internal/lock/etcd"
)

// Release gives a held lock back.
type Release = func(ctx context.Context) error

// Locker hands out named locks.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	Acquire(ctx context.Context, key string) (Release, error)
	Close() error
}

// Noop grants every lock immediately. It is used when no lock backend is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

func (Noop) Close() error { return nil }

// New creates the locker selected by cfg.Backend.
func New(cfg config.LockConfig) (Locker, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return Noop{}, nil
	case "etcd":
		l, err := etcd.New(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported lock backend: %s", cfg.Backend)
	}
}
