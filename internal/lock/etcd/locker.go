// Package etcd implements migration locks with etcd leases.
package etcd

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/Jokerealm/ai-slides/internal/config"
	"github.com/Jokerealm/ai-slides/internal/logger"
)

// Locker holds one mutex per key, each bound to its own leased session.
// A crashed holder loses the lock when its lease expires.
type Locker struct {
	client *clientv3.Client
	prefix string
	ttl    int
}

// New creates an etcd client for the configured endpoints.
func New(cfg config.LockConfig) (*Locker, error) {
	endpoints := make([]string, 0, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		if ep = strings.TrimSpace(ep); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("etcd lock requires at least one endpoint")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &Locker{
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttlSeconds(cfg.TTL),
	}, nil
}

// Acquire blocks until the mutex for key is held.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	session, err := concurrency.NewSession(l.client, concurrency.WithTTL(l.ttl), concurrency.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd session: %w", err)
	}

	name := l.key(key)
	mutex := concurrency.NewMutex(session, name)
	if err := mutex.Lock(ctx); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	logger.Debugf("Acquired migration lock %s", name)

	return func(ctx context.Context) error {
		defer func() { _ = session.Close() }()
		if err := mutex.Unlock(ctx); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", name, err)
		}
		logger.Debugf("Released migration lock %s", name)
		return nil
	}, nil
}

// Close closes the etcd client
func (l *Locker) Close() error {
	return l.client.Close()
}

func (l *Locker) key(name string) string {
	prefix := l.prefix
	if prefix == "" {
		prefix = "/"
	}
	return path.Join(prefix, name)
}

func ttlSeconds(d time.Duration) int {
	if secs := int(d / time.Second); secs > 0 {
		return secs
	}
	return 30
}
