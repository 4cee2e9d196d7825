package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/linemk/commerce-core/internal/storage"
)

// AccountLocks is a keyed lock: one single-slot semaphore per account id,
// dropped when the last waiter or holder is gone. Cart mutations and checkout
// share one instance.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*accountLock
}

type accountLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[uuid.UUID]*accountLock)}
}

// Lock waits until the account is free or ctx is done. On success it returns
// the matching unlock; a cancelled wait fails with storage.ErrTimeout.
func (l *AccountLocks) Lock(ctx context.Context, id uuid.UUID) (unlock func(), err error) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &accountLock{sem: semaphore.NewWeighted(1)}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	if err := lk.sem.Acquire(ctx, 1); err != nil {
		l.release(id, lk)
		return nil, fmt.Errorf("%w: waiting for account %s: %w", storage.ErrTimeout, id, err)
	}

	return func() {
		lk.sem.Release(1)
		l.release(id, lk)
	}, nil
}

func (l *AccountLocks) release(id uuid.UUID, lk *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *AccountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
