package ledger

import (
	"context"
	"sync"

	"abode/internal/pkg/errors"
)

// Memory implements Ledger with in-process state. It mirrors the
// transactional semantics of the PostgreSQL implementation and backs the
// dev mode and tests.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int
	refunded map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]int),
		refunded: make(map[string]bool),
	}
}

func (l *Memory) Reserve(ctx context.Context, orgID string, amount int, jobID string) error {
	if amount <= 0 {
		return errors.Validationf("reserve amount must be positive, got %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[orgID]
	if !ok {
		return errors.NotFound("credit account", orgID)
	}
	if balance < amount {
		return errors.InsufficientCredits(amount, balance)
	}
	l.balances[orgID] = balance - amount
	return nil
}

func (l *Memory) Refund(ctx context.Context, orgID string, amount int, jobID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.refunded[jobID] {
		return nil
	}
	l.refunded[jobID] = true
	l.balances[orgID] += amount
	return nil
}

func (l *Memory) Balance(ctx context.Context, orgID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[orgID]
	if !ok {
		return 0, errors.NotFound("credit account", orgID)
	}
	return balance, nil
}

func (l *Memory) Deposit(ctx context.Context, orgID string, amount int) error {
	if amount <= 0 {
		return errors.Validationf("deposit amount must be positive, got %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[orgID] += amount
	return nil
}
