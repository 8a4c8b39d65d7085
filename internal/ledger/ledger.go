// Package ledger tracks organization credit balances. Reservations and
// refunds are atomic: a reserve never leaves a balance negative and never
// loses an update under concurrent submissions, and a refund is idempotent
// per job so a retried compensation cannot double-credit an account.
package ledger

import "context"

// Entry types recorded in the credit transaction log.
const (
	EntryReserve = "reserve"
	EntryRefund  = "refund"
	EntryDeposit = "deposit"
)

// Ledger is the credit accounting contract used by the orchestrator.
type Ledger interface {
	// Reserve atomically checks balance >= amount and decrements it,
	// recording a reserve entry for jobID. Returns an
	// INSUFFICIENT_CREDITS error, leaving the account untouched, when the
	// balance does not cover the amount.
	Reserve(ctx context.Context, orgID string, amount int, jobID string) error

	// Refund atomically increments the balance and records a refund entry
	// keyed by jobID. A second refund for the same jobID is a no-op.
	Refund(ctx context.Context, orgID string, amount int, jobID string) error

	// Balance returns the current credit balance for an organization.
	Balance(ctx context.Context, orgID string) (int, error)

	// Deposit adds credits to an organization's balance (top-up).
	Deposit(ctx context.Context, orgID string, amount int) error
}
