package storage

import (
	"context"
	"fmt"

	"vaultScope/internal/model"
)

// Store is the append-only event log. Appends assign the surrogate id and
// RecordedAt timestamp; records are never updated or deleted. Queries return
// the full matching set ordered by block descending, insertion order
// descending for equal blocks.
type Store interface {
	AppendDeposit(ctx context.Context, record *model.DepositRecord) error
	AppendWithdraw(ctx context.Context, record *model.WithdrawRecord) error
	DepositsByReceiver(ctx context.Context, receiver string) ([]model.DepositRecord, error)
	WithdrawalsByOwner(ctx context.Context, owner string) ([]model.WithdrawRecord, error)
}

// StorageError wraps an append or query failure. Appends are not retried;
// query errors propagate to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
