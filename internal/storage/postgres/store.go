package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// Store provides Postgres persistence for vault event records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the event tables if they do not exist. Amounts are
// TEXT: all arithmetic happens in Go on big.Int, the database only stores.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS deposit_events (
			id BIGSERIAL PRIMARY KEY,
			caller TEXT NOT NULL,
			receiver TEXT NOT NULL,
			assets TEXT NOT NULL,
			shares TEXT NOT NULL,
			block BIGINT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deposit_events_receiver ON deposit_events (lower(receiver))`,
		`CREATE TABLE IF NOT EXISTS withdraw_events (
			id BIGSERIAL PRIMARY KEY,
			caller TEXT NOT NULL,
			receiver TEXT NOT NULL,
			owner TEXT NOT NULL,
			assets TEXT NOT NULL,
			shares TEXT NOT NULL,
			block BIGINT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdraw_events_owner ON withdraw_events (lower(owner))`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &storage.StorageError{Op: "ensure schema", Err: err}
		}
	}
	return nil
}

// AppendDeposit inserts a deposit record and fills in its id and RecordedAt.
func (s *Store) AppendDeposit(ctx context.Context, record *model.DepositRecord) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO deposit_events (caller, receiver, assets, shares, block)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, recorded_at
	`,
		record.Caller,
		record.Receiver,
		record.Assets,
		record.Shares,
		int64(record.Block),
	)
	if err := row.Scan(&record.ID, &record.RecordedAt); err != nil {
		return &storage.StorageError{Op: "append deposit", Err: err}
	}
	return nil
}

// AppendWithdraw inserts a withdrawal record and fills in its id and RecordedAt.
func (s *Store) AppendWithdraw(ctx context.Context, record *model.WithdrawRecord) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO withdraw_events (caller, receiver, owner, assets, shares, block)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, recorded_at
	`,
		record.Caller,
		record.Receiver,
		record.Owner,
		record.Assets,
		record.Shares,
		int64(record.Block),
	)
	if err := row.Scan(&record.ID, &record.RecordedAt); err != nil {
		return &storage.StorageError{Op: "append withdraw", Err: err}
	}
	return nil
}

// DepositsByReceiver returns all deposits credited to the wallet, block
// descending, insertion order descending for equal blocks.
func (s *Store) DepositsByReceiver(ctx context.Context, receiver string) ([]model.DepositRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, caller, receiver, assets, shares, block, recorded_at
		FROM deposit_events
		WHERE lower(receiver) = lower($1)
		ORDER BY block DESC, id DESC
	`, receiver)
	if err != nil {
		return nil, &storage.StorageError{Op: "query deposits", Err: err}
	}
	defer rows.Close()

	records := make([]model.DepositRecord, 0)
	for rows.Next() {
		var record model.DepositRecord
		var block int64
		if err := rows.Scan(
			&record.ID,
			&record.Caller,
			&record.Receiver,
			&record.Assets,
			&record.Shares,
			&block,
			&record.RecordedAt,
		); err != nil {
			return nil, &storage.StorageError{Op: "scan deposit", Err: err}
		}
		record.Block = uint64(block)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "query deposits", Err: err}
	}
	return records, nil
}

// WithdrawalsByOwner returns all withdrawals attributed to the wallet, block
// descending, insertion order descending for equal blocks.
func (s *Store) WithdrawalsByOwner(ctx context.Context, owner string) ([]model.WithdrawRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, caller, receiver, owner, assets, shares, block, recorded_at
		FROM withdraw_events
		WHERE lower(owner) = lower($1)
		ORDER BY block DESC, id DESC
	`, owner)
	if err != nil {
		return nil, &storage.StorageError{Op: "query withdrawals", Err: err}
	}
	defer rows.Close()

	records := make([]model.WithdrawRecord, 0)
	for rows.Next() {
		var record model.WithdrawRecord
		var block int64
		if err := rows.Scan(
			&record.ID,
			&record.Caller,
			&record.Receiver,
			&record.Owner,
			&record.Assets,
			&record.Shares,
			&block,
			&record.RecordedAt,
		); err != nil {
			return nil, &storage.StorageError{Op: "scan withdrawal", Err: err}
		}
		record.Block = uint64(block)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "query withdrawals", Err: err}
	}
	return records, nil
}
