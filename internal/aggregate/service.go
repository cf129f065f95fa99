package aggregate

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// Service derives per-wallet summary and history views from the event store.
// It never writes.
type Service struct {
	store  storage.Store
	logger *zap.Logger
}

func NewService(store storage.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// SummarizeDeposits sums assets and shares over all deposits credited to the
// wallet. Totals are exact big integers; the last block is an explicit max
// over Block, never the most recently inserted record. A wallet with no
// records yields "0" totals and block 0.
func (s *Service) SummarizeDeposits(ctx context.Context, wallet string) (model.DepositSummary, error) {
	records, err := s.store.DepositsByReceiver(ctx, wallet)
	if err != nil {
		return model.DepositSummary{}, err
	}

	totalAssets := new(big.Int)
	totalShares := new(big.Int)
	var lastBlock uint64
	for _, record := range records {
		if err := addAmount(totalAssets, record.Assets); err != nil {
			return model.DepositSummary{}, fmt.Errorf("deposit record %d: %w", record.ID, err)
		}
		if err := addAmount(totalShares, record.Shares); err != nil {
			return model.DepositSummary{}, fmt.Errorf("deposit record %d: %w", record.ID, err)
		}
		if record.Block > lastBlock {
			lastBlock = record.Block
		}
	}

	return model.DepositSummary{
		TotalDepositedAssets: totalAssets.String(),
		TotalReceivedShares:  totalShares.String(),
		LastDepositBlock:     lastBlock,
	}, nil
}

// SummarizeWithdrawals sums assets and shares over all withdrawals whose
// shares were burned from the wallet (owner, not receiver or caller).
func (s *Service) SummarizeWithdrawals(ctx context.Context, wallet string) (model.WithdrawSummary, error) {
	records, err := s.store.WithdrawalsByOwner(ctx, wallet)
	if err != nil {
		return model.WithdrawSummary{}, err
	}

	totalAssets := new(big.Int)
	totalShares := new(big.Int)
	var lastBlock uint64
	for _, record := range records {
		if err := addAmount(totalAssets, record.Assets); err != nil {
			return model.WithdrawSummary{}, fmt.Errorf("withdraw record %d: %w", record.ID, err)
		}
		if err := addAmount(totalShares, record.Shares); err != nil {
			return model.WithdrawSummary{}, fmt.Errorf("withdraw record %d: %w", record.ID, err)
		}
		if record.Block > lastBlock {
			lastBlock = record.Block
		}
	}

	return model.WithdrawSummary{
		TotalWithdrawnAssets: totalAssets.String(),
		TotalBurnedShares:    totalShares.String(),
		LastWithdrawBlock:    lastBlock,
	}, nil
}

// DepositHistory returns the wallet's deposits in store order: block
// descending, insertion order descending for equal blocks.
func (s *Service) DepositHistory(ctx context.Context, wallet string) ([]model.DepositRecord, error) {
	return s.store.DepositsByReceiver(ctx, wallet)
}

// WithdrawHistory returns the wallet's withdrawals in store order.
func (s *Service) WithdrawHistory(ctx context.Context, wallet string) ([]model.WithdrawRecord, error) {
	return s.store.WithdrawalsByOwner(ctx, wallet)
}

func addAmount(total *big.Int, amount string) error {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("malformed amount %q", amount)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("negative amount %q", amount)
	}
	total.Add(total, value)
	return nil
}
