package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/model"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu          sync.RWMutex
	deposits    []model.DepositRecord
	withdrawals []model.WithdrawRecord
	nextID      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// AppendDeposit assigns id and RecordedAt and stores a copy of the record.
func (s *MemoryStore) AppendDeposit(_ context.Context, record *model.DepositRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = s.nextID
	record.RecordedAt = time.Now().UTC()
	s.nextID++
	s.deposits = append(s.deposits, *record)
	return nil
}

// AppendWithdraw assigns id and RecordedAt and stores a copy of the record.
func (s *MemoryStore) AppendWithdraw(_ context.Context, record *model.WithdrawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = s.nextID
	record.RecordedAt = time.Now().UTC()
	s.nextID++
	s.withdrawals = append(s.withdrawals, *record)
	return nil
}

// DepositsByReceiver returns the wallet's deposits, block descending, id
// descending for equal blocks.
func (s *MemoryStore) DepositsByReceiver(_ context.Context, receiver string) ([]model.DepositRecord, error) {
	wallet := common.HexToAddress(receiver)

	s.mu.RLock()
	matched := make([]model.DepositRecord, 0)
	for _, record := range s.deposits {
		if common.HexToAddress(record.Receiver) == wallet {
			matched = append(matched, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Block != matched[j].Block {
			return matched[i].Block > matched[j].Block
		}
		return matched[i].ID > matched[j].ID
	})
	return matched, nil
}

// WithdrawalsByOwner returns the wallet's withdrawals, block descending, id
// descending for equal blocks.
func (s *MemoryStore) WithdrawalsByOwner(_ context.Context, owner string) ([]model.WithdrawRecord, error) {
	wallet := common.HexToAddress(owner)

	s.mu.RLock()
	matched := make([]model.WithdrawRecord, 0)
	for _, record := range s.withdrawals {
		if common.HexToAddress(record.Owner) == wallet {
			matched = append(matched, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Block != matched[j].Block {
			return matched[i].Block > matched[j].Block
		}
		return matched[i].ID > matched[j].ID
	})
	return matched, nil
}

// Counts returns the number of stored deposit and withdrawal records.
func (s *MemoryStore) Counts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deposits), len(s.withdrawals)
}
