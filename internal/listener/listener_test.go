package listener

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
	"vaultScope/internal/vault"
)

const (
	testContract = "0x6aA4C7396579cE2666F38acB9dfB84BD373e4CB9"
	testCaller   = "0x1111111111111111111111111111111111111111"
	testReceiver = "0x2222222222222222222222222222222222222222"
)

func TestStartRejectsMissingEndpoint(t *testing.T) {
	l := New(Config{Contract: testContract}, storage.NewMemoryStore(), nil)

	err := l.Start(context.Background())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if l.State() != StateFailed {
		t.Fatalf("state %s, want failed", l.State())
	}
}

func TestStartRejectsMalformedContract(t *testing.T) {
	l := New(Config{Endpoint: "ws://localhost:8546", Contract: "not-an-address"}, storage.NewMemoryStore(), nil)

	err := l.Start(context.Background())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if l.State() != StateFailed {
		t.Fatalf("state %s, want failed", l.State())
	}
}

func TestStartFailsOnUnreachableEndpoint(t *testing.T) {
	// An unknown URL scheme fails in the dialer without touching the network.
	l := New(Config{Endpoint: "foo://nowhere", Contract: testContract}, storage.NewMemoryStore(), nil)

	err := l.Start(context.Background())
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
	if l.State() != StateFailed {
		t.Fatalf("state %s, want failed", l.State())
	}
}

func TestFailedStartIsTerminal(t *testing.T) {
	l := New(Config{}, storage.NewMemoryStore(), nil)
	if err := l.Start(context.Background()); err == nil {
		t.Fatalf("expected start to fail")
	}
	if err := l.Start(context.Background()); err == nil {
		t.Fatalf("restart of a failed listener must be rejected")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := New(Config{}, storage.NewMemoryStore(), nil)
	l.Stop()
	l.Stop()
}

func depositLog(t *testing.T, norm *vault.Normalizer, assets, shares *big.Int, block uint64) types.Log {
	t.Helper()
	parsed, err := vault.VaultABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	data, err := parsed.Events["Deposit"].Inputs.NonIndexed().Pack(assets, shares)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Topics: []common.Hash{
			norm.DepositTopic(),
			common.BytesToHash(common.HexToAddress(testCaller).Bytes()),
			common.BytesToHash(common.HexToAddress(testReceiver).Bytes()),
		},
		Data:        data,
		BlockNumber: block,
	}
}

func newTestListener(t *testing.T, store storage.Store) *Listener {
	t.Helper()
	l := New(Config{Endpoint: "ws://unused", Contract: testContract}, store, nil)
	norm, err := vault.NewNormalizer()
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	l.norm = norm
	return l
}

func TestProcessLogStoresDeposit(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestListener(t, store)

	l.processLog(context.Background(), depositLog(t, l.norm, big.NewInt(1000), big.NewInt(900), 77))

	records, err := store.DepositsByReceiver(context.Background(), testReceiver)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Assets != "1000" || records[0].Shares != "900" || records[0].Block != 77 {
		t.Fatalf("record mismatch: %+v", records[0])
	}
}

func TestProcessLogDropsMalformedEvent(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestListener(t, store)

	bad := depositLog(t, l.norm, big.NewInt(1), big.NewInt(1), 5)
	bad.Data = bad.Data[:7]
	l.processLog(context.Background(), bad)

	deposits, withdrawals := store.Counts()
	if deposits != 0 || withdrawals != 0 {
		t.Fatalf("malformed event must not be stored: %d/%d", deposits, withdrawals)
	}
}

type failingStore struct{}

func (failingStore) AppendDeposit(context.Context, *model.DepositRecord) error {
	return &storage.StorageError{Op: "append deposit", Err: errors.New("down")}
}

func (failingStore) AppendWithdraw(context.Context, *model.WithdrawRecord) error {
	return &storage.StorageError{Op: "append withdraw", Err: errors.New("down")}
}

func (failingStore) DepositsByReceiver(context.Context, string) ([]model.DepositRecord, error) {
	return nil, nil
}

func (failingStore) WithdrawalsByOwner(context.Context, string) ([]model.WithdrawRecord, error) {
	return nil, nil
}

func TestProcessLogSurvivesStoreFailure(t *testing.T) {
	l := newTestListener(t, failingStore{})

	// Must log and drop, not panic or halt.
	l.processLog(context.Background(), depositLog(t, l.norm, big.NewInt(1), big.NewInt(1), 9))
}

type fakeSubscription struct {
	errCh chan error
}

func (f *fakeSubscription) Unsubscribe()      {}
func (f *fakeSubscription) Err() <-chan error { return f.errCh }

func TestReceiveDropsNewestWhenQueueFull(t *testing.T) {
	l := newTestListener(t, storage.NewMemoryStore())

	sub := &fakeSubscription{errCh: make(chan error, 1)}
	sink := make(chan types.Log)
	queue := make(chan types.Log, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.wg.Add(1)
	go l.receive(ctx, "Deposit", sub, sink, queue)

	for block := uint64(1); block <= 3; block++ {
		select {
		case sink <- depositLog(t, l.norm, big.NewInt(1), big.NewInt(1), block):
		case <-time.After(time.Second):
			t.Fatalf("receive loop stalled on log %d", block)
		}
	}

	sub.errCh <- errors.New("subscription closed")
	l.wg.Wait()

	if len(queue) != 1 {
		t.Fatalf("queue holds %d logs, want 1 (drop-newest)", len(queue))
	}
	kept := <-queue
	if kept.BlockNumber != 1 {
		t.Fatalf("kept block %d, want the first delivered", kept.BlockNumber)
	}
}

func TestReceiveStopsOnContextCancel(t *testing.T) {
	l := newTestListener(t, storage.NewMemoryStore())

	sub := &fakeSubscription{errCh: make(chan error)}
	sink := make(chan types.Log)
	queue := make(chan types.Log, 1)

	ctx, cancel := context.WithCancel(context.Background())
	l.wg.Add(1)
	go l.receive(ctx, "Deposit", sub, sink, queue)

	cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("receive loop did not stop on cancel")
	}
}
