package listener

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/storage"
	"vaultScope/internal/vault"
)

// State is the listener lifecycle state.
type State int32

const (
	StateInit State = iota
	StateListening
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConfigError reports missing or malformed listener settings. It is fatal at
// startup; the listener ends up in StateFailed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("listener config: %s", e.Reason)
}

// ConnectError reports a failed connection or handshake with the node.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Config holds listener settings.
type Config struct {
	Endpoint  string
	Contract  string
	QueueSize int
}

const defaultQueueSize = 1024

// Listener owns the live subscription to the vault contract. Raw logs flow
// through a bounded queue into a single worker that normalizes and appends;
// a full queue drops the newest log so the node feed is never back-pressured.
type Listener struct {
	cfg    Config
	store  storage.Store
	logger *zap.Logger
	norm   *vault.Normalizer

	mu     sync.Mutex
	state  State
	chain  *chain.Client
	cancel context.CancelFunc
	subs   []ethereum.Subscription
	queue  chan types.Log
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// New builds a Listener. Start must be called before any logs are consumed.
func New(cfg Config, store storage.Store, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Listener{
		cfg:    cfg,
		store:  store,
		logger: logger,
		state:  StateInit,
	}
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start validates configuration, connects to the node, and binds the Deposit
// and Withdraw filters. On return the listener is LISTENING; a start failure
// is terminal and a fresh Listener is required to retry.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateInit {
		state := l.state
		l.mu.Unlock()
		return fmt.Errorf("listener already started (state %s)", state)
	}
	l.mu.Unlock()

	if err := l.validate(); err != nil {
		l.setState(StateFailed)
		return err
	}

	norm, err := vault.NewNormalizer()
	if err != nil {
		l.setState(StateFailed)
		return err
	}
	l.norm = norm

	client, err := chain.NewClient(ctx, l.cfg.Endpoint)
	if err != nil {
		l.setState(StateFailed)
		return &ConnectError{Endpoint: l.cfg.Endpoint, Err: err}
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		l.setState(StateFailed)
		return &ConnectError{Endpoint: l.cfg.Endpoint, Err: err}
	}
	l.logger.Info("connected to network", zap.String("chain_id", chainID.String()))

	runCtx, cancel := context.WithCancel(ctx)
	contract := common.HexToAddress(l.cfg.Contract)
	queue := make(chan types.Log, l.cfg.QueueSize)

	feeds := []struct {
		name   string
		topic0 common.Hash
	}{
		{"Deposit", norm.DepositTopic()},
		{"Withdraw", norm.WithdrawTopic()},
	}

	subs := make([]ethereum.Subscription, 0, len(feeds))
	for _, feed := range feeds {
		sink := make(chan types.Log)
		sub, err := client.SubscribeLogs(runCtx, contract, feed.topic0, sink)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			cancel()
			client.Close()
			l.setState(StateFailed)
			return &ConnectError{Endpoint: l.cfg.Endpoint, Err: fmt.Errorf("subscribe %s: %w", feed.name, err)}
		}
		subs = append(subs, sub)

		l.wg.Add(1)
		go l.receive(runCtx, feed.name, sub, sink, queue)
	}

	l.wg.Add(1)
	go l.work(runCtx, queue)

	l.mu.Lock()
	l.chain = client
	l.cancel = cancel
	l.subs = subs
	l.queue = queue
	l.state = StateListening
	l.mu.Unlock()

	l.logger.Info("listening for vault events",
		zap.String("contract", contract.Hex()),
		zap.Int("queue_size", l.cfg.QueueSize),
	)
	return nil
}

// Stop releases the connection and waits until no further dispatch can
// occur. It is idempotent and safe to call from any state.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		cancel := l.cancel
		subs := l.subs
		client := l.chain
		failed := l.state == StateFailed
		l.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		l.wg.Wait()
		if client != nil {
			client.Close()
		}

		if !failed {
			l.setState(StateStopped)
			l.logger.Info("listener stopped")
		}
	})
}

func (l *Listener) validate() error {
	if l.cfg.Endpoint == "" {
		return &ConfigError{Reason: "node endpoint is required"}
	}
	if l.cfg.Contract == "" {
		return &ConfigError{Reason: "vault contract address is required"}
	}
	if !common.IsHexAddress(l.cfg.Contract) {
		return &ConfigError{Reason: fmt.Sprintf("invalid vault contract address: %s", l.cfg.Contract)}
	}
	if l.store == nil {
		return &ConfigError{Reason: "store is required"}
	}
	return nil
}

// receive drains one subscription into the shared queue. A subscription
// error ends this feed; there is no automatic resubscription.
func (l *Listener) receive(ctx context.Context, name string, sub ethereum.Subscription, sink <-chan types.Log, queue chan<- types.Log) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				l.logger.Error("subscription lost", zap.String("event", name), zap.Error(err))
			}
			return
		case vLog := <-sink:
			select {
			case queue <- vLog:
			default:
				l.logger.Warn("ingest queue full, dropping log",
					zap.String("event", name),
					zap.Uint64("block", vLog.BlockNumber),
					zap.String("tx_hash", vLog.TxHash.Hex()),
				)
			}
		}
	}
}

// work consumes the queue, normalizing and appending one log at a time. A
// bad event is logged and dropped; it never halts the subscription.
func (l *Listener) work(ctx context.Context, queue <-chan types.Log) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case vLog := <-queue:
			l.processLog(ctx, vLog)
		}
	}
}

func (l *Listener) processLog(ctx context.Context, vLog types.Log) {
	if vLog.Removed {
		l.logger.Warn("log marked removed by node, persisting anyway",
			zap.Uint64("block", vLog.BlockNumber),
			zap.String("tx_hash", vLog.TxHash.Hex()),
		)
	}

	event, err := l.norm.Normalize(vLog)
	if err != nil {
		l.logger.Error("drop event: normalization failed", zap.Error(err),
			zap.Uint64("block", vLog.BlockNumber),
			zap.String("tx_hash", vLog.TxHash.Hex()),
		)
		return
	}

	switch {
	case event.Deposit != nil:
		if err := l.store.AppendDeposit(ctx, event.Deposit); err != nil {
			l.logger.Error("drop event: append deposit failed", zap.Error(err),
				zap.Uint64("block", event.Deposit.Block),
				zap.String("tx_hash", event.TxHash),
			)
			return
		}
		l.logger.Info("deposit recorded",
			zap.String("caller", event.Deposit.Caller),
			zap.String("receiver", event.Deposit.Receiver),
			zap.String("assets", event.Deposit.Assets),
			zap.String("shares", event.Deposit.Shares),
			zap.Uint64("block", event.Deposit.Block),
			zap.String("tx_hash", event.TxHash),
		)
	case event.Withdraw != nil:
		if err := l.store.AppendWithdraw(ctx, event.Withdraw); err != nil {
			l.logger.Error("drop event: append withdraw failed", zap.Error(err),
				zap.Uint64("block", event.Withdraw.Block),
				zap.String("tx_hash", event.TxHash),
			)
			return
		}
		l.logger.Info("withdrawal recorded",
			zap.String("caller", event.Withdraw.Caller),
			zap.String("receiver", event.Withdraw.Receiver),
			zap.String("owner", event.Withdraw.Owner),
			zap.String("assets", event.Withdraw.Assets),
			zap.String("shares", event.Withdraw.Shares),
			zap.Uint64("block", event.Withdraw.Block),
			zap.String("tx_hash", event.TxHash),
		)
	}
}

func (l *Listener) setState(state State) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}
