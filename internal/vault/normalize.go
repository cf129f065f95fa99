package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vaultScope/internal/model"
)

// NormalizationError reports a raw log that could not be turned into a
// record. The log is dropped by the caller; nothing partial is stored.
type NormalizationError struct {
	Event  string
	Reason string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s: %s: %v", e.Event, e.Reason, e.Err)
	}
	return fmt.Sprintf("normalize %s: %s", e.Event, e.Reason)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Event is one normalized vault event. Exactly one of Deposit or Withdraw is
// set. TxHash is informational only and is not persisted.
type Event struct {
	Name     string
	TxHash   string
	Deposit  *model.DepositRecord
	Withdraw *model.WithdrawRecord
}

// Normalizer converts raw vault logs into typed records.
type Normalizer struct {
	depositArgs  abi.Arguments
	withdrawArgs abi.Arguments
	depositID    common.Hash
	withdrawID   common.Hash
}

// NewNormalizer builds a Normalizer from the vault ABI.
func NewNormalizer() (*Normalizer, error) {
	parsed, err := VaultABI()
	if err != nil {
		return nil, err
	}

	deposit, ok := parsed.Events["Deposit"]
	if !ok {
		return nil, fmt.Errorf("vault abi missing Deposit event")
	}
	withdraw, ok := parsed.Events["Withdraw"]
	if !ok {
		return nil, fmt.Errorf("vault abi missing Withdraw event")
	}

	return &Normalizer{
		depositArgs:  deposit.Inputs.NonIndexed(),
		withdrawArgs: withdraw.Inputs.NonIndexed(),
		depositID:    deposit.ID,
		withdrawID:   withdraw.ID,
	}, nil
}

// DepositTopic returns the topic0 hash of the Deposit event.
func (n *Normalizer) DepositTopic() common.Hash { return n.depositID }

// WithdrawTopic returns the topic0 hash of the Withdraw event.
func (n *Normalizer) WithdrawTopic() common.Hash { return n.withdrawID }

// Normalize routes a raw log by topic0 and decodes it into an Event.
func (n *Normalizer) Normalize(log types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return Event{}, &NormalizationError{Event: "unknown", Reason: "missing topics"}
	}

	switch log.Topics[0] {
	case n.depositID:
		return n.normalizeDeposit(log)
	case n.withdrawID:
		return n.normalizeWithdraw(log)
	default:
		return Event{}, &NormalizationError{Event: "unknown", Reason: fmt.Sprintf("unsupported topic0 %s", log.Topics[0].Hex())}
	}
}

func (n *Normalizer) normalizeDeposit(log types.Log) (Event, error) {
	if len(log.Topics) != 3 {
		return Event{}, &NormalizationError{Event: "Deposit", Reason: fmt.Sprintf("expected 3 topics, got %d", len(log.Topics))}
	}

	values, err := n.depositArgs.Unpack(log.Data)
	if err != nil {
		return Event{}, &NormalizationError{Event: "Deposit", Reason: "unpack data", Err: err}
	}
	assets, shares, err := amountPair(values)
	if err != nil {
		return Event{}, &NormalizationError{Event: "Deposit", Reason: "amount fields", Err: err}
	}

	record := &model.DepositRecord{
		Caller:   topicAddress(log.Topics[1]),
		Receiver: topicAddress(log.Topics[2]),
		Assets:   assets.String(),
		Shares:   shares.String(),
		Block:    log.BlockNumber,
	}
	return Event{Name: "Deposit", TxHash: log.TxHash.Hex(), Deposit: record}, nil
}

func (n *Normalizer) normalizeWithdraw(log types.Log) (Event, error) {
	if len(log.Topics) != 4 {
		return Event{}, &NormalizationError{Event: "Withdraw", Reason: fmt.Sprintf("expected 4 topics, got %d", len(log.Topics))}
	}

	values, err := n.withdrawArgs.Unpack(log.Data)
	if err != nil {
		return Event{}, &NormalizationError{Event: "Withdraw", Reason: "unpack data", Err: err}
	}
	assets, shares, err := amountPair(values)
	if err != nil {
		return Event{}, &NormalizationError{Event: "Withdraw", Reason: "amount fields", Err: err}
	}

	record := &model.WithdrawRecord{
		Caller:   topicAddress(log.Topics[1]),
		Receiver: topicAddress(log.Topics[2]),
		Owner:    topicAddress(log.Topics[3]),
		Assets:   assets.String(),
		Shares:   shares.String(),
		Block:    log.BlockNumber,
	}
	return Event{Name: "Withdraw", TxHash: log.TxHash.Hex(), Withdraw: record}, nil
}

func amountPair(values []interface{}) (*big.Int, *big.Int, error) {
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("expected 2 non-indexed values, got %d", len(values))
	}
	assets, ok := values[0].(*big.Int)
	if !ok || assets == nil {
		return nil, nil, fmt.Errorf("assets is not a uint256")
	}
	shares, ok := values[1].(*big.Int)
	if !ok || shares == nil {
		return nil, nil, fmt.Errorf("shares is not a uint256")
	}
	if assets.Sign() < 0 || shares.Sign() < 0 {
		return nil, nil, fmt.Errorf("negative amount")
	}
	return assets, shares, nil
}

func topicAddress(topic common.Hash) string {
	return common.BytesToAddress(topic.Bytes()).Hex()
}
