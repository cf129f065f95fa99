package vault

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func packAmounts(t *testing.T, event string, assets, shares *big.Int) []byte {
	t.Helper()
	parsed, err := VaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := parsed.Events[event].Inputs.NonIndexed().Pack(assets, shares)
	if err != nil {
		t.Fatalf("pack %s: %v", event, err)
	}
	return data
}

func TestNormalizeDeposit(t *testing.T) {
	norm, err := NewNormalizer()
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	caller := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// Exceeds 2^63 to catch any narrowing to fixed-width integers.
	assets, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	shares, _ := new(big.Int).SetString("98765432109876543210987654321", 10)

	log := types.Log{
		Topics:      []common.Hash{norm.DepositTopic(), topicFromAddress(caller), topicFromAddress(receiver)},
		Data:        packAmounts(t, "Deposit", assets, shares),
		BlockNumber: 1234567,
		TxHash:      common.HexToHash("0xabc"),
	}

	event, err := norm.Normalize(log)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Name != "Deposit" || event.Deposit == nil || event.Withdraw != nil {
		t.Fatalf("unexpected event shape: %+v", event)
	}

	record := event.Deposit
	if record.Caller != caller.Hex() {
		t.Fatalf("caller mismatch: %s", record.Caller)
	}
	if record.Receiver != receiver.Hex() {
		t.Fatalf("receiver mismatch: %s", record.Receiver)
	}
	if record.Assets != "123456789012345678901234567890" {
		t.Fatalf("assets mismatch: %s", record.Assets)
	}
	if record.Shares != "98765432109876543210987654321" {
		t.Fatalf("shares mismatch: %s", record.Shares)
	}
	if record.Block != 1234567 {
		t.Fatalf("block mismatch: %d", record.Block)
	}
}

func TestNormalizeWithdrawOwnerDiffersFromReceiver(t *testing.T) {
	norm, err := NewNormalizer()
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	caller := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")

	log := types.Log{
		Topics: []common.Hash{
			norm.WithdrawTopic(),
			topicFromAddress(caller),
			topicFromAddress(receiver),
			topicFromAddress(owner),
		},
		Data:        packAmounts(t, "Withdraw", big.NewInt(400), big.NewInt(400)),
		BlockNumber: 150,
	}

	event, err := norm.Normalize(log)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Withdraw == nil {
		t.Fatalf("expected withdraw record")
	}
	record := event.Withdraw
	if record.Owner != owner.Hex() || record.Receiver != receiver.Hex() || record.Caller != caller.Hex() {
		t.Fatalf("address mapping wrong: %+v", record)
	}
}

func TestNormalizeMissingTopics(t *testing.T) {
	norm, err := NewNormalizer()
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	_, err = norm.Normalize(types.Log{})
	var normErr *NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
}

func TestNormalizeWrongTopicCount(t *testing.T) {
	norm, err := NewNormalizer()
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	log := types.Log{
		Topics: []common.Hash{norm.DepositTopic()},
		Data:   packAmounts(t, "Deposit", big.NewInt(1), big.NewInt(1)),
	}
	_, err = norm.Normalize(log)
	var normErr *NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
}

func TestNormalizeTruncatedData(t *testing.T) {
	norm, err := NewNormalizer()
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	caller := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")

	log := types.Log{
		Topics: []common.Hash{norm.DepositTopic(), topicFromAddress(caller), topicFromAddress(receiver)},
		Data:   []byte{0x01, 0x02, 0x03},
	}
	_, err = norm.Normalize(log)
	var normErr *NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
}

func TestNormalizeUnknownTopic0(t *testing.T) {
	norm, err := NewNormalizer()
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	log := types.Log{
		Topics: []common.Hash{common.HexToHash("0xdeadbeef")},
	}
	_, err = norm.Normalize(log)
	var normErr *NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
}
