package vault

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
)

// TxSender signs and sends vault transactions. It backs the approve, deposit
// and withdraw CLI commands.
type TxSender struct {
	chain   *chain.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	logger  *zap.Logger
}

// NewTxSender builds a TxSender from a hex-encoded private key.
func NewTxSender(ctx context.Context, chainClient *chain.Client, hexKey string, logger *zap.Logger) (*TxSender, error) {
	if chainClient == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	return &TxSender{
		chain:   chainClient,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		logger:  logger,
	}, nil
}

// From returns the signer address.
func (s *TxSender) From() common.Address { return s.from }

// Approve sends an ERC-20 approve of the spender for the given amount.
func (s *TxSender) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return s.send(ctx, token, data)
}

// Deposit sends vault.deposit(assets, receiver). The vault must already be
// approved to pull the assets.
func (s *TxSender) Deposit(ctx context.Context, vault common.Address, assets *big.Int, receiver common.Address) (*types.Receipt, error) {
	parsed, err := VaultABI()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack("deposit", assets, receiver)
	if err != nil {
		return nil, fmt.Errorf("pack deposit: %w", err)
	}
	return s.send(ctx, vault, data)
}

// Withdraw sends vault.withdraw(assets, receiver, owner) with the signer as
// owner.
func (s *TxSender) Withdraw(ctx context.Context, vault common.Address, assets *big.Int, receiver common.Address) (*types.Receipt, error) {
	parsed, err := VaultABI()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack("withdraw", assets, receiver, s.from)
	if err != nil {
		return nil, fmt.Errorf("pack withdraw: %w", err)
	}
	return s.send(ctx, vault, data)
}

func (s *TxSender) send(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	nonce, err := s.chain.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := s.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}
	gasLimit, err := s.chain.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := s.chain.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	s.logger.Info("transaction sent",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
	)

	receipt, err := s.chain.WaitMined(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("wait mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", signed.Hash().Hex())
	}
	return receipt, nil
}
