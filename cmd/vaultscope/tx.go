package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/vault"
)

func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve the vault to spend the underlying token",
		RunE:  runApprove,
	}
	addTxFlags(cmd)
	cmd.Flags().String("token", "", "underlying ERC-20 token address")
	return cmd
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit assets into the vault (requires prior approval)",
		RunE:  runDeposit,
	}
	addTxFlags(cmd)
	cmd.Flags().String("receiver", "", "address credited with shares (defaults to the signer)")
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw assets from the vault",
		RunE:  runWithdraw,
	}
	addTxFlags(cmd)
	cmd.Flags().String("receiver", "", "address receiving the assets (defaults to the signer)")
	return cmd
}

func addTxFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "node RPC endpoint")
	cmd.Flags().String("private-key", "", "hex-encoded signer private key")
	cmd.Flags().String("vault", "", "vault contract address")
	cmd.Flags().String("amount", "1.0", "token amount in decimal units")
	cmd.Flags().Int("decimals", 18, "token decimals")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runApprove(cmd *cobra.Command, _ []string) error {
	return runTx(cmd, func(ctx context.Context, sender *vault.TxSender, cfg config.TxConfig, logger *zap.Logger) error {
		if !common.IsHexAddress(cfg.Token) {
			return fmt.Errorf("token address is required")
		}
		amount, err := vault.ParseUnits(cfg.Amount, cfg.Decimals)
		if err != nil {
			return err
		}

		receipt, err := sender.Approve(ctx, common.HexToAddress(cfg.Token), common.HexToAddress(cfg.Vault), amount)
		if err != nil {
			return err
		}
		logger.Info("approval confirmed",
			zap.String("token", cfg.Token),
			zap.String("spender", cfg.Vault),
			zap.String("amount", amount.String()),
			zap.Uint64("block", receipt.BlockNumber.Uint64()),
			zap.String("tx_hash", receipt.TxHash.Hex()),
		)
		return nil
	})
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	return runTx(cmd, func(ctx context.Context, sender *vault.TxSender, cfg config.TxConfig, logger *zap.Logger) error {
		amount, err := vault.ParseUnits(cfg.Amount, cfg.Decimals)
		if err != nil {
			return err
		}
		receiver, err := receiverOrSigner(cfg.Receiver, sender)
		if err != nil {
			return err
		}

		receipt, err := sender.Deposit(ctx, common.HexToAddress(cfg.Vault), amount, receiver)
		if err != nil {
			return err
		}
		logger.Info("deposit confirmed",
			zap.String("vault", cfg.Vault),
			zap.String("receiver", receiver.Hex()),
			zap.String("assets", amount.String()),
			zap.Uint64("block", receipt.BlockNumber.Uint64()),
			zap.String("tx_hash", receipt.TxHash.Hex()),
		)
		return nil
	})
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	return runTx(cmd, func(ctx context.Context, sender *vault.TxSender, cfg config.TxConfig, logger *zap.Logger) error {
		amount, err := vault.ParseUnits(cfg.Amount, cfg.Decimals)
		if err != nil {
			return err
		}
		receiver, err := receiverOrSigner(cfg.Receiver, sender)
		if err != nil {
			return err
		}

		receipt, err := sender.Withdraw(ctx, common.HexToAddress(cfg.Vault), amount, receiver)
		if err != nil {
			return err
		}
		logger.Info("withdrawal confirmed",
			zap.String("vault", cfg.Vault),
			zap.String("receiver", receiver.Hex()),
			zap.String("owner", sender.From().Hex()),
			zap.String("assets", amount.String()),
			zap.Uint64("block", receipt.BlockNumber.Uint64()),
			zap.String("tx_hash", receipt.TxHash.Hex()),
		)
		return nil
	})
}

func runTx(cmd *cobra.Command, fn func(context.Context, *vault.TxSender, config.TxConfig, *zap.Logger) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTx(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if !common.IsHexAddress(cfg.Vault) {
		return fmt.Errorf("vault address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sender, err := vault.NewTxSender(ctx, chainClient, cfg.PrivateKey, logger)
	if err != nil {
		return err
	}
	logger.Info("using account", zap.String("address", sender.From().Hex()))

	return fn(ctx, sender, cfg, logger)
}

func receiverOrSigner(receiver string, sender *vault.TxSender) (common.Address, error) {
	if receiver == "" {
		return sender.From(), nil
	}
	if !common.IsHexAddress(receiver) {
		return common.Address{}, fmt.Errorf("invalid receiver address: %s", receiver)
	}
	return common.HexToAddress(receiver), nil
}
