package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ListenConfig holds settings for the listen command, merged from flags,
// environment (VAULTSCOPE_*), and an optional config file.
type ListenConfig struct {
	WSURL     string
	Contract  string
	PGDSN     string
	HTTPAddr  string
	QueueSize int
	LogLevel  string
}

// TxConfig holds settings for the approve/deposit/withdraw commands.
type TxConfig struct {
	RPCURL     string
	PrivateKey string
	Vault      string
	Token      string
	Amount     string
	Receiver   string
	Decimals   int
	LogLevel   string
}

// LoadListen merges config file, environment variables, and flags.
func LoadListen(cfgFile string, flags *pflag.FlagSet) (ListenConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ListenConfig{}, err
	}

	v.SetDefault("http-addr", ":3000")
	v.SetDefault("queue-size", 1024)
	v.SetDefault("log-level", "info")

	cfg := ListenConfig{
		WSURL:     v.GetString("ws-url"),
		Contract:  v.GetString("contract"),
		PGDSN:     v.GetString("pg-dsn"),
		HTTPAddr:  v.GetString("http-addr"),
		QueueSize: v.GetInt("queue-size"),
		LogLevel:  v.GetString("log-level"),
	}
	return cfg, nil
}

// LoadTx merges config file, environment variables, and flags.
func LoadTx(cfgFile string, flags *pflag.FlagSet) (TxConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return TxConfig{}, err
	}

	v.SetDefault("decimals", 18)
	v.SetDefault("log-level", "info")

	cfg := TxConfig{
		RPCURL:     v.GetString("rpc"),
		PrivateKey: v.GetString("private-key"),
		Vault:      v.GetString("vault"),
		Token:      v.GetString("token"),
		Amount:     v.GetString("amount"),
		Receiver:   v.GetString("receiver"),
		Decimals:   v.GetInt("decimals"),
		LogLevel:   v.GetString("log-level"),
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULTSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
