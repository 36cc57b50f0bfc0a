package config

import (
	"errors"
	"math/big"
)

// Default values
const (
	DefaultRPC      = "https://rpc-testnet.pila.vn"
	DefaultChainID  = 6789
	DefaultGasLimit = 200000
)

// Config holds the configuration for access-control operations against a
// single deployed contract.
type Config struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string // contract address
	// Optional: defaults to 0 if not set, suitable for gas-free subnets.
	// For mainnet/L2, these should be configured or estimated dynamically.
	GasPrice *big.Int
	GasLimit uint64
}

// New creates a new Config instance with the provided values.
// If a value is empty/zero, it will use the default value.
func New(cfg Config) *Config {
	result := &Config{
		RPCURL:   DefaultRPC,
		ChainID:  DefaultChainID,
		GasLimit: DefaultGasLimit,
		GasPrice: big.NewInt(0),
	}

	if cfg.RPCURL != "" {
		result.RPCURL = cfg.RPCURL
	}
	if cfg.ChainID != 0 {
		result.ChainID = cfg.ChainID
	}
	if cfg.ContractAddress != "" {
		result.ContractAddress = cfg.ContractAddress
	}
	if cfg.GasLimit != 0 {
		result.GasLimit = cfg.GasLimit
	}
	if cfg.GasPrice != nil {
		result.GasPrice = cfg.GasPrice
	}

	return result
}

// Validate checks that the config carries everything needed to bind a contract.
func (c *Config) Validate() error {
	if c.ContractAddress == "" {
		return errors.New("contract address is required")
	}
	if c.ChainID == 0 {
		return errors.New("chain ID is required")
	}
	return nil
}
