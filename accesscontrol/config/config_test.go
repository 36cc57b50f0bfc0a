package config

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesDefaults(t *testing.T) {
	cfg := New(Config{ContractAddress: "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e"})

	assert.Equal(t, DefaultRPC, cfg.RPCURL)
	assert.Equal(t, int64(DefaultChainID), cfg.ChainID)
	assert.Equal(t, uint64(DefaultGasLimit), cfg.GasLimit)
	assert.Equal(t, big.NewInt(0), cfg.GasPrice)
}

func TestNewKeepsExplicitValues(t *testing.T) {
	cfg := New(Config{
		RPCURL:          "http://localhost:8545",
		ChainID:         1337,
		ContractAddress: "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e",
		GasPrice:        big.NewInt(1_000_000_000),
		GasLimit:        500_000,
	})

	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, int64(1337), cfg.ChainID)
	assert.Equal(t, big.NewInt(1_000_000_000), cfg.GasPrice)
	assert.Equal(t, uint64(500_000), cfg.GasLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{ContractAddress: "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e", ChainID: 6789},
		},
		{
			name:    "missing address",
			cfg:     Config{ChainID: 6789},
			wantErr: "contract address is required",
		},
		{
			name:    "missing chain ID",
			cfg:     Config{ContractAddress: "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e"},
			wantErr: "chain ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
