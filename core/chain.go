package core

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChainNamespaceEIP155 selects Ethereum-compatible chains
const ChainNamespaceEIP155 = "eip155"

// ChainConfig describes the network a wallet provider targets
type ChainConfig struct {
	Namespace   string `yaml:"namespace" json:"namespace"`
	ChainID     string `yaml:"chain_id" json:"chain_id"` // hex, e.g. "0x5"
	RPCTarget   string `yaml:"rpc_target" json:"rpc_target"`
	ExplorerURL string `yaml:"explorer_url" json:"explorer_url"`
	DisplayName string `yaml:"display_name" json:"display_name"`
}

// ChainIDBig parses the configured hex chain id
func (c ChainConfig) ChainIDBig() (*big.Int, error) {
	id, err := hexutil.DecodeBig(strings.ToLower(strings.TrimSpace(c.ChainID)))
	if err != nil {
		return nil, fmt.Errorf("invalid chain id %q: %w", c.ChainID, err)
	}
	return id, nil
}

// TxURL returns the block-explorer link for a transaction hash
func (c ChainConfig) TxURL(hash string) string {
	if c.ExplorerURL == "" {
		return hash
	}
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + hash
}
