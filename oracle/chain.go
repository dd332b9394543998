// Package oracle resolves transaction gas fees through EVM JSON-RPC nodes
// and historical native-asset spot prices through DEX subgraphs. Results
// are memoized, so a transaction referenced by many rows is fetched at most
// once per (chain, tx, conversion) pair, and endpoint calls are rate
// limited.
package oracle

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Liquidity pairs used for historical native-asset pricing.
const (
	// Uniswap v2 USDC/WETH pair; token0Price is ETH in USD.
	uniswapETHPairID = "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc"
	// PancakeSwap WBNB/BUSD pair; token1Price is BNB in USD.
	pancakeBNBPairID = "0x58f876857a02d6762e0101bb5c46a8c1ed44dc16"
)

// ChainConfig describes one supported chain: where to query it and how to
// read its price pair.
type ChainConfig struct {
	// Symbol of the chain's native fee-paying asset.
	Symbol string

	// RPCEndpoint is the JSON-RPC node URL.
	RPCEndpoint string

	// SubgraphEndpoint is the GraphQL URL of the DEX subgraph used for
	// historical spot prices.
	SubgraphEndpoint string

	// PairID is the liquidity pair queried for the native asset's USD
	// price.
	PairID string

	// PriceToken0 selects token0Price over token1Price, depending on the
	// pair's token ordering.
	PriceToken0 bool
}

// ChainsFromEnv builds the chain set from the environment, loading a .env
// file when one is present. A chain missing its RPC endpoint is omitted;
// referencing it later fails with ChainNotConfiguredError.
func ChainsFromEnv() (map[string]ChainConfig, error) {
	// A missing .env file is fine; the variables may come from the shell.
	_ = godotenv.Load()

	chains := make(map[string]ChainConfig)

	if rpc := os.Getenv("HTTP_PROVIDER_ETH"); rpc != "" {
		chains["ETH"] = ChainConfig{
			Symbol:           "ETH",
			RPCEndpoint:      rpc,
			SubgraphEndpoint: os.Getenv("UNISWAP_SUBGRAPH_HTTP_ENDPOINT"),
			PairID:           uniswapETHPairID,
			PriceToken0:      true,
		}
	}
	if rpc := os.Getenv("HTTP_PROVIDER_BSC"); rpc != "" {
		chains["BSC"] = ChainConfig{
			Symbol:           "BNB",
			RPCEndpoint:      rpc,
			SubgraphEndpoint: os.Getenv("PANCAKESWAP_SUBGRAPH_HTTP_ENDPOINT"),
			PairID:           pancakeBNBPairID,
			PriceToken0:      false,
		}
	}

	if len(chains) == 0 {
		return nil, fmt.Errorf("no RPC providers configured; set HTTP_PROVIDER_ETH and/or HTTP_PROVIDER_BSC")
	}
	return chains, nil
}
