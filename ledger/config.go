// Package ledger implements the economic core: atomic buy/sell Actions, the
// per-asset time-ordered ledger, fee materialization, FIFO lot matching, and
// short/long-term capital gain computation.
//
// All quantities and USD values use decimal arithmetic to avoid floating
// point drift across long basis chains.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config carries every tunable of the engine and the action builder. It is
// passed in explicitly at construction time; extending to a new chain or
// jurisdiction is a configuration change, not a code change.
type Config struct {
	// Estimated tax rates. User-supplied estimates, never derived from
	// real tax brackets.
	ShortTermRate decimal.Decimal
	LongTermRate  decimal.Decimal

	// LongTermHoldingDays is the holding period after which a consumed
	// slice classifies as long-term. The comparison is strict: exactly
	// this many days elapsed is still short-term.
	LongTermHoldingDays int

	// PrimaryChain is assumed for fee transactions with no explicit chain.
	PrimaryChain string

	// FeeAssets maps chain identifier to the symbol of its native
	// fee-paying asset. This is the closed set of supported chains.
	FeeAssets map[string]string

	// BalanceEpsilon suppresses assets whose net balance rounds to zero
	// in the balances summary.
	BalanceEpsilon decimal.Decimal
}

// DefaultConfig returns the stock configuration: 22% short-term / 15%
// long-term estimates, a strict 365-day boundary, and ETH as the primary
// chain with BSC supported alongside.
func DefaultConfig() Config {
	return Config{
		ShortTermRate:       decimal.NewFromFloat(0.22),
		LongTermRate:        decimal.NewFromFloat(0.15),
		LongTermHoldingDays: 365,
		PrimaryChain:        "ETH",
		FeeAssets: map[string]string{
			"ETH": "ETH",
			"BSC": "BNB",
		},
		BalanceEpsilon: decimal.New(1, -9),
	}
}

// HoldingPeriod returns the long-term boundary as a duration.
func (c Config) HoldingPeriod() time.Duration {
	return time.Duration(c.LongTermHoldingDays) * 24 * time.Hour
}

// FeeAsset returns the native fee-paying asset for a chain.
func (c Config) FeeAsset(chain string) (string, bool) {
	sym, ok := c.FeeAssets[chain]
	return sym, ok
}
