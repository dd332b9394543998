package oracle

import "fmt"

// ChainNotConfiguredError is returned when a lookup references a chain with
// no configured endpoints.
type ChainNotConfiguredError struct {
	Chain string
}

func (e *ChainNotConfiguredError) Error() string {
	return fmt.Sprintf("chain %q is not configured (no RPC provider)", e.Chain)
}

// LookupError wraps a failed RPC or subgraph request with the reference
// being resolved.
type LookupError struct {
	Chain string
	Ref   string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("chain %s: lookup %s failed: %v", e.Chain, e.Ref, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// PriceUnavailableError is returned when the subgraph has no pair data at
// the requested block, typically because the block predates the pool. The
// row needs a gas-asset price override.
type PriceUnavailableError struct {
	Chain string
	Block uint64
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("chain %s: no spot price at block %d (pool may not exist yet); set a gas asset price override for this tx", e.Chain, e.Block)
}
