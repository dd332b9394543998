package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Error types for ordering and basis failures. All of them are fatal for
// the batch: they reflect malformed input, never transient conditions.

// DuplicateTimestampError is returned when two actions for one asset share
// an instant. Unique per-asset timestamps are the mechanism that encodes
// FIFO order, so a collision cannot be resolved silently.
type DuplicateTimestampError struct {
	Asset string
	Date  time.Time
	// FeeDerived is set when the colliding timestamp is the +1-second
	// instant of a materialized fee disposal.
	FeeDerived bool
}

func (e *DuplicateTimestampError) Error() string {
	when := e.Date.Format("2006-01-02 15:04:05")
	if e.FeeDerived {
		return fmt.Sprintf("asset %s: duplicate timestamp %s for a fee disposal; at most one action with a fee may occupy a base second", e.Asset, when)
	}
	return fmt.Sprintf("asset %s: duplicate timestamp %s; remove the duplicate to preserve FIFO ordering", e.Asset, when)
}

// InsufficientBasisError is returned when a disposal exhausts every lot of
// its asset with quantity still unmatched: a sale was recorded without a
// matching prior acquisition.
type InsufficientBasisError struct {
	Asset      string
	DisposalID ActionID
	Remaining  decimal.Decimal
}

func (e *InsufficientBasisError) Error() string {
	return fmt.Sprintf("asset %s: disposal %s could not find enough buys to complete basis (%s unmatched)", e.Asset, e.DisposalID, e.Remaining)
}

// MisclassifiedActionError is returned at construction time when an
// action's direction contradicts its classification.
type MisclassifiedActionError struct {
	ID        ActionID
	Type      ActionType
	QtyChange decimal.Decimal
}

func (e *MisclassifiedActionError) Error() string {
	return fmt.Sprintf("action %s: type %s contradicts quantity change %s", e.ID, e.Type, e.QtyChange)
}

// UnsupportedChainError is returned when a row references a chain outside
// the configured set.
type UnsupportedChainError struct {
	Line  int
	Chain string
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("line %d: chain %q is not in the configured chain set", e.Line, e.Chain)
}
