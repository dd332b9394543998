package row

import "fmt"

// Error types for row normalization failures. Every error carries the
// 1-based source line so the offending record can be located; all of them
// abort the batch. The only recoverable condition is a blank line, which is
// reported as a skip by the caller, not as an error.

// Error is implemented by all row normalization errors.
type Error interface {
	error
	RowLine() int
}

// MissingDateError is returned when a row has economic content but no
// parseable date.
type MissingDateError struct {
	Line int
	Raw  string // raw cell text, empty when the cell was blank
}

func (e *MissingDateError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("line %d: unparseable date %q", e.Line, e.Raw)
	}
	return fmt.Sprintf("line %d: missing date", e.Line)
}

func (e *MissingDateError) RowLine() int { return e.Line }

// NoEconomicContentError is returned when a dated row has no sell, no buy
// and no fee transaction.
type NoEconomicContentError struct {
	Line int
}

func (e *NoEconomicContentError) Error() string {
	return fmt.Sprintf("line %d: no buy, sell, or gas data", e.Line)
}

func (e *NoEconomicContentError) RowLine() int { return e.Line }

// InvalidFeeBookingError is returned when BookFeeWith holds a value outside
// {buy, sell, gas}, or "gas" while sell/buy data exists.
type InvalidFeeBookingError struct {
	Line  int
	Value string
}

func (e *InvalidFeeBookingError) Error() string {
	return fmt.Sprintf("line %d: invalid fee booking %q (must be buy, sell, or gas, and gas rows may not carry buy/sell data)", e.Line, e.Value)
}

func (e *InvalidFeeBookingError) RowLine() int { return e.Line }

// AmbiguousBookingError is returned when a row has neither side but is not a
// well-formed gas-only row.
type AmbiguousBookingError struct {
	Line int
}

func (e *AmbiguousBookingError) Error() string {
	return fmt.Sprintf("line %d: no buy/sell data and not a gas-only row (BookFeeWith=gas with a fee tx required)", e.Line)
}

func (e *AmbiguousBookingError) RowLine() int { return e.Line }

// SwapFeeBookingRequiredError is returned when a swap row does not state
// which side carries the fee.
type SwapFeeBookingRequiredError struct {
	Line int
}

func (e *SwapFeeBookingRequiredError) Error() string {
	return fmt.Sprintf("line %d: BookFeeWith must be defined for a swap", e.Line)
}

func (e *SwapFeeBookingRequiredError) RowLine() int { return e.Line }

// OverDefinedPriceError is returned when a side set to "equal" also carries
// an explicit spot price.
type OverDefinedPriceError struct {
	Line int
	Side string // "sell" or "buy"
}

func (e *OverDefinedPriceError) Error() string {
	return fmt.Sprintf("line %d: %s spot price over-defines the row (side is set to \"equal\")", e.Line, e.Side)
}

func (e *OverDefinedPriceError) RowLine() int { return e.Line }

// UndefinedPriceError is returned when a price cannot be derived: missing
// counterpart values, or a division by a zero or absent quantity.
type UndefinedPriceError struct {
	Line int
	Side string
}

func (e *UndefinedPriceError) Error() string {
	return fmt.Sprintf("line %d: %s price not fully defined", e.Line, e.Side)
}

func (e *UndefinedPriceError) RowLine() int { return e.Line }

// MixedFeeChainsError is returned when one row references fee transactions
// on more than one chain. The row must be split.
type MixedFeeChainsError struct {
	Line   int
	Chains []string
}

func (e *MixedFeeChainsError) Error() string {
	return fmt.Sprintf("line %d: fee transactions span multiple chains %v; split the row", e.Line, e.Chains)
}

func (e *MixedFeeChainsError) RowLine() int { return e.Line }

// MixedFeeCurrenciesError is returned when a row mixes on-chain fees, an
// auxiliary asset fee, or a direct USD fee.
type MixedFeeCurrenciesError struct {
	Line int
}

func (e *MixedFeeCurrenciesError) Error() string {
	return fmt.Sprintf("line %d: on-chain fee, aux asset fee, and USD fee are mutually exclusive", e.Line)
}

func (e *MixedFeeCurrenciesError) RowLine() int { return e.Line }

// InvalidNumberError is returned when a cell expected to hold a decimal
// cannot be parsed.
type InvalidNumberError struct {
	Line   int
	Column string
	Value  string
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("line %d: invalid number %q in column %s", e.Line, e.Value, e.Column)
}

func (e *InvalidNumberError) RowLine() int { return e.Line }
