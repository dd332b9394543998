// Package row models a single ledger line in its two lifecycle stages: the
// RawRow as loaded from the spreadsheet (every economic field an optional,
// untyped cell) and the NormalizedRow produced by the Normalizer (every
// derivable field populated, decimals parsed, booking resolved).
//
// A NormalizedRow is immutable once returned. Downstream code may assume one
// of a small number of concrete shapes (gas-only, buy-only, sell-only, swap)
// instead of re-checking nullability throughout.
package row

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxFeeTxSlots is the fixed number of fee-transaction columns per row.
const MaxFeeTxSlots = 14

// FeeBooking indicates which side of a row carries the network fee.
type FeeBooking string

const (
	BookFeeWithBuy  FeeBooking = "buy"
	BookFeeWithSell FeeBooking = "sell"
	BookFeeWithGas  FeeBooking = "gas"
)

// Shape classifies a normalized row into one of the concrete forms the
// action builder can handle without further nil checks.
type Shape int

const (
	ShapeGasOnly Shape = iota
	ShapeBuyOnly
	ShapeSellOnly
	ShapeSwap
)

func (s Shape) String() string {
	switch s {
	case ShapeGasOnly:
		return "gas-only"
	case ShapeBuyOnly:
		return "buy-only"
	case ShapeSellOnly:
		return "sell-only"
	case ShapeSwap:
		return "swap"
	}
	return "unknown"
}

// RawFeeTx is one unparsed fee-transaction slot.
type RawFeeTx struct {
	Chain                 string
	TxHash                string
	GasAssetPriceOverride string
}

// RawRow is one ledger line exactly as loaded from the spreadsheet. All
// values are raw cell text; empty string means the cell was blank. The
// sentinel "equal" may appear in a total-USD cell of a swap row, meaning
// "derive from the other side's total".
type RawRow struct {
	Line int // 1-based source line number

	Date string

	SellAsset        string
	SellQty          string
	SellSpotPriceUSD string
	SellTotalUSD     string

	BuyAsset        string
	BuyQty          string
	BuySpotPriceUSD string
	BuyTotalUSD     string

	BookFeeWith string
	FeeTxs      [MaxFeeTxSlots]RawFeeTx

	AuxFeeAsset     string
	AuxFeeQty       string
	AuxFeeSpotPrice string
	AuxUSDFee       string

	IsGiftFromMe string
	IsGiftToMe   string
	GiftBasis    string

	IsOrdinaryIncome  string
	IsBusinessIncome1 string
	IsBusinessIncome2 string

	Receipts      string
	PurchasedFrom string
	Notes         string
}

// Side is one fully-priced leg of a row (the sell leg or the buy leg).
type Side struct {
	Asset        string
	Qty          decimal.Decimal
	SpotPriceUSD decimal.Decimal
	TotalUSD     decimal.Decimal
}

// FeeTx is one resolved fee-transaction reference. All populated slots of a
// row share the same chain.
type FeeTx struct {
	Chain                 string
	TxHash                string
	GasAssetPriceOverride *decimal.Decimal
}

// AuxFee is a fee paid in a tracked asset outside of on-chain gas.
type AuxFee struct {
	Asset        string
	Qty          decimal.Decimal
	SpotPriceUSD decimal.Decimal
}

// NormalizedRow is the fully determined economic record for one ledger line.
// Every derivable price field has been populated and every invariant of the
// normalizer has been checked. Immutable after construction.
type NormalizedRow struct {
	Line int
	Date time.Time

	Sell *Side
	Buy  *Side

	BookFeeWith FeeBooking
	FeeTxs      []FeeTx
	FeeChain    string // chain shared by FeeTxs, empty when none

	AuxFee    *AuxFee
	AuxUSDFee *decimal.Decimal

	GiftFromMe bool
	GiftToMe   bool
	GiftBasis  *decimal.Decimal

	OrdinaryIncome  bool
	BusinessIncome1 bool
	BusinessIncome2 bool

	Receipts      string
	PurchasedFrom string
	Notes         string
}

// Shape returns the concrete form of the row.
func (r *NormalizedRow) Shape() Shape {
	switch {
	case r.Sell != nil && r.Buy != nil:
		return ShapeSwap
	case r.Sell != nil:
		return ShapeSellOnly
	case r.Buy != nil:
		return ShapeBuyOnly
	}
	return ShapeGasOnly
}

// HasOnChainFee reports whether the row references at least one fee
// transaction to be resolved through the oracle.
func (r *NormalizedRow) HasOnChainFee() bool {
	return len(r.FeeTxs) > 0
}
