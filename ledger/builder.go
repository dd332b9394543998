package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ryley-o/OpenCryptoTax/row"
)

// Oracle resolves network fees for on-chain transactions. The production
// implementation lives in the oracle package; tests substitute their own.
type Oracle interface {
	// TransactionFee returns the fee paid by a transaction, in the
	// chain's native asset when convertToUSD is false and in USD when
	// it is true.
	TransactionFee(ctx context.Context, chain, txHash string, convertToUSD bool) (decimal.Decimal, error)
}

// Builder turns normalized rows into atomic actions, resolving on-chain
// fees through the oracle and booking them on the side the row names.
type Builder struct {
	cfg     Config
	oracle  Oracle
	nextSeq int
}

// NewBuilder creates a builder. The oracle may be nil when no row carries a
// fee transaction.
func NewBuilder(cfg Config, oracle Oracle) *Builder {
	return &Builder{cfg: cfg, oracle: oracle, nextSeq: 1}
}

// Build emits the actions for one normalized row: a sell leg, a buy leg, or
// both for a swap, or a single zero-quantity fee carrier for a gas-only
// row. The fee disposal itself is synthesized later by MaterializeFees.
func (b *Builder) Build(ctx context.Context, r *row.NormalizedRow) ([]*Action, error) {
	feeAsset, feeQty, feeUSD, err := b.resolveFee(ctx, r)
	if err != nil {
		return nil, err
	}

	if r.Shape() == row.ShapeGasOnly {
		carrier, err := NewAction(ActionSpec{
			ID:           b.nextID(),
			Type:         ActionFee,
			Date:         r.Date,
			Asset:        feeAsset,
			QtyChange:    decimal.Zero,
			SpotPriceUSD: decimal.Zero,
			FeeAsset:     feeAsset,
			FeeQty:       feeQty,
			FeeUSD:       feeUSD,
			Receipts:     r.Receipts,
			PurchaseInfo: r.PurchasedFrom,
			Meta:         r.Notes,
		})
		if err != nil {
			return nil, err
		}
		return []*Action{carrier}, nil
	}

	var actions []*Action

	if r.Sell != nil {
		spec := ActionSpec{
			ID:           b.nextID(),
			Type:         ActionSell,
			Date:         r.Date,
			Asset:        r.Sell.Asset,
			QtyChange:    r.Sell.Qty.Neg(),
			SpotPriceUSD: r.Sell.SpotPriceUSD,
			Receipts:     r.Receipts,
			PurchaseInfo: r.PurchasedFrom,
			Meta:         r.Notes,
		}
		if r.GiftFromMe {
			spec.Type = ActionGift
		}
		if r.BookFeeWith == row.BookFeeWithSell {
			spec.FeeAsset, spec.FeeQty, spec.FeeUSD = feeAsset, feeQty, feeUSD
		}
		a, err := NewAction(spec)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	if r.Buy != nil {
		spec := ActionSpec{
			ID:           b.nextID(),
			Type:         ActionBuy,
			Date:         r.Date,
			Asset:        r.Buy.Asset,
			QtyChange:    r.Buy.Qty,
			SpotPriceUSD: r.Buy.SpotPriceUSD,
			Receipts:     r.Receipts,
			PurchaseInfo: r.PurchasedFrom,
			Meta:         r.Notes,
		}
		switch {
		case r.OrdinaryIncome:
			spec.Type = ActionIncome
		case r.GiftToMe:
			spec.Type = ActionGift
			// A gifted acquisition may carry the giver's basis instead
			// of the spot value at receipt.
			if r.GiftBasis != nil && !r.Buy.Qty.IsZero() {
				spec.SpotPriceUSD = r.GiftBasis.Div(r.Buy.Qty)
			}
		}
		if r.BookFeeWith == row.BookFeeWithBuy {
			spec.FeeAsset, spec.FeeQty, spec.FeeUSD = feeAsset, feeQty, feeUSD
		}
		a, err := NewAction(spec)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, nil
}

// resolveFee reduces a row's fee declaration to a single (asset, qty, usd)
// triple. The normalizer guarantees at most one fee-bearing currency per
// row, so the three sources never mix.
func (b *Builder) resolveFee(ctx context.Context, r *row.NormalizedRow) (string, decimal.Decimal, decimal.Decimal, error) {
	switch {
	case r.HasOnChainFee():
		asset, ok := b.cfg.FeeAsset(r.FeeChain)
		if !ok {
			return "", decimal.Zero, decimal.Zero, &UnsupportedChainError{Line: r.Line, Chain: r.FeeChain}
		}
		qty, usd := decimal.Zero, decimal.Zero
		for _, tx := range r.FeeTxs {
			txQty, err := b.oracle.TransactionFee(ctx, tx.Chain, tx.TxHash, false)
			if err != nil {
				return "", decimal.Zero, decimal.Zero, err
			}
			var txUSD decimal.Decimal
			if tx.GasAssetPriceOverride != nil {
				txUSD = txQty.Mul(*tx.GasAssetPriceOverride)
			} else {
				txUSD, err = b.oracle.TransactionFee(ctx, tx.Chain, tx.TxHash, true)
				if err != nil {
					return "", decimal.Zero, decimal.Zero, err
				}
			}
			qty = qty.Add(txQty)
			usd = usd.Add(txUSD)
		}
		return asset, qty, usd, nil

	case r.AuxFee != nil:
		return r.AuxFee.Asset, r.AuxFee.Qty, r.AuxFee.Qty.Mul(r.AuxFee.SpotPriceUSD), nil

	case r.AuxUSDFee != nil:
		return "", decimal.Zero, *r.AuxUSDFee, nil
	}

	return "", decimal.Zero, decimal.Zero, nil
}

func (b *Builder) nextID() ActionID {
	id := ActionID{Seq: b.nextSeq}
	b.nextSeq++
	return id
}
