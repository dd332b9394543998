package row

import (
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestNormalize_BlankRowSkipped(t *testing.T) {
	n := NewNormalizer()

	normalized, err := n.Normalize(RawRow{Line: 2})
	assert.NoError(t, err)
	assert.Zero(t, normalized)
}

func TestNormalize_MinimumFields(t *testing.T) {
	n := NewNormalizer()

	t.Run("economic content without date fails", func(t *testing.T) {
		_, err := n.Normalize(RawRow{Line: 3, BuyAsset: "ETH", BuyQty: "1", BuySpotPriceUSD: "2000"})
		var mde *MissingDateError
		assert.True(t, errors.As(err, &mde))
		assert.Equal(t, 3, mde.Line)
	})

	t.Run("unparseable date fails", func(t *testing.T) {
		_, err := n.Normalize(RawRow{Line: 4, Date: "soonish", BuyAsset: "ETH", BuyQty: "1", BuySpotPriceUSD: "2000"})
		var mde *MissingDateError
		assert.True(t, errors.As(err, &mde))
		assert.Equal(t, "soonish", mde.Raw)
	})

	t.Run("dated row with no content fails", func(t *testing.T) {
		_, err := n.Normalize(RawRow{Line: 5, Date: "2021-01-01"})
		var nece *NoEconomicContentError
		assert.True(t, errors.As(err, &nece))
	})
}

func TestNormalize_FeeBooking(t *testing.T) {
	n := NewNormalizer()

	t.Run("unknown booking value fails", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "ETH", BuyQty: "1", BuySpotPriceUSD: "2000",
			BookFeeWith: "both",
		})
		var ifbe *InvalidFeeBookingError
		assert.True(t, errors.As(err, &ifbe))
		assert.Equal(t, "both", ifbe.Value)
	})

	t.Run("gas booking with sell data fails", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "ETH", SellQty: "1", SellSpotPriceUSD: "2000",
			BookFeeWith: "gas",
		})
		var ifbe *InvalidFeeBookingError
		assert.True(t, errors.As(err, &ifbe))
	})

	t.Run("no sides and no gas data fails", func(t *testing.T) {
		raw := RawRow{Line: 2, Date: "2021-01-01"}
		raw.FeeTxs[0].TxHash = "0xabc"
		// Fee tx present but booking is not gas.
		_, err := n.Normalize(raw)
		var abe *AmbiguousBookingError
		assert.True(t, errors.As(err, &abe))
	})

	t.Run("gas-only row is accepted", func(t *testing.T) {
		raw := RawRow{Line: 2, Date: "2021-01-01", BookFeeWith: "gas"}
		raw.FeeTxs[0].TxHash = "0xabc"
		normalized, err := n.Normalize(raw)
		assert.NoError(t, err)
		assert.Equal(t, ShapeGasOnly, normalized.Shape())
		assert.Equal(t, BookFeeWithGas, normalized.BookFeeWith)
	})

	t.Run("buy-only row forces booking to buy", func(t *testing.T) {
		normalized, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "ETH", BuyQty: "1", BuySpotPriceUSD: "2000",
			BookFeeWith: "sell",
		})
		assert.NoError(t, err)
		assert.Equal(t, BookFeeWithBuy, normalized.BookFeeWith)
		assert.Equal(t, ShapeBuyOnly, normalized.Shape())
	})

	t.Run("sell-only row forces booking to sell", func(t *testing.T) {
		normalized, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "ETH", SellQty: "1", SellSpotPriceUSD: "2000",
		})
		assert.NoError(t, err)
		assert.Equal(t, BookFeeWithSell, normalized.BookFeeWith)
		assert.Equal(t, ShapeSellOnly, normalized.Shape())
	})

	t.Run("swap requires explicit booking", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "ETH", SellQty: "1", SellSpotPriceUSD: "2000",
			BuyAsset: "UNI", BuyQty: "100", BuySpotPriceUSD: "20",
		})
		var sfbe *SwapFeeBookingRequiredError
		assert.True(t, errors.As(err, &sfbe))
	})
}

func TestNormalize_SwapPriceClosure(t *testing.T) {
	n := NewNormalizer()

	t.Run("equal on sell side derives both totals", func(t *testing.T) {
		normalized, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "FOO", SellQty: "4", SellTotalUSD: "equal",
			BuyAsset: "BAR", BuyQty: "10", BuySpotPriceUSD: "2",
			BookFeeWith: "sell",
		})
		assert.NoError(t, err)
		assert.Equal(t, "20", normalized.Buy.TotalUSD.String())
		assert.Equal(t, "20", normalized.Sell.TotalUSD.String())
		assert.Equal(t, "5", normalized.Sell.SpotPriceUSD.String())
	})

	t.Run("equal on buy side derives both totals", func(t *testing.T) {
		normalized, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "FOO", SellQty: "2", SellSpotPriceUSD: "50",
			BuyAsset: "BAR", BuyQty: "25", BuyTotalUSD: "equal",
			BookFeeWith: "buy",
		})
		assert.NoError(t, err)
		assert.Equal(t, "100", normalized.Sell.TotalUSD.String())
		assert.Equal(t, "100", normalized.Buy.TotalUSD.String())
		assert.Equal(t, "4", normalized.Buy.SpotPriceUSD.String())
	})

	t.Run("equal side with explicit spot price is over-defined", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 7, Date: "2021-01-01",
			SellAsset: "FOO", SellQty: "4", SellSpotPriceUSD: "9", SellTotalUSD: "equal",
			BuyAsset: "BAR", BuyQty: "10", BuySpotPriceUSD: "2",
			BookFeeWith: "sell",
		})
		var odpe *OverDefinedPriceError
		assert.True(t, errors.As(err, &odpe))
		assert.Equal(t, "sell", odpe.Side)
	})

	t.Run("equal on both sides is undefined", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "FOO", SellQty: "4", SellTotalUSD: "equal",
			BuyAsset: "BAR", BuyQty: "10", BuyTotalUSD: "equal",
			BookFeeWith: "sell",
		})
		var upe *UndefinedPriceError
		assert.True(t, errors.As(err, &upe))
	})

	t.Run("equal against a side with no price data is undefined", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "FOO", SellQty: "4", SellTotalUSD: "equal",
			BuyAsset: "BAR", BuyQty: "10",
			BookFeeWith: "sell",
		})
		var upe *UndefinedPriceError
		assert.True(t, errors.As(err, &upe))
		assert.Equal(t, "buy", upe.Side)
	})
}

func TestNormalize_PriceCompletion(t *testing.T) {
	n := NewNormalizer()

	t.Run("spot derived from total and qty", func(t *testing.T) {
		normalized, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "ETH", BuyQty: "2", BuyTotalUSD: "5000",
		})
		assert.NoError(t, err)
		assert.Equal(t, "2500", normalized.Buy.SpotPriceUSD.String())
	})

	t.Run("total derived from qty and spot", func(t *testing.T) {
		normalized, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			SellAsset: "ETH", SellQty: "2", SellSpotPriceUSD: "2500",
		})
		assert.NoError(t, err)
		assert.Equal(t, "5000", normalized.Sell.TotalUSD.String())
	})

	t.Run("zero qty cannot derive spot", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "ETH", BuyQty: "0", BuyTotalUSD: "5000",
		})
		var upe *UndefinedPriceError
		assert.True(t, errors.As(err, &upe))
	})

	t.Run("missing qty is undefined", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "ETH", BuyTotalUSD: "5000",
		})
		var upe *UndefinedPriceError
		assert.True(t, errors.As(err, &upe))
	})

	t.Run("garbage number is rejected with its column", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "ETH", BuyQty: "one", BuySpotPriceUSD: "2000",
		})
		var ine *InvalidNumberError
		assert.True(t, errors.As(err, &ine))
		assert.Equal(t, "buy qty", ine.Column)
	})
}

func TestNormalize_FeeFanOut(t *testing.T) {
	n := NewNormalizer()

	t.Run("blank chain defaults to primary", func(t *testing.T) {
		raw := RawRow{Line: 2, Date: "2021-01-01", BuyAsset: "UNI", BuyQty: "10", BuySpotPriceUSD: "20"}
		raw.FeeTxs[0].TxHash = "0xabc"
		raw.FeeTxs[3].TxHash = "0xdef"

		normalized, err := n.Normalize(raw)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(normalized.FeeTxs))
		assert.Equal(t, "ETH", normalized.FeeChain)
		assert.Equal(t, "ETH", normalized.FeeTxs[1].Chain)
	})

	t.Run("primary chain is configurable", func(t *testing.T) {
		bsc := NewNormalizer(WithPrimaryChain("BSC"))
		raw := RawRow{Line: 2, Date: "2021-01-01", BuyAsset: "CAKE", BuyQty: "10", BuySpotPriceUSD: "20"}
		raw.FeeTxs[0].TxHash = "0xabc"

		normalized, err := bsc.Normalize(raw)
		assert.NoError(t, err)
		assert.Equal(t, "BSC", normalized.FeeChain)
	})

	t.Run("mixed chains in one row must be split", func(t *testing.T) {
		raw := RawRow{Line: 9, Date: "2021-01-01", BuyAsset: "UNI", BuyQty: "10", BuySpotPriceUSD: "20"}
		raw.FeeTxs[0] = RawFeeTx{Chain: "ETH", TxHash: "0xabc"}
		raw.FeeTxs[1] = RawFeeTx{Chain: "BSC", TxHash: "0xdef"}

		_, err := n.Normalize(raw)
		var mfce *MixedFeeChainsError
		assert.True(t, errors.As(err, &mfce))
		assert.Equal(t, []string{"ETH", "BSC"}, mfce.Chains)
	})

	t.Run("price override is carried through", func(t *testing.T) {
		raw := RawRow{Line: 2, Date: "2021-01-01", BuyAsset: "UNI", BuyQty: "10", BuySpotPriceUSD: "20"}
		raw.FeeTxs[0] = RawFeeTx{TxHash: "0xabc", GasAssetPriceOverride: "1234.5"}

		normalized, err := n.Normalize(raw)
		assert.NoError(t, err)
		assert.Equal(t, "1234.5", normalized.FeeTxs[0].GasAssetPriceOverride.String())
	})
}

func TestNormalize_MixedFeeCurrencies(t *testing.T) {
	n := NewNormalizer()

	t.Run("on-chain fee and USD fee are exclusive", func(t *testing.T) {
		raw := RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "UNI", BuyQty: "10", BuySpotPriceUSD: "20",
			AuxUSDFee: "5",
		}
		raw.FeeTxs[0].TxHash = "0xabc"

		_, err := n.Normalize(raw)
		var mfce *MixedFeeCurrenciesError
		assert.True(t, errors.As(err, &mfce))
	})

	t.Run("aux asset fee and USD fee are exclusive", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "UNI", BuyQty: "10", BuySpotPriceUSD: "20",
			AuxFeeAsset: "ETH", AuxFeeQty: "0.01", AuxFeeSpotPrice: "2000",
			AuxUSDFee: "5",
		})
		var mfce *MixedFeeCurrenciesError
		assert.True(t, errors.As(err, &mfce))
	})

	t.Run("aux fee without qty or spot is undefined", func(t *testing.T) {
		_, err := n.Normalize(RawRow{
			Line: 2, Date: "2021-01-01",
			BuyAsset: "UNI", BuyQty: "10", BuySpotPriceUSD: "20",
			AuxFeeAsset: "ETH",
		})
		var upe *UndefinedPriceError
		assert.True(t, errors.As(err, &upe))
	})
}

func TestNormalize_FlagsAndMetadata(t *testing.T) {
	n := NewNormalizer()

	normalized, err := n.Normalize(RawRow{
		Line: 2, Date: "2021-06-15 09:30:00",
		BuyAsset: "ETH", BuyQty: "1", BuySpotPriceUSD: "2000",
		IsGiftToMe: "TRUE", GiftBasis: "1500",
		IsOrdinaryIncome: "x",
		Receipts:         "receipt-1",
		PurchasedFrom:    "dex",
		Notes:            "airdrop",
	})
	assert.NoError(t, err)
	assert.True(t, normalized.GiftToMe)
	assert.False(t, normalized.GiftFromMe)
	assert.True(t, normalized.OrdinaryIncome)
	assert.Equal(t, "1500", normalized.GiftBasis.String())
	assert.Equal(t, "receipt-1", normalized.Receipts)
	assert.Equal(t, time.Date(2021, 6, 15, 9, 30, 0, 0, time.UTC), normalized.Date)
}
