package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func mustAction(t *testing.T, spec ActionSpec) *Action {
	t.Helper()
	a, err := NewAction(spec)
	assert.NoError(t, err)
	return a
}

func TestLedgerPut_RejectsDuplicateTimestamp(t *testing.T) {
	l := NewLedger()
	when := day(2021, 1, 1)

	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 1}, Type: ActionBuy, Date: when,
		Asset: "ETH", QtyChange: dec("1"), SpotPriceUSD: dec("2000"),
	})))

	err := l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 2}, Type: ActionBuy, Date: when,
		Asset: "ETH", QtyChange: dec("2"), SpotPriceUSD: dec("2100"),
	}))
	var dte *DuplicateTimestampError
	assert.True(t, errors.As(err, &dte))
	assert.Equal(t, "ETH", dte.Asset)

	// Same instant on a different asset is fine.
	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 3}, Type: ActionBuy, Date: when,
		Asset: "UNI", QtyChange: dec("10"), SpotPriceUSD: dec("20"),
	})))

	assert.Equal(t, []string{"ETH", "UNI"}, l.Assets())
}

func TestMaterializeFees(t *testing.T) {
	l := NewLedger()
	when := day(2021, 1, 1)

	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 1}, Type: ActionBuy, Date: when,
		Asset: "ETH", QtyChange: dec("1"), SpotPriceUSD: dec("2000"),
		FeeAsset: "ETH", FeeQty: dec("0.01"), FeeUSD: dec("20"),
		Receipts: "receipt-1",
	})))

	assert.NoError(t, l.MaterializeFees())

	actions := l.actionsInOrder("ETH")
	assert.Equal(t, 2, len(actions))

	fee := actions[1]
	assert.Equal(t, "1.1", fee.ID.String())
	assert.Equal(t, ActionFee, fee.Type)
	assert.Equal(t, when.Add(time.Second), fee.Date)
	assert.Equal(t, "-0.01", fee.QtyChange.String())
	assert.Equal(t, "2000", fee.SpotPriceUSD.String())
	assert.True(t, fee.FeeQty.IsZero())
	assert.Equal(t, "FEE PAYMENT", fee.Meta)
	assert.Equal(t, "receipt-1", fee.Receipts)
	// Revenue is undiminished: the fee leg pays no fee of its own.
	assert.Equal(t, "-20", fee.RevenueUSD.String())
}

func TestMaterializeFees_DifferentFeeAsset(t *testing.T) {
	l := NewLedger()

	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 1}, Type: ActionBuy, Date: day(2021, 1, 1),
		Asset: "UNI", QtyChange: dec("100"), SpotPriceUSD: dec("20"),
		FeeAsset: "ETH", FeeQty: dec("0.02"), FeeUSD: dec("40"),
	})))

	assert.NoError(t, l.MaterializeFees())

	assert.Equal(t, []string{"ETH", "UNI"}, l.Assets())
	eth := l.actionsInOrder("ETH")
	assert.Equal(t, 1, len(eth))
	assert.Equal(t, "-0.02", eth[0].QtyChange.String())
}

func TestMaterializeFees_TimestampCollision(t *testing.T) {
	l := NewLedger()
	when := day(2021, 1, 1)

	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 1}, Type: ActionBuy, Date: when,
		Asset: "ETH", QtyChange: dec("1"), SpotPriceUSD: dec("2000"),
		FeeAsset: "ETH", FeeQty: dec("0.01"), FeeUSD: dec("20"),
	})))
	// Occupies the +1s instant the fee disposal needs.
	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 2}, Type: ActionBuy, Date: when.Add(time.Second),
		Asset: "ETH", QtyChange: dec("1"), SpotPriceUSD: dec("2000"),
	})))

	err := l.MaterializeFees()
	var dte *DuplicateTimestampError
	assert.True(t, errors.As(err, &dte))
	assert.True(t, dte.FeeDerived)
}

func TestPartition(t *testing.T) {
	l := NewLedger()

	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 2}, Type: ActionSell, Date: day(2021, 3, 1),
		Asset: "ETH", QtyChange: dec("-1"), SpotPriceUSD: dec("2500"),
	})))
	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 1}, Type: ActionBuy, Date: day(2021, 1, 1),
		Asset: "ETH", QtyChange: dec("2"), SpotPriceUSD: dec("2000"),
	})))

	books := l.Partition()
	book := books["ETH"]
	assert.True(t, book != nil)
	assert.Equal(t, 1, len(book.Lots))
	assert.Equal(t, 1, len(book.Disposals))
	assert.Equal(t, "2", book.Lots[0].BasisRemaining.String())
	assert.Equal(t, "1", book.Disposals[0].QtyRemaining.String())
}

func TestPartition_ZeroQtyCarrierIsNeitherLotNorDisposal(t *testing.T) {
	l := NewLedger()

	assert.NoError(t, l.Put(mustAction(t, ActionSpec{
		ID: ActionID{Seq: 1}, Type: ActionFee, Date: day(2021, 1, 1),
		Asset: "ETH", QtyChange: decimal.Zero,
		FeeAsset: "ETH", FeeQty: dec("0.002"), FeeUSD: dec("4"),
	})))

	books := l.Partition()
	book := books["ETH"]
	// Direction of a zero quantity defaults to buy, so the carrier shows up
	// as a zero-basis lot that the matcher skips.
	assert.Equal(t, 1, len(book.Lots))
	assert.True(t, book.Lots[0].BasisRemaining.IsZero())
	assert.Equal(t, 0, len(book.Disposals))
}
