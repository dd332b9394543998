// Package report renders the engine's output: the capital gains report
// (CSV and HTML, one row per action) and the net per-asset balances
// summary.
package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ryley-o/OpenCryptoTax/ledger"
)

// Columns of the gains report, one row per buy or sell action.
var Columns = []string{
	"ID", "Type", "Class", "Date", "Asset",
	"Qty Change", "Spot Price", "Fees Asset", "Fees Qty", "Fees USD",
	"Buy/Sell IDs ST", "Buy/Sell IDs LT",
	"Basis Amount ST", "Basis Cost ST", "Cap Gain ST", "Cap Gain Tax Est ST",
	"Basis Amount LT", "Basis Cost LT", "Cap Gain LT", "Cap Gain Tax Est LT",
	"Cap Gain TOT", "Cap Gain Tax Est TOT",
	"Income_non_business",
	"Receipts", "Purchase Info", "Metadata",
}

// Record is one report row.
type Record struct {
	ID    ledger.ActionID
	Date  time.Time
	Asset string
	Cells []string
}

// Build flattens the matched books into report records sorted by date.
func Build(books map[string]*ledger.AssetBook) []Record {
	var records []Record

	for asset, book := range books {
		for _, lot := range book.Lots {
			records = append(records, lotRecord(asset, lot))
		}
		for _, d := range book.Disposals {
			records = append(records, disposalRecord(asset, d))
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID.Less(records[j].ID)
	})
	return records
}

// WriteCSV writes the report with its header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.Cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func lotRecord(asset string, lot *ledger.Lot) Record {
	a := lot.Action
	cells := []string{
		a.ID.String(),
		string(a.Type),
		string(a.Direction),
		formatDate(lot.Date),
		asset,
		a.QtyChange.String(),
		a.SpotPriceUSD.String(),
		a.FeeAsset,
		a.FeeQty.String(),
		a.FeeUSD.String(),
		joinIDs(lot.SellIDsShortTerm),
		joinIDs(lot.SellIDsLongTerm),
		"", "", "", "",
		"", "", "", "",
		"", "",
		incomeCell(a),
		a.Receipts,
		a.PurchaseInfo,
		a.Meta,
	}
	return Record{ID: a.ID, Date: lot.Date, Asset: asset, Cells: cells}
}

func disposalRecord(asset string, d *ledger.Disposal) Record {
	a := d.Action
	cells := []string{
		a.ID.String(),
		string(a.Type),
		string(a.Direction),
		formatDate(d.Date),
		asset,
		a.QtyChange.String(),
		a.SpotPriceUSD.String(),
		a.FeeAsset,
		a.FeeQty.String(),
		a.FeeUSD.String(),
		joinIDs(d.BuyIDsShortTerm),
		joinIDs(d.BuyIDsLongTerm),
		d.BasisQtyShortTerm.String(),
		d.BasisCostShortTerm.String(),
		d.CapGainShortTerm.String(),
		d.TaxShortTerm.String(),
		d.BasisQtyLongTerm.String(),
		d.BasisCostLongTerm.String(),
		d.CapGainLongTerm.String(),
		d.TaxLongTerm.String(),
		d.CapGainTotal.String(),
		d.TaxTotal.String(),
		incomeCell(a),
		a.Receipts,
		a.PurchaseInfo,
		a.Meta,
	}
	return Record{ID: a.ID, Date: d.Date, Asset: asset, Cells: cells}
}

func incomeCell(a *ledger.Action) string {
	if a.IncomeValue == nil {
		return "-"
	}
	return a.IncomeValue.String()
}

func joinIDs(ids []ledger.ActionID) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ";")
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
