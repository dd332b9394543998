// Package loader reads the input spreadsheet's fixed named-column schema
// into raw rows and writes the validated sheet back out. It is plain I/O;
// all derivation and validation lives in the row package.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ryley-o/OpenCryptoTax/row"
)

// Metadata columns carry their original spreadsheet headers.
const (
	colReceipts      = "Other Tx Receipts (fees not auto-calculated or included)"
	colPurchasedFrom = "Purchased From"
	colNotes         = "Other Notes"
)

// requiredColumns is the fixed schema shared by the raw and validated
// sheets, minus the metadata columns (which are optional on read).
func requiredColumns() []string {
	cols := []string{
		"Date",
		"SellAsset", "SellQty", "SellSpotPriceUSD", "SellTotalUSD",
		"BuyAsset", "BuyQty", "BuySpotPriceUSD", "BuyTotalUSD",
		"BookFeeWith",
	}
	for i := 1; i <= row.MaxFeeTxSlots; i++ {
		cols = append(cols,
			"FeeChain"+strconv.Itoa(i),
			"FeeTx"+strconv.Itoa(i),
			"FeeTx"+strconv.Itoa(i)+"GasAssetPriceOverride",
		)
	}
	cols = append(cols,
		"AuxFeeAsset", "AuxFeeQty", "AuxFeeSpotPrice",
		"AuxUSDFee",
		"IsGiftFromMe", "IsGiftToMe", "GiftBasis",
		"IsOrdinaryIncome", "IsBusinessIncome1", "IsBusinessIncome2",
	)
	return cols
}

// MissingColumnError is returned when the sheet lacks a schema column.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("input sheet is missing column %q", e.Column)
}

// ReadRows loads a spreadsheet file into raw rows.
func ReadRows(path string) ([]row.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRowsFrom(f)
}

// ReadRowsFrom loads raw rows from a reader. The first record is the
// header; data rows are numbered from 2 to match the spreadsheet.
func ReadRowsFrom(r io.Reader) ([]row.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, col := range requiredColumns() {
		if _, ok := index[col]; !ok {
			return nil, &MissingColumnError{Column: col}
		}
	}

	cell := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []row.RawRow
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		raw := row.RawRow{
			Line: line,

			Date: cell(record, "Date"),

			SellAsset:        cell(record, "SellAsset"),
			SellQty:          cell(record, "SellQty"),
			SellSpotPriceUSD: cell(record, "SellSpotPriceUSD"),
			SellTotalUSD:     cell(record, "SellTotalUSD"),

			BuyAsset:        cell(record, "BuyAsset"),
			BuyQty:          cell(record, "BuyQty"),
			BuySpotPriceUSD: cell(record, "BuySpotPriceUSD"),
			BuyTotalUSD:     cell(record, "BuyTotalUSD"),

			BookFeeWith: cell(record, "BookFeeWith"),

			AuxFeeAsset:     cell(record, "AuxFeeAsset"),
			AuxFeeQty:       cell(record, "AuxFeeQty"),
			AuxFeeSpotPrice: cell(record, "AuxFeeSpotPrice"),
			AuxUSDFee:       cell(record, "AuxUSDFee"),

			IsGiftFromMe: cell(record, "IsGiftFromMe"),
			IsGiftToMe:   cell(record, "IsGiftToMe"),
			GiftBasis:    cell(record, "GiftBasis"),

			IsOrdinaryIncome:  cell(record, "IsOrdinaryIncome"),
			IsBusinessIncome1: cell(record, "IsBusinessIncome1"),
			IsBusinessIncome2: cell(record, "IsBusinessIncome2"),

			Receipts:      cell(record, colReceipts),
			PurchasedFrom: cell(record, colPurchasedFrom),
			Notes:         cell(record, colNotes),
		}
		for i := 0; i < row.MaxFeeTxSlots; i++ {
			n := strconv.Itoa(i + 1)
			raw.FeeTxs[i] = row.RawFeeTx{
				Chain:                 cell(record, "FeeChain"+n),
				TxHash:                cell(record, "FeeTx"+n),
				GasAssetPriceOverride: cell(record, "FeeTx"+n+"GasAssetPriceOverride"),
			}
		}
		rows = append(rows, raw)
	}
	return rows, nil
}

// WriteValidated writes normalized rows back out in the schema's column
// order, every derivable field populated.
func WriteValidated(path string, rows []*row.NormalizedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteValidatedTo(f, rows)
}

// WriteValidatedTo writes the validated sheet to a writer.
func WriteValidatedTo(w io.Writer, rows []*row.NormalizedRow) error {
	cw := csv.NewWriter(w)

	header := requiredColumns()
	header = append(header, colReceipts, colPurchasedFrom, colNotes)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{r.Date.Format("2006-01-02 15:04:05")}
		record = append(record, sideCells(r.Sell)...)
		record = append(record, sideCells(r.Buy)...)
		record = append(record, string(r.BookFeeWith))

		for i := 0; i < row.MaxFeeTxSlots; i++ {
			if i < len(r.FeeTxs) {
				tx := r.FeeTxs[i]
				override := ""
				if tx.GasAssetPriceOverride != nil {
					override = tx.GasAssetPriceOverride.String()
				}
				record = append(record, tx.Chain, tx.TxHash, override)
			} else {
				record = append(record, "", "", "")
			}
		}

		if r.AuxFee != nil {
			record = append(record, r.AuxFee.Asset, r.AuxFee.Qty.String(), r.AuxFee.SpotPriceUSD.String())
		} else {
			record = append(record, "", "", "")
		}
		if r.AuxUSDFee != nil {
			record = append(record, r.AuxUSDFee.String())
		} else {
			record = append(record, "")
		}

		giftBasis := ""
		if r.GiftBasis != nil {
			giftBasis = r.GiftBasis.String()
		}
		record = append(record,
			boolCell(r.GiftFromMe), boolCell(r.GiftToMe), giftBasis,
			boolCell(r.OrdinaryIncome), boolCell(r.BusinessIncome1), boolCell(r.BusinessIncome2),
			r.Receipts, r.PurchasedFrom, r.Notes,
		)

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func sideCells(s *row.Side) []string {
	if s == nil {
		return []string{"", "", "", ""}
	}
	return []string{s.Asset, s.Qty.String(), s.SpotPriceUSD.String(), s.TotalUSD.String()}
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return ""
}
