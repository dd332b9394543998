package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/ryley-o/OpenCryptoTax/ledger"
)

// Balance is one asset's net position: buys minus sells minus materialized
// fees.
type Balance struct {
	Asset string
	Net   decimal.Decimal
}

// Balances sums every action's quantity change per asset, suppressing
// assets whose net position is within epsilon of zero. Materialized fee
// disposals are counted like any other sell leg.
func Balances(books map[string]*ledger.AssetBook, epsilon decimal.Decimal) []Balance {
	var balances []Balance
	for asset, book := range books {
		net := decimal.Zero
		for _, lot := range book.Lots {
			net = net.Add(lot.Action.QtyChange)
		}
		for _, d := range book.Disposals {
			net = net.Add(d.Action.QtyChange)
		}
		if net.Abs().LessThanOrEqual(epsilon) {
			continue
		}
		balances = append(balances, Balance{Asset: asset, Net: net})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Asset < balances[j].Asset })
	return balances
}

// WriteBalancesCSV writes the balances summary as a flat table.
func WriteBalancesCSV(w io.Writer, balances []Balance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Asset", "Net Balance"}); err != nil {
		return err
	}
	for _, b := range balances {
		if err := cw.Write([]string{b.Asset, b.Net.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBalancesTable renders the balances as an aligned terminal table.
func WriteBalancesTable(w io.Writer, balances []Balance) {
	assetWidth := runewidth.StringWidth("Asset")
	netWidth := runewidth.StringWidth("Net Balance")
	for _, b := range balances {
		if width := runewidth.StringWidth(b.Asset); width > assetWidth {
			assetWidth = width
		}
		if width := runewidth.StringWidth(b.Net.String()); width > netWidth {
			netWidth = width
		}
	}

	fmt.Fprintf(w, "%s  %s\n",
		runewidth.FillRight("Asset", assetWidth),
		runewidth.FillLeft("Net Balance", netWidth),
	)
	for _, b := range balances {
		fmt.Fprintf(w, "%s  %s\n",
			runewidth.FillRight(b.Asset, assetWidth),
			runewidth.FillLeft(b.Net.String(), netWidth),
		)
	}
}
