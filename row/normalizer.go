package row

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultChain is the chain assumed for fee-transaction slots that do not
// name one.
const DefaultChain = "ETH"

// The sentinel accepted in a total-USD cell of a swap row.
const equalSentinel = "equal"

// Accepted date layouts, tried in order. Layouts without a zone parse as UTC
// so that rows from different sheets order consistently.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Normalizer turns RawRows into NormalizedRows. It holds only configuration
// and never mutates external state; a failed Normalize leaves nothing behind.
type Normalizer struct {
	primaryChain string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithPrimaryChain overrides the chain assumed for fee-transaction slots
// that leave the chain column blank.
func WithPrimaryChain(chain string) Option {
	return func(n *Normalizer) {
		n.primaryChain = chain
	}
}

// NewNormalizer creates a Normalizer with the given options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{primaryChain: DefaultChain}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize produces exactly one NormalizedRow from a RawRow, or fails with
// a descriptive validation error. A blank line (no date, no sides, no fee
// transaction) returns (nil, nil); the caller decides how to report the skip.
func (n *Normalizer) Normalize(raw RawRow) (*NormalizedRow, error) {
	date := strings.TrimSpace(raw.Date)
	sellAsset := strings.TrimSpace(raw.SellAsset)
	buyAsset := strings.TrimSpace(raw.BuyAsset)
	hasFeeTx := false
	for _, slot := range raw.FeeTxs {
		if strings.TrimSpace(slot.TxHash) != "" {
			hasFeeTx = true
			break
		}
	}

	// Nothing happened on this line.
	if date == "" && sellAsset == "" && buyAsset == "" && !hasFeeTx {
		return nil, nil
	}

	if date == "" {
		return nil, &MissingDateError{Line: raw.Line}
	}
	parsedDate, ok := parseDate(date)
	if !ok {
		return nil, &MissingDateError{Line: raw.Line, Raw: date}
	}

	if sellAsset == "" && buyAsset == "" && !hasFeeTx {
		return nil, &NoEconomicContentError{Line: raw.Line}
	}

	// Fee booking must be one of the closed set, and "gas" excludes both
	// sides.
	booking := FeeBooking(strings.TrimSpace(raw.BookFeeWith))
	switch booking {
	case "", BookFeeWithBuy, BookFeeWithSell:
	case BookFeeWithGas:
		if sellAsset != "" || buyAsset != "" {
			return nil, &InvalidFeeBookingError{Line: raw.Line, Value: string(booking)}
		}
	default:
		return nil, &InvalidFeeBookingError{Line: raw.Line, Value: string(booking)}
	}

	switch {
	case sellAsset == "" && buyAsset == "":
		// Must be a well-formed gas-only row.
		if booking != BookFeeWithGas || !hasFeeTx {
			return nil, &AmbiguousBookingError{Line: raw.Line}
		}
	case sellAsset == "" && buyAsset != "":
		booking = BookFeeWithBuy
	case sellAsset != "" && buyAsset == "":
		booking = BookFeeWithSell
	default:
		// Swap. The user must state which side carries the fee.
		if booking != BookFeeWithBuy && booking != BookFeeWithSell {
			return nil, &SwapFeeBookingRequiredError{Line: raw.Line}
		}
	}

	sell, err := parseSide(raw.Line, "sell", sellAsset, raw.SellQty, raw.SellSpotPriceUSD, raw.SellTotalUSD)
	if err != nil {
		return nil, err
	}
	buy, err := parseSide(raw.Line, "buy", buyAsset, raw.BuyQty, raw.BuySpotPriceUSD, raw.BuyTotalUSD)
	if err != nil {
		return nil, err
	}

	if sell != nil && buy != nil {
		if err := resolveSwap(raw.Line, sell, buy); err != nil {
			return nil, err
		}
	}
	if err := completeSide(raw.Line, sell); err != nil {
		return nil, err
	}
	if err := completeSide(raw.Line, buy); err != nil {
		return nil, err
	}

	feeTxs, feeChain, err := n.fanOutFeeTxs(raw)
	if err != nil {
		return nil, err
	}

	auxFee, err := parseAuxFee(raw)
	if err != nil {
		return nil, err
	}
	auxUSDFee, err := parseOptionalDecimal(raw.Line, "AuxUSDFee", raw.AuxUSDFee)
	if err != nil {
		return nil, err
	}

	// At most one fee-bearing currency per row.
	feeKinds := 0
	if len(feeTxs) > 0 {
		feeKinds++
	}
	if auxFee != nil {
		feeKinds++
	}
	if auxUSDFee != nil {
		feeKinds++
	}
	if feeKinds > 1 {
		return nil, &MixedFeeCurrenciesError{Line: raw.Line}
	}

	giftBasis, err := parseOptionalDecimal(raw.Line, "GiftBasis", raw.GiftBasis)
	if err != nil {
		return nil, err
	}

	return &NormalizedRow{
		Line:            raw.Line,
		Date:            parsedDate,
		Sell:            sideOf(sell),
		Buy:             sideOf(buy),
		BookFeeWith:     booking,
		FeeTxs:          feeTxs,
		FeeChain:        feeChain,
		AuxFee:          auxFee,
		AuxUSDFee:       auxUSDFee,
		GiftFromMe:      parseBool(raw.IsGiftFromMe),
		GiftToMe:        parseBool(raw.IsGiftToMe),
		GiftBasis:       giftBasis,
		OrdinaryIncome:  parseBool(raw.IsOrdinaryIncome),
		BusinessIncome1: parseBool(raw.IsBusinessIncome1),
		BusinessIncome2: parseBool(raw.IsBusinessIncome2),
		Receipts:        strings.TrimSpace(raw.Receipts),
		PurchasedFrom:   strings.TrimSpace(raw.PurchasedFrom),
		Notes:           strings.TrimSpace(raw.Notes),
	}, nil
}

// sideCells holds one side of a row mid-derivation.
type sideCells struct {
	name  string
	asset string
	qty   *decimal.Decimal
	spot  *decimal.Decimal
	total *decimal.Decimal
	equal bool
}

func parseSide(line int, name, asset, qty, spot, total string) (*sideCells, error) {
	if asset == "" {
		return nil, nil
	}
	s := &sideCells{name: name, asset: asset}

	var err error
	if s.qty, err = parseOptionalDecimal(line, name+" qty", qty); err != nil {
		return nil, err
	}
	if s.spot, err = parseOptionalDecimal(line, name+" spot price", spot); err != nil {
		return nil, err
	}
	total = strings.TrimSpace(total)
	if total == equalSentinel {
		s.equal = true
	} else if s.total, err = parseOptionalDecimal(line, name+" total", total); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveSwap applies the "equal" sentinel: the marked side's total becomes
// the other side's total, computed from qty×spot when absent. A side marked
// "equal" must not also carry a spot price.
func resolveSwap(line int, sell, buy *sideCells) error {
	if sell.equal && buy.equal {
		// Mutually defined; neither side pins a value.
		return &UndefinedPriceError{Line: line, Side: "swap"}
	}

	donor, taker := buy, sell
	if buy.equal {
		donor, taker = sell, buy
	}
	if !taker.equal {
		return nil
	}

	if taker.spot != nil {
		return &OverDefinedPriceError{Line: line, Side: taker.name}
	}
	if donor.total == nil {
		if donor.qty == nil || donor.spot == nil {
			return &UndefinedPriceError{Line: line, Side: donor.name}
		}
		t := donor.qty.Mul(*donor.spot)
		donor.total = &t
	}
	total := *donor.total
	taker.total = &total
	return nil
}

// completeSide fills in whichever of total/spot is still missing. Division
// by a zero or absent quantity is an undefined price.
func completeSide(line int, s *sideCells) error {
	if s == nil {
		return nil
	}
	if s.qty == nil {
		return &UndefinedPriceError{Line: line, Side: s.name}
	}
	if s.total == nil {
		if s.spot == nil {
			return &UndefinedPriceError{Line: line, Side: s.name}
		}
		t := s.qty.Mul(*s.spot)
		s.total = &t
	}
	if s.spot == nil {
		if s.qty.IsZero() {
			return &UndefinedPriceError{Line: line, Side: s.name}
		}
		p := s.total.Div(*s.qty)
		s.spot = &p
	}
	return nil
}

func sideOf(s *sideCells) *Side {
	if s == nil {
		return nil
	}
	return &Side{
		Asset:        s.asset,
		Qty:          *s.qty,
		SpotPriceUSD: *s.spot,
		TotalUSD:     *s.total,
	}
}

// fanOutFeeTxs resolves the fee-transaction slots: defaulting blank chains
// to the primary chain and rejecting rows whose slots span chains.
func (n *Normalizer) fanOutFeeTxs(raw RawRow) ([]FeeTx, string, error) {
	var feeTxs []FeeTx
	var chains []string
	seen := map[string]bool{}

	for i, slot := range raw.FeeTxs {
		tx := strings.TrimSpace(slot.TxHash)
		if tx == "" {
			continue
		}
		chain := strings.TrimSpace(slot.Chain)
		if chain == "" {
			chain = n.primaryChain
		}
		if !seen[chain] {
			seen[chain] = true
			chains = append(chains, chain)
		}
		override, err := parseOptionalDecimal(raw.Line, feeOverrideColumn(i), slot.GasAssetPriceOverride)
		if err != nil {
			return nil, "", err
		}
		feeTxs = append(feeTxs, FeeTx{Chain: chain, TxHash: tx, GasAssetPriceOverride: override})
	}

	if len(chains) > 1 {
		return nil, "", &MixedFeeChainsError{Line: raw.Line, Chains: chains}
	}
	if len(feeTxs) == 0 {
		return nil, "", nil
	}
	return feeTxs, chains[0], nil
}

func parseAuxFee(raw RawRow) (*AuxFee, error) {
	asset := strings.TrimSpace(raw.AuxFeeAsset)
	if asset == "" {
		return nil, nil
	}
	qty, err := parseOptionalDecimal(raw.Line, "AuxFeeQty", raw.AuxFeeQty)
	if err != nil {
		return nil, err
	}
	spot, err := parseOptionalDecimal(raw.Line, "AuxFeeSpotPrice", raw.AuxFeeSpotPrice)
	if err != nil {
		return nil, err
	}
	if qty == nil || spot == nil {
		return nil, &UndefinedPriceError{Line: raw.Line, Side: "aux fee"}
	}
	return &AuxFee{Asset: asset, Qty: *qty, SpotPriceUSD: *spot}, nil
}

func parseOptionalDecimal(line int, column, value string) (*decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	// Spreadsheets often export thousands separators.
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return nil, &InvalidNumberError{Line: line, Column: column, Value: value}
	}
	return &d, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "x", "1":
		return true
	}
	return false
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func feeOverrideColumn(slot int) string {
	return "FeeTx" + strconv.Itoa(slot+1) + "GasAssetPriceOverride"
}
