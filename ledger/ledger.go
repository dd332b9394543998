package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger holds every action keyed by asset and timestamp. The timestamp key
// is what encodes FIFO order, so no two actions for one asset may share an
// instant; Put rejects collisions instead of resolving the tie.
type Ledger struct {
	assets map[string]map[int64]*Action
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{assets: make(map[string]map[int64]*Action)}
}

// Put inserts an action under its asset and date.
func (l *Ledger) Put(a *Action) error {
	byDate := l.assets[a.Asset]
	if byDate == nil {
		byDate = make(map[int64]*Action)
		l.assets[a.Asset] = byDate
	}
	key := a.Date.UnixNano()
	if _, exists := byDate[key]; exists {
		return &DuplicateTimestampError{Asset: a.Asset, Date: a.Date, FeeDerived: a.ID.FeeLeg}
	}
	byDate[key] = a
	return nil
}

// Assets returns the asset symbols present, sorted for deterministic walks.
func (l *Ledger) Assets() []string {
	assets := make([]string, 0, len(l.assets))
	for asset := range l.assets {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// actionsInOrder returns one asset's actions sorted by timestamp ascending.
func (l *Ledger) actionsInOrder(asset string) []*Action {
	byDate := l.assets[asset]
	keys := make([]int64, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	actions := make([]*Action, 0, len(keys))
	for _, k := range keys {
		actions = append(actions, byDate[k])
	}
	return actions
}

// MaterializeFees synthesizes a companion disposal for every action that
// paid a fee in a tracked asset: a sale of the fee asset one second after
// the paying action, priced at feeUSD/feeQty, carrying no fee of its own.
func (l *Ledger) MaterializeFees() error {
	for _, asset := range l.Assets() {
		// Snapshot before inserting; a fee paid in the same asset adds
		// entries to the map being walked.
		for _, action := range l.actionsInOrder(asset) {
			if action.ID.FeeLeg || !action.FeeQty.IsPositive() {
				continue
			}
			fee, err := NewAction(ActionSpec{
				ID:           action.ID.FeeChild(),
				Type:         ActionFee,
				Date:         action.Date.Add(time.Second),
				Asset:        action.FeeAsset,
				QtyChange:    action.FeeQty.Neg(),
				SpotPriceUSD: action.FeeUSD.Div(action.FeeQty),
				Receipts:     action.Receipts,
				PurchaseInfo: action.PurchaseInfo,
				Meta:         "FEE PAYMENT",
			})
			if err != nil {
				return err
			}
			if err := l.Put(fee); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lot wraps a buy action with its remaining unconsumed quantity. Created
// once at partition time, mutated only by the matching pass, read-only
// afterwards.
type Lot struct {
	Action *Action
	Date   time.Time

	// BasisRemaining only ever decreases.
	BasisRemaining decimal.Decimal

	SellIDsShortTerm []ActionID
	SellIDsLongTerm  []ActionID
}

// Disposal wraps a sell action with its matching state and gain results.
// Terminal once QtyRemaining reaches zero.
type Disposal struct {
	Action *Action
	Date   time.Time

	QtyRemaining decimal.Decimal

	BasisQtyShortTerm  decimal.Decimal
	BasisCostShortTerm decimal.Decimal
	BasisQtyLongTerm   decimal.Decimal
	BasisCostLongTerm  decimal.Decimal

	BuyIDsShortTerm []ActionID
	BuyIDsLongTerm  []ActionID

	CapGainShortTerm decimal.Decimal
	CapGainLongTerm  decimal.Decimal
	CapGainTotal     decimal.Decimal

	TaxShortTerm decimal.Decimal
	TaxLongTerm  decimal.Decimal
	TaxTotal     decimal.Decimal
}

// AssetBook is one asset's ordered lots and disposals, owned exclusively by
// the matching pass for that asset.
type AssetBook struct {
	Asset     string
	Lots      []*Lot
	Disposals []*Disposal
}

// Partition splits every asset's time-ordered actions into lots (buys) and
// disposals (sells), preserving relative order. Call after MaterializeFees
// so the synthesized fee disposals participate.
func (l *Ledger) Partition() map[string]*AssetBook {
	books := make(map[string]*AssetBook, len(l.assets))
	for _, asset := range l.Assets() {
		book := &AssetBook{Asset: asset}
		for _, action := range l.actionsInOrder(asset) {
			switch action.Direction {
			case DirectionBuy:
				book.Lots = append(book.Lots, &Lot{
					Action:         action,
					Date:           action.Date,
					BasisRemaining: action.QtyChange,
				})
			case DirectionSell:
				book.Disposals = append(book.Disposals, &Disposal{
					Action:       action,
					Date:         action.Date,
					QtyRemaining: action.QtyChange.Neg(),
				})
			}
		}
		books[asset] = book
	}
	return books
}
