package ledger

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType is the economic classification of an action.
type ActionType string

const (
	ActionBuy    ActionType = "buy"
	ActionSell   ActionType = "sell"
	ActionFee    ActionType = "fee"
	ActionIncome ActionType = "income"
	ActionGift   ActionType = "gift"
)

// Direction is derived from the sign of the quantity change.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ActionID orders actions. Fee-derived actions render as "<parent>.1" so
// they sort adjacent to the action that paid the fee.
type ActionID struct {
	Seq    int
	FeeLeg bool
}

// FeeChild returns the id of the fee disposal materialized from this action.
func (id ActionID) FeeChild() ActionID {
	return ActionID{Seq: id.Seq, FeeLeg: true}
}

// Less orders ids with a fee leg directly after its parent.
func (id ActionID) Less(other ActionID) bool {
	if id.Seq != other.Seq {
		return id.Seq < other.Seq
	}
	return !id.FeeLeg && other.FeeLeg
}

func (id ActionID) String() string {
	if id.FeeLeg {
		return strconv.Itoa(id.Seq) + ".1"
	}
	return strconv.Itoa(id.Seq)
}

// ActionSpec holds the inputs to NewAction.
type ActionSpec struct {
	ID           ActionID
	Type         ActionType
	Date         time.Time
	Asset        string
	QtyChange    decimal.Decimal // signed; negative means disposal
	SpotPriceUSD decimal.Decimal
	FeeAsset     string
	FeeQty       decimal.Decimal
	FeeUSD       decimal.Decimal
	Receipts     string
	PurchaseInfo string
	Meta         string
}

// Action is one atomic economic event for a single asset. Derived pricing
// fields are computed once at construction and never change.
type Action struct {
	ActionSpec

	Direction Direction

	// Acquisitions: total basis including fees, and basis per unit.
	BasisTotalUSD decimal.Decimal
	BasisPrice    decimal.Decimal

	// Disposals: realized revenue net of fees, and net price per unit.
	RevenueUSD  decimal.Decimal
	ActualPrice decimal.Decimal

	// Set only for ordinary-income actions. Fees are not subtracted here;
	// they already contribute to the basis of the related acquisition and
	// subtracting them again would double-count the deduction.
	IncomeValue *decimal.Decimal
}

// NewAction constructs an Action and computes its derived fields. An action
// whose direction contradicts its classification (a positive-quantity sell,
// a negative-quantity income) is rejected outright.
func NewAction(spec ActionSpec) (*Action, error) {
	a := &Action{ActionSpec: spec, Direction: DirectionBuy}
	if spec.QtyChange.IsNegative() {
		a.Direction = DirectionSell
	}

	if a.Direction == DirectionBuy && spec.Type == ActionSell {
		return nil, &MisclassifiedActionError{ID: spec.ID, Type: spec.Type, QtyChange: spec.QtyChange}
	}
	if a.Direction == DirectionSell && spec.Type == ActionIncome {
		return nil, &MisclassifiedActionError{ID: spec.ID, Type: spec.Type, QtyChange: spec.QtyChange}
	}

	switch {
	case spec.QtyChange.IsZero():
		// Fee carriers and other zero-quantity records have no basis.
	case a.Direction == DirectionBuy:
		a.BasisTotalUSD = spec.SpotPriceUSD.Mul(spec.QtyChange).Add(spec.FeeUSD)
		a.BasisPrice = a.BasisTotalUSD.Div(spec.QtyChange)
	default:
		a.RevenueUSD = spec.SpotPriceUSD.Mul(spec.QtyChange).Sub(spec.FeeUSD)
		a.ActualPrice = a.RevenueUSD.Div(spec.QtyChange)
	}

	if spec.Type == ActionIncome {
		v := spec.SpotPriceUSD.Mul(spec.QtyChange)
		a.IncomeValue = &v
	}

	return a, nil
}
