package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ryley-o/OpenCryptoTax/telemetry"
)

// Engine matches disposals to lots FIFO and computes per-disposal gains and
// estimated tax. Assets are independent of one another, so the per-asset
// passes run concurrently; results are deterministic regardless.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run materializes fee disposals, partitions the ledger, and matches every
// asset. On any failure the whole batch is rejected; no partial result is
// returned.
func (e *Engine) Run(ctx context.Context, l *Ledger) (map[string]*AssetBook, error) {
	collector := telemetry.FromContext(ctx)

	timer := collector.Start("materialize fees")
	if err := l.MaterializeFees(); err != nil {
		timer.End()
		return nil, err
	}
	timer.End()

	timer = collector.Start("partition")
	books := l.Partition()
	timer.End()

	timer = collector.Start("match lots")
	defer timer.End()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, book := range books {
		wg.Add(1)
		go func(book *AssetBook) {
			defer wg.Done()
			if err := e.matchAsset(book); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(book)
	}
	wg.Wait()

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, errors.Join(errs...)
	}
	return books, nil
}

// matchAsset walks one asset's disposals in chronological order, consuming
// lots oldest-first, then computes gains and estimated tax per disposal.
func (e *Engine) matchAsset(book *AssetBook) error {
	holding := e.cfg.HoldingPeriod()

	for _, disposal := range book.Disposals {
		for _, lot := range book.Lots {
			if disposal.QtyRemaining.IsZero() {
				break
			}
			if lot.BasisRemaining.IsZero() {
				continue
			}

			consumed := decimal.Min(lot.BasisRemaining, disposal.QtyRemaining)
			lot.BasisRemaining = lot.BasisRemaining.Sub(consumed)
			disposal.QtyRemaining = disposal.QtyRemaining.Sub(consumed)

			cost := lot.Action.BasisPrice.Mul(consumed)

			// Strict comparison: exactly the holding period elapsed is
			// still short-term.
			if lot.Date.Add(holding).Before(disposal.Date) {
				disposal.BasisQtyLongTerm = disposal.BasisQtyLongTerm.Add(consumed)
				disposal.BasisCostLongTerm = disposal.BasisCostLongTerm.Add(cost)
				disposal.BuyIDsLongTerm = append(disposal.BuyIDsLongTerm, lot.Action.ID)
				lot.SellIDsLongTerm = append(lot.SellIDsLongTerm, disposal.Action.ID)
			} else {
				disposal.BasisQtyShortTerm = disposal.BasisQtyShortTerm.Add(consumed)
				disposal.BasisCostShortTerm = disposal.BasisCostShortTerm.Add(cost)
				disposal.BuyIDsShortTerm = append(disposal.BuyIDsShortTerm, lot.Action.ID)
				lot.SellIDsShortTerm = append(lot.SellIDsShortTerm, disposal.Action.ID)
			}
		}

		if disposal.QtyRemaining.IsPositive() {
			return &InsufficientBasisError{
				Asset:      book.Asset,
				DisposalID: disposal.Action.ID,
				Remaining:  disposal.QtyRemaining,
			}
		}

		e.computeGains(disposal)
	}
	return nil
}

func (e *Engine) computeGains(d *Disposal) {
	actual := d.Action.ActualPrice

	d.CapGainShortTerm = actual.Mul(d.BasisQtyShortTerm).Sub(d.BasisCostShortTerm)
	d.CapGainLongTerm = actual.Mul(d.BasisQtyLongTerm).Sub(d.BasisCostLongTerm)
	d.CapGainTotal = d.CapGainShortTerm.Add(d.CapGainLongTerm)

	d.TaxShortTerm = d.CapGainShortTerm.Mul(e.cfg.ShortTermRate)
	d.TaxLongTerm = d.CapGainLongTerm.Mul(e.cfg.LongTermRate)
	d.TaxTotal = d.TaxShortTerm.Add(d.TaxLongTerm)
}
