// Package opencryptotax ties the pipeline together: spreadsheet rows are
// normalized into fully-priced records, expanded into atomic actions, and
// matched FIFO into short/long-term capital gains.
//
// Example usage:
//
//	rows, err := loader.ReadRows("input.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	normalized, skipped, err := opencryptotax.Normalize(rows)
//	if err != nil {
//	    // Handle per-row validation errors
//	    var verrs *opencryptotax.ValidationErrors
//	    if errors.As(err, &verrs) {
//	        for _, e := range verrs.Errors {
//	            fmt.Println(e)
//	        }
//	    }
//	}
//	_ = skipped // blank lines, reported as warnings
//
//	books, err := opencryptotax.Process(ctx, normalized, ledger.DefaultConfig(), oracleClient)
package opencryptotax

import (
	"context"
	"fmt"

	"github.com/ryley-o/OpenCryptoTax/ledger"
	"github.com/ryley-o/OpenCryptoTax/row"
	"github.com/ryley-o/OpenCryptoTax/telemetry"
)

// ValidationErrors aggregates every row that failed normalization. The
// batch produces no output when any row fails; collecting them all lets the
// user fix the sheet in one pass.
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors.
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

// Normalize runs every raw row through the normalizer. It returns the
// normalized rows, the line numbers of skipped blank rows, and an error
// aggregating every failed row.
func Normalize(rows []row.RawRow, opts ...row.Option) ([]*row.NormalizedRow, []int, error) {
	normalizer := row.NewNormalizer(opts...)

	var (
		normalized []*row.NormalizedRow
		skipped    []int
		errs       []error
	)
	for _, raw := range rows {
		n, err := normalizer.Normalize(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if n == nil {
			skipped = append(skipped, raw.Line)
			continue
		}
		normalized = append(normalized, n)
	}

	if len(errs) > 0 {
		return nil, skipped, &ValidationErrors{Errors: errs}
	}
	return normalized, skipped, nil
}

// Process expands normalized rows into actions and runs the matching
// engine. Any failure rejects the whole batch.
func Process(ctx context.Context, rows []*row.NormalizedRow, cfg ledger.Config, oracle ledger.Oracle) (map[string]*ledger.AssetBook, error) {
	collector := telemetry.FromContext(ctx)

	timer := collector.Start("build actions")
	builder := ledger.NewBuilder(cfg, oracle)
	l := ledger.NewLedger()
	for _, r := range rows {
		actions, err := builder.Build(ctx, r)
		if err != nil {
			timer.End()
			return nil, err
		}
		for _, a := range actions {
			if err := l.Put(a); err != nil {
				timer.End()
				return nil, err
			}
		}
	}
	timer.End()

	return ledger.NewEngine(cfg).Run(ctx, l)
}
