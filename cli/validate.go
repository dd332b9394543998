package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alecthomas/kong"

	opencryptotax "github.com/ryley-o/OpenCryptoTax"
	"github.com/ryley-o/OpenCryptoTax/loader"
	"github.com/ryley-o/OpenCryptoTax/row"
	"github.com/ryley-o/OpenCryptoTax/telemetry"
)

type ValidateCmd struct {
	File   string `help:"Ledger spreadsheet to validate (CSV)." arg:"" type:"existingfile"`
	Output string `help:"Validated output file." short:"o" default:"input_valid.csv"`
	Chain  string `help:"Chain assumed for fee transactions with no explicit chain." default:"ETH"`
}

func (cmd *ValidateCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx := context.Background()

	var collector telemetry.Collector
	var rootTimer telemetry.Timer
	var once sync.Once

	reportTelemetry := func() {
		once.Do(func() {
			if collector != nil {
				rootTimer.End()
				_, _ = fmt.Fprintln(ctx.Stderr)
				collector.Report(ctx.Stderr)
			}
		})
	}

	if globals.Telemetry {
		c := telemetry.NewTimingCollector()
		collector = c
		runCtx = telemetry.WithCollector(runCtx, c)
		rootTimer = c.Start(fmt.Sprintf("validate %s", filepath.Base(cmd.File)))
		defer reportTelemetry()
	}

	normalized, err := loadAndNormalize(runCtx, ctx, cmd.File, cmd.Chain)
	if err != nil {
		reportTelemetry()
		os.Exit(1)
	}

	ok, err := confirmOverwrite(cmd.Output)
	if err != nil {
		return err
	}
	if !ok {
		printInfof(ctx.Stdout, "left %s untouched", cmd.Output)
		return nil
	}

	if err := loader.WriteValidated(cmd.Output, normalized); err != nil {
		return err
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("validated input file generated: %s (%d rows)", cmd.Output, len(normalized)))
	return nil
}

// loadAndNormalize reads a spreadsheet and normalizes every row, printing
// blank-line warnings and rendering validation errors. The returned error
// has already been reported to the user.
func loadAndNormalize(runCtx context.Context, ctx *kong.Context, file, chain string) ([]*row.NormalizedRow, error) {
	collector := telemetry.FromContext(runCtx)

	timer := collector.Start("load")
	rawRows, err := loader.ReadRows(file)
	timer.End()
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return nil, err
	}

	timer = collector.Start("normalize")
	normalized, skipped, err := opencryptotax.Normalize(rawRows, row.WithPrimaryChain(chain))
	timer.End()

	for _, line := range skipped {
		printWarningf(ctx.Stderr, "skipped empty line: %d", line)
	}

	if err != nil {
		var verrs *opencryptotax.ValidationErrors
		if stdErrors.As(err, &verrs) {
			for _, e := range verrs.Errors {
				printError(ctx.Stderr, fmt.Sprintf("%s: %s", file, e.Error()))
			}
			_, _ = fmt.Fprintln(ctx.Stderr)
			printError(ctx.Stderr, fmt.Sprintf("%d invalid rows", len(verrs.Errors)))
		} else {
			printError(ctx.Stderr, err.Error())
		}
		return nil, err
	}

	return normalized, nil
}
