package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"

	opencryptotax "github.com/ryley-o/OpenCryptoTax"
	"github.com/ryley-o/OpenCryptoTax/ledger"
	"github.com/ryley-o/OpenCryptoTax/oracle"
	"github.com/ryley-o/OpenCryptoTax/report"
	"github.com/ryley-o/OpenCryptoTax/row"
	"github.com/ryley-o/OpenCryptoTax/telemetry"
)

type ReportCmd struct {
	File   string `help:"Validated input file (from the validate command)." arg:"" type:"existingfile"`
	Output string `help:"Report output file." short:"o" default:"out.csv"`
	HTML   string `help:"Also write an HTML report to this path." optional:""`

	Chain         string  `help:"Chain assumed for fee transactions with no explicit chain." default:"ETH"`
	ShortTermRate float64 `help:"Estimated short-term capital gains tax rate." default:"0.22"`
	LongTermRate  float64 `help:"Estimated long-term capital gains tax rate." default:"0.15"`
	HoldingDays   int     `help:"Days held after which a disposal classifies as long-term (strict boundary)." default:"365"`
}

func (cmd *ReportCmd) Run(ctx *kong.Context, globals *Globals) error {
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
		rootTimer = c.Start(fmt.Sprintf("report %s", filepath.Base(cmd.File)))
		defer reportTelemetry()
	}

	books, err := cmd.runPipeline(runCtx, ctx)
	if err != nil {
		reportTelemetry()
		os.Exit(1)
	}

	records := report.Build(books)

	ok, err := confirmOverwrite(cmd.Output)
	if err != nil {
		return err
	}
	if !ok {
		printInfof(ctx.Stdout, "left %s untouched", cmd.Output)
		return nil
	}

	out, err := os.Create(cmd.Output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := report.WriteCSV(out, records); err != nil {
		return err
	}
	printSuccess(ctx.Stdout, fmt.Sprintf("capital gains report written: %s (%d actions)", cmd.Output, len(records)))

	if cmd.HTML != "" {
		htmlOut, err := os.Create(cmd.HTML)
		if err != nil {
			return err
		}
		defer htmlOut.Close()
		if err := report.WriteHTML(htmlOut, records); err != nil {
			return err
		}
		printSuccess(ctx.Stdout, fmt.Sprintf("html report written: %s", cmd.HTML))
	}

	return nil
}

// runPipeline normalizes the sheet, builds actions, and matches lots.
// Errors are rendered before returning.
func (cmd *ReportCmd) runPipeline(runCtx context.Context, ctx *kong.Context) (map[string]*ledger.AssetBook, error) {
	normalized, err := loadAndNormalize(runCtx, ctx, cmd.File, cmd.Chain)
	if err != nil {
		return nil, err
	}

	cfg := cmd.config()

	var o ledger.Oracle
	if needsOracle(normalized) {
		chains, err := oracle.ChainsFromEnv()
		if err != nil {
			printError(ctx.Stderr, err.Error())
			return nil, err
		}
		o = oracle.NewClient(chains)
	}

	books, err := opencryptotax.Process(runCtx, normalized, cfg, o)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return nil, err
	}
	return books, nil
}

func (cmd *ReportCmd) config() ledger.Config {
	cfg := ledger.DefaultConfig()
	cfg.ShortTermRate = decimal.NewFromFloat(cmd.ShortTermRate)
	cfg.LongTermRate = decimal.NewFromFloat(cmd.LongTermRate)
	cfg.LongTermHoldingDays = cmd.HoldingDays
	cfg.PrimaryChain = cmd.Chain
	return cfg
}

func needsOracle(rows []*row.NormalizedRow) bool {
	for _, r := range rows {
		if r.HasOnChainFee() {
			return true
		}
	}
	return false
}
