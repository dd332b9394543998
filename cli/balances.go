package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alecthomas/kong"

	"github.com/ryley-o/OpenCryptoTax/report"
	"github.com/ryley-o/OpenCryptoTax/telemetry"
)

type BalancesCmd struct {
	File   string `help:"Validated input file (from the validate command)." arg:"" type:"existingfile"`
	Output string `help:"Write the balances as CSV instead of printing a table." short:"o" optional:""`

	Chain         string  `help:"Chain assumed for fee transactions with no explicit chain." default:"ETH"`
	ShortTermRate float64 `help:"Estimated short-term capital gains tax rate." default:"0.22"`
	LongTermRate  float64 `help:"Estimated long-term capital gains tax rate." default:"0.15"`
	HoldingDays   int     `help:"Days held after which a disposal classifies as long-term (strict boundary)." default:"365"`
}

func (cmd *BalancesCmd) Run(ctx *kong.Context, globals *Globals) error {
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
		rootTimer = c.Start(fmt.Sprintf("balances %s", filepath.Base(cmd.File)))
		defer reportTelemetry()
	}

	// Balances need the matched books so materialized fee disposals are
	// counted; reuse the report pipeline without writing its outputs.
	pipeline := &ReportCmd{
		File:          cmd.File,
		Chain:         cmd.Chain,
		ShortTermRate: cmd.ShortTermRate,
		LongTermRate:  cmd.LongTermRate,
		HoldingDays:   cmd.HoldingDays,
	}
	books, err := pipeline.runPipeline(runCtx, ctx)
	if err != nil {
		reportTelemetry()
		os.Exit(1)
	}

	balances := report.Balances(books, pipeline.config().BalanceEpsilon)

	if cmd.Output != "" {
		out, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := report.WriteBalancesCSV(out, balances); err != nil {
			return err
		}
		printSuccess(ctx.Stdout, fmt.Sprintf("balances written: %s (%d assets)", cmd.Output, len(balances)))
		return nil
	}

	if len(balances) == 0 {
		printInfof(ctx.Stdout, "all balances are within epsilon of zero")
		return nil
	}
	report.WriteBalancesTable(ctx.Stdout, balances)
	return nil
}
