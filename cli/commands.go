package cli

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Validate ValidateCmd `cmd:"" help:"Validate a ledger spreadsheet and generate the fully-populated input file."`
	Report   ReportCmd   `cmd:"" help:"Compute FIFO cost basis and capital gains, and write the report."`
	Balances BalancesCmd `cmd:"" help:"Print net per-asset balances."`
}
