package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/WorstGen/land-marketplace/internal/adapter/archive"
	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print committed purchases, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the purchase log to a zstd-compressed archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load an archive into an empty purchase log",
	Long: `Load an archive written by "landd export" into the configured storage.
The archive is replayed against the market settings first; nothing is written
unless every purchase replays and the target log is empty.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(historyCmd, exportCmd, importCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of purchases to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, closeRepo, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tPLOT\tOWNER\tPRICE\tMETHOD\tPURCHASED\tPROOF")
	for _, p := range svc.History(ctx, historyLimit) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.PurchaseOrder, p.ID, domain.ShortenAddress(p.Owner), p.Price, p.PaymentMethod,
			p.PurchaseTimestamp.Format("2006-01-02 15:04:05"), p.PaymentProof)
	}

	view := svc.Ledger().Snapshot()
	fmt.Fprintf(tw, "\n%d purchases, current area %d at %s\n", view.TotalPurchases, view.CurrentAreaNumber, view.CurrentPrice)

	return tw.Flush()
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeRepo()

	n, err := archive.Export(ctx, repo, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Exported %d purchases to %s\n", n, args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeRepo()

	n, err := archive.Import(ctx, repo, ledgerConfig(cfg), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d purchases from %s\n", n, args[0])
	return nil
}
