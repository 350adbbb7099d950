package cmd

import (
	"fmt"

	"github.com/jjenkins/althingi/internal/service"
	"github.com/spf13/cobra"
)

var (
	importSession    int
	importForce      bool
	importLegislator int
	importBill       int
	importClear      bool
	importStrategy   string
	importDryRun     bool
)

var importCmd = &cobra.Command{
	Use:   "import <stage|all>...",
	Short: "Import Althingi data into the database",
	Long: `Import fetches the Althingi XML feeds and reconciles them into PostgreSQL.

Stages run in dependency order whatever order they are given in:
sessions, parties, legislators, bills, votes, speeches, topics, interests.
"all" selects every stage except interests.

Examples:
  # Import everything for the active session
  ./althingi import all

  # Re-import the votes of one bill of session 156
  ./althingi import votes --session 156 --bill 12 --force

  # Classify bills using the official subject categories
  ./althingi import topics --strategy official --clear

  # Try a run without touching the database
  ./althingi import parties legislators bills --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().IntVarP(&importSession, "session", "s", 0, "Session number (default: the active session)")
	importCmd.Flags().BoolVarP(&importForce, "force", "f", false, "Re-import votes even when the latest voting is stored")
	importCmd.Flags().IntVar(&importLegislator, "legislator", 0, "Only process the legislator with this Althingi id")
	importCmd.Flags().IntVar(&importBill, "bill", 0, "Only process the bill with this number")
	importCmd.Flags().BoolVar(&importClear, "clear", false, "Clear topic assignments before classifying")
	importCmd.Flags().StringVar(&importStrategy, "strategy", "", "Topic strategy: keyword or official (default from config)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Use an in-memory store instead of the database")
}

func runImport(cmd *cobra.Command, args []string) error {
	kinds, err := service.ParseStages(args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, importDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := service.ImportOptions{
		Force:        importForce,
		LegislatorID: importLegislator,
		BillNumber:   importBill,
		ClearTopics:  importClear,
		Strategy:     importStrategy,
	}

	results, err := a.pipeline.Run(ctx, importSession, kinds, opts)
	if len(results) > 0 {
		fmt.Println(renderRunStats(results))
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		failed += r.Failed
	}
	if failed > 0 {
		return fmt.Errorf("import finished with %d failed records", failed)
	}
	return nil
}
