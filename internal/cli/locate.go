package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/edgarseg/internal/pipeline"
)

var (
	locateFlags   filingFlags
	locateTimeout time.Duration
)

// locateCmd represents the locate command
var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Resolve the narrative document of a filing",
	Long: `Locate fetches a filing's index page and picks the document whose type
matches the filing's form type, preferring HTML. Inline viewer links are
unwrapped to the raw archive path. If the index page gives no match, the
reported primary document URL is used.

Example:
  edgarseg locate --cik 320193 --accession 0000320193-24-000010 --form 8-K --filed 2024-02-01`,
	Args: cobra.NoArgs,
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateFlags.register(locateCmd)
	locateCmd.Flags().DurationVar(&locateTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func runLocate(cmd *cobra.Command, args []string) error {
	filing, err := locateFlags.filing()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), locateTimeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg, log)
	loc := p.Locator().Locate(ctx, filing)

	fmt.Printf("Index:    %s\n", loc.IndexURL)
	fmt.Printf("Document: %s\n", loc.DocumentURL)
	if loc.Fallback {
		fmt.Fprintf(os.Stderr, "Fallback: %s\n", loc.Reason)
	}
	for _, ex := range loc.Exhibits {
		fmt.Printf("Exhibit:  %-8s %s\n", ex.Type, ex.URL)
	}

	return nil
}
