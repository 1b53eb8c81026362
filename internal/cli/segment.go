package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/edgarseg/internal/pipeline"
)

var (
	segmentForm  string
	segmentFiled string
	segmentJSON  string
	segmentMD    string
)

// segmentCmd represents the segment command
var segmentCmd = &cobra.Command{
	Use:   "segment <file>",
	Short: "Split a local filing document into items",
	Long: `Segment normalizes and segments an HTML or text filing already on disk.
Nothing is fetched. The filing date selects the 8-K numbering scheme: filings
before 2004-08-23 use the obsolete items 1-12.

Example:
  edgarseg segment aapl-20240201.htm --form 8-K --filed 2024-02-01
  edgarseg segment 10k.htm --form 10-K --json items.json --contents-only`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)

	segmentCmd.Flags().StringVar(&segmentForm, "form", "8-K", "form type (8-K, 10-K)")
	segmentCmd.Flags().StringVar(&segmentFiled, "filed", "", "filing date (YYYY-MM-DD, default: today)")
	segmentCmd.Flags().StringVar(&segmentJSON, "json", "", "output JSON path (default: stdout)")
	segmentCmd.Flags().StringVar(&segmentMD, "md", "", "output Markdown path (optional)")
	segmentCmd.Flags().BoolVar(&contentsOnly, "contents-only", false, "emit only the item key to text map")
	segmentCmd.Flags().IntVar(&maxItemChars, "max-item-chars", 0, "truncate item text beyond this many bytes (0 = unlimited)")
}

func runSegment(cmd *cobra.Command, args []string) error {
	path := args[0]

	filing, err := localFiling(segmentForm, segmentFiled)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-item-chars") {
		cfg.Segment.MaxItemChars = maxItemChars
	}

	p := pipeline.New(cfg, nil, log)
	result := p.ProcessDocument(filing, path, string(raw))

	return writeResult(cfg, result, segmentJSON, segmentMD)
}
