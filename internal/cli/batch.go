package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/edgarseg/internal/pipeline"
	"github.com/ppiankov/edgarseg/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	writeMD      bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract many filings from a list in parallel",
	Long: `Batch processes a list of filings concurrently:
- Read filing records from a YAML or JSON file
- Process filings in parallel with a configurable worker count
- All workers share one rate budget toward the archive
- Write one report per filing; a failed filing never stops the others

Input records carry cik, accession_number, form_type, filed_at and optionally
primary_document_url.

Example:
  edgarseg batch filings.yaml
  edgarseg batch filings.json --concurrency 8 --output-dir ./items
  edgarseg batch filings.yaml --timeout 30m --md`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./edgarseg-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&writeMD, "md", false, "also write a Markdown report per filing")

	registerFetchFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  edgarseg Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Rate limit:   %.1f req/s\n", cfg.RateLimiting.RequestsPerSecond)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// One pipeline, one fetcher, one rate budget for every worker
	p := pipeline.NewPipeline(cfg, log)
	renderer := pipeline.NewRenderer(cfg.Output.IncludeOffsets)

	successCount := 0
	failureCount := 0

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, log)
	processor.OnResult = func(outcome *worker.FilingOutcome) {
		if outcome.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", outcome.Filing, outcome.Error)
			return
		}

		slug := reportName(outcome.Filing)
		jsonPath := filepath.Join(outputDir, slug+".json")
		if err := renderer.RenderJSON(outcome.Result, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", outcome.Filing, err)
			return
		}
		if writeMD {
			mdPath := filepath.Join(outputDir, slug+".md")
			if err := renderer.RenderMarkdown(outcome.Result, mdPath); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", outcome.Filing, err)
				return
			}
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d items)\n", outcome.Filing, len(outcome.Result.Items))
	}

	fmt.Fprintf(os.Stderr, "⚙️  Reading filings from file...\n")
	outcomes, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d filings\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d filings failed", failureCount)
	}
	return nil
}
