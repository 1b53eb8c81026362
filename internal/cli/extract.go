package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/edgarseg/internal/model"
	"github.com/ppiankov/edgarseg/internal/pipeline"
)

var (
	extractFlags    filingFlags
	outJSON         string
	outMD           string
	contentsOnly    bool
	timeout         time.Duration
	userAgent       string
	maxBytes        int64
	noCache         bool
	includeExhibits bool
	maxItemChars    int
	httpProxy       string
	httpsProxy      string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch one filing and split it into items",
	Long: `Extract runs the full pipeline for a single filing:
- Locate the narrative document on the filing index page
- Fetch it under the shared rate budget (with throttle detection and retries)
- Drop decorative tables and normalize the HTML to plain text
- Split the text into items using the catalog for the form type and filing date

Example:
  edgarseg extract --cik 320193 --accession 0000320193-24-000010 --form 8-K --filed 2024-02-01
  edgarseg extract --cik 320193 --accession 0000320193-23-000106 --form 10-K --filed 2023-11-03 --json aapl.json --md aapl.md
  edgarseg extract ... --contents-only`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractFlags.register(extractCmd)

	// Output flags
	extractCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
	extractCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	extractCmd.Flags().BoolVar(&contentsOnly, "contents-only", false, "emit only the item key to text map")

	registerFetchFlags(extractCmd)
}

// registerFetchFlags adds the flags shared by every command that fetches from the archive
func registerFetchFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent; the archive requires a name and contact address")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to read")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	cmd.Flags().BoolVar(&includeExhibits, "exhibits", false, "also fetch EX-99 exhibits listed on the index page")
	cmd.Flags().IntVar(&maxItemChars, "max-item-chars", 0, "truncate item text beyond this many bytes (0 = unlimited)")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyFetchFlags overrides configuration with the flags the user actually set
func applyFetchFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("exhibits") {
		cfg.Edgar.IncludeExhibits = includeExhibits
	}
	if flags.Changed("max-item-chars") {
		cfg.Segment.MaxItemChars = maxItemChars
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	filing, err := extractFlags.filing()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Extracting: %s\n", filing)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, log)
	result, err := p.Process(ctx, filing)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	return writeResult(cfg, result, outJSON, outMD)
}

// writeResult writes a result to the requested JSON and Markdown outputs
func writeResult(cfg *model.Config, result *model.FilingResult, jsonPath, mdPath string) error {
	renderer := pipeline.NewRenderer(cfg.Output.IncludeOffsets)

	switch {
	case jsonPath == "" && contentsOnly:
		if err := renderer.WriteContentsJSON(os.Stdout, result); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	case jsonPath == "":
		if err := renderer.WriteJSON(os.Stdout, result); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	case contentsOnly:
		if err := renderer.RenderContentsJSON(result, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	default:
		if err := renderer.RenderJSON(result, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if jsonPath != "" && cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
	}

	if mdPath != "" {
		if err := renderer.RenderMarkdown(result, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	if cfg.Output.Verbose {
		renderer.RenderSummary(os.Stderr, result)
	}
	return nil
}
