package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/edgarseg/internal/model"
	"github.com/ppiankov/edgarseg/internal/segment"
)

// Renderer writes filing results as JSON and Markdown reports
type Renderer struct {
	includeOffsets bool
}

// NewRenderer creates a new Renderer
func NewRenderer(includeOffsets bool) *Renderer {
	return &Renderer{includeOffsets: includeOffsets}
}

// WriteJSON encodes the full result
func (r *Renderer) WriteJSON(w io.Writer, result *model.FilingResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// WriteContentsJSON encodes only the item key to text map
func (r *Renderer) WriteContentsJSON(w io.Writer, result *model.FilingResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result.Contents())
}

// RenderJSON writes the full result to path
func (r *Renderer) RenderJSON(result *model.FilingResult, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteJSON(w, result)
	})
}

// RenderContentsJSON writes only the item key to text map to path
func (r *Renderer) RenderContentsJSON(result *model.FilingResult, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteContentsJSON(w, result)
	})
}

// WriteMarkdown writes items in document order, one section per item
func (r *Renderer) WriteMarkdown(w io.Writer, result *model.FilingResult) error {
	var b strings.Builder

	f := result.Filing
	fmt.Fprintf(&b, "# %s %s\n\n", f.Type, f.DashedAccession())
	fmt.Fprintf(&b, "- CIK: %s\n", f.CIK)
	fmt.Fprintf(&b, "- Filed: %s\n", f.FiledDate())
	if result.DocumentURL != "" {
		fmt.Fprintf(&b, "- Document: %s\n", result.DocumentURL)
	}
	if result.UsedFallback {
		b.WriteString("- Located via reported primary document (index page gave no match)\n")
	}
	fmt.Fprintf(&b, "- State: %s\n", result.State)
	if result.Error != "" {
		fmt.Fprintf(&b, "- Error: %s\n", result.Error)
	}
	b.WriteString("\n")

	items := result.OrderedItems()
	if len(items) == 0 && result.Error == "" {
		b.WriteString("_No items found._\n")
	}

	for _, item := range items {
		fmt.Fprintf(&b, "## %s\n\n", itemHeading(item))
		if r.includeOffsets {
			fmt.Fprintf(&b, "_Offsets %d-%d_\n\n", item.Start, item.End)
		}
		b.WriteString(item.Content)
		b.WriteString("\n\n")
	}

	if len(result.Exhibits) > 0 {
		b.WriteString("## Exhibits\n\n")
		for _, key := range sortedKeys(result.Exhibits) {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", strings.ToUpper(key), result.Exhibits[key])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(result *model.FilingResult, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteMarkdown(w, result)
	})
}

// RenderSummary prints a short human summary
func (r *Renderer) RenderSummary(w io.Writer, result *model.FilingResult) {
	f := result.Filing
	fmt.Fprintf(w, "\n%s %s (CIK %s, filed %s)\n", f.Type, f.DashedAccession(), f.CIK, f.FiledDate())
	fmt.Fprintf(w, "  State:     %s\n", result.State)
	if result.DocumentURL != "" {
		fmt.Fprintf(w, "  Document:  %s\n", result.DocumentURL)
	}
	if result.UsedFallback {
		fmt.Fprintf(w, "  Fallback:  reported primary document\n")
	}
	if result.Error != "" {
		fmt.Fprintf(w, "  Error:     %s\n", result.Error)
		return
	}
	fmt.Fprintf(w, "  Items:     %d\n", len(result.Items))
	for _, item := range result.OrderedItems() {
		fmt.Fprintf(w, "    %-14s %7d chars\n", item.Key, len(item.Content))
	}
	if result.TablesDropped > 0 {
		fmt.Fprintf(w, "  Tables dropped: %d\n", result.TablesDropped)
	}
	if len(result.Exhibits) > 0 {
		fmt.Fprintf(w, "  Exhibits:  %s\n", strings.Join(sortedKeys(result.Exhibits), ", "))
	}
}

func itemHeading(item model.ExtractedItem) string {
	if item.Label == segment.SignatureLabel.String() {
		return "Signature"
	}
	return "Item " + item.Label
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return write(f)
}
