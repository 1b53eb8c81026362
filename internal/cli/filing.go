package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/edgarseg/internal/model"
)

// filingFlags identifies a single filing on the command line
type filingFlags struct {
	cik        string
	accession  string
	formType   string
	filedAt    string
	primaryURL string
}

func (f *filingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cik, "cik", "", "company CIK (leading zeros allowed)")
	cmd.Flags().StringVar(&f.accession, "accession", "", "accession number, e.g. 0000320193-24-000010")
	cmd.Flags().StringVar(&f.formType, "form", string(model.FormType8K), "form type (8-K, 10-K)")
	cmd.Flags().StringVar(&f.filedAt, "filed", "", "filing date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.primaryURL, "primary-url", "", "reported primary document URL, used when the index page has no match")
	_ = cmd.MarkFlagRequired("cik")
	_ = cmd.MarkFlagRequired("accession")
	_ = cmd.MarkFlagRequired("filed")
}

func (f *filingFlags) filing() (model.Filing, error) {
	return model.NewFiling(f.cik, f.accession, f.formType, f.filedAt, f.primaryURL)
}

// localFiling builds a filing for offline segmentation where only type and date matter
func localFiling(formType, filedAt string) (model.Filing, error) {
	ft, err := model.ParseFilingType(formType)
	if err != nil {
		return model.Filing{}, err
	}

	filed := time.Now().UTC()
	if filedAt != "" {
		filed, err = time.Parse(model.DateLayout, filedAt)
		if err != nil {
			return model.Filing{}, fmt.Errorf("%w: filing date %q: %v", model.ErrInvalidFiling, filedAt, err)
		}
	}

	return model.Filing{Type: ft, FiledAt: filed}, nil
}

// reportName derives an output file stem from a filing
func reportName(f model.Filing) string {
	if f.AccessionNumber == "" {
		return "filing"
	}
	return sanitizeFilename(fmt.Sprintf("%s_%s", strings.ReplaceAll(string(f.Type), "/", "-"), f.DashedAccession()))
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = filepath.Clean(replacer.Replace(s))

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
