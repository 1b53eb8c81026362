package worker

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/edgarseg/internal/logger"
	"github.com/ppiankov/edgarseg/internal/model"
)

// FilingProcessor runs one filing through the retrieval and segmentation pipeline
type FilingProcessor interface {
	Process(ctx context.Context, filing model.Filing) (*model.FilingResult, error)
}

// FilingJob processes a single filing
type FilingJob struct {
	Index     int
	Filing    model.Filing
	Processor FilingProcessor
}

// Execute executes the filing job
func (j *FilingJob) Execute(ctx context.Context) Result {
	result, err := j.Processor.Process(ctx, j.Filing)
	return &FilingOutcome{
		Index:  j.Index,
		Filing: j.Filing,
		Result: result,
		Error:  err,
	}
}

// FilingOutcome is the result of one filing job. Result may be set even when
// Error is, carrying the FAILED state and whatever was resolved before the failure.
type FilingOutcome struct {
	Index  int
	Filing model.Filing
	Result *model.FilingResult
	Error  error
}

// GetError returns the error from the filing outcome
func (o *FilingOutcome) GetError() error {
	return o.Error
}

// BatchProcessor processes many filings concurrently. A failure in one filing never
// affects its siblings.
type BatchProcessor struct {
	processor   FilingProcessor
	concurrency int
	log         logger.Logger

	// OnResult, when set, is called from the collecting goroutine as each filing finishes
	OnResult func(*FilingOutcome)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor FilingProcessor, concurrency int, log logger.Logger) *BatchProcessor {
	if log == nil {
		log = logger.NewNop()
	}
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
		log:         log,
	}
}

// ProcessFilings processes filings concurrently and returns one outcome per filing, in input order.
// Filings never started because ctx ended are reported with the context error.
func (b *BatchProcessor) ProcessFilings(ctx context.Context, filings []model.Filing) []*FilingOutcome {
	outcomes := make([]*FilingOutcome, len(filings))
	if len(filings) == 0 {
		return outcomes
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Submitting from a separate goroutine keeps the result channel drained
	go func() {
		defer pool.Close()
		for i, filing := range filings {
			job := &FilingJob{Index: i, Filing: filing, Processor: b.processor}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	for result := range pool.Results() {
		outcome := result.(*FilingOutcome)
		outcomes[outcome.Index] = outcome
		b.logOutcome(outcome)
		if b.OnResult != nil {
			b.OnResult(outcome)
		}
	}

	for i, outcome := range outcomes {
		if outcome != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		outcomes[i] = &FilingOutcome{Index: i, Filing: filings[i], Error: fmt.Errorf("filing not processed: %w", err)}
		if b.OnResult != nil {
			b.OnResult(outcomes[i])
		}
	}

	return outcomes
}

func (b *BatchProcessor) logOutcome(o *FilingOutcome) {
	fields := []logger.Field{
		logger.String("accession", o.Filing.AccessionNumber),
		logger.String("form_type", o.Filing.Type.String()),
	}
	if o.Error != nil {
		b.log.Warn("filing failed", append(fields, logger.Error(o.Error))...)
		return
	}
	if o.Result != nil {
		fields = append(fields, logger.Int("items", len(o.Result.Items)))
	}
	b.log.Info("filing processed", fields...)
}

// ProcessFile reads a filing list from a file and processes it concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*FilingOutcome, error) {
	filings, err := ReadFilingsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read filings: %w", err)
	}

	return b.ProcessFilings(ctx, filings), nil
}

// FilingRecord is one entry of a batch input file
type FilingRecord struct {
	CIK                string `yaml:"cik"`
	AccessionNumber    string `yaml:"accession_number"`
	FormType           string `yaml:"form_type"`
	FiledAt            string `yaml:"filed_at"`
	PrimaryDocumentURL string `yaml:"primary_document_url"`
}

type filingList struct {
	Filings []FilingRecord `yaml:"filings"`
}

// ReadFilingsFromFile reads filings from a YAML or JSON file holding either a list of
// records or an object with a "filings" list. Duplicate accession numbers are dropped.
func ReadFilingsFromFile(filePath string) ([]model.Filing, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return ParseFilings(data)
}

// ParseFilings decodes and validates a batch input document
func ParseFilings(data []byte) ([]model.Filing, error) {
	var records []FilingRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		var wrapped filingList
		if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode filings: %w", err)
		}
		records = wrapped.Filings
	}

	var filings []model.Filing
	seen := make(map[string]bool)

	for i, rec := range records {
		filing, err := model.NewFiling(rec.CIK, rec.AccessionNumber, rec.FormType, rec.FiledAt, rec.PrimaryDocumentURL)
		if err != nil {
			return nil, fmt.Errorf("filing %d: %w", i+1, err)
		}

		key := filing.AccessionPath()
		if !seen[key] {
			seen[key] = true
			filings = append(filings, filing)
		}
	}

	return filings, nil
}
