// Package pipeline retrieves filings from the archive and turns them into labeled items.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ppiankov/edgarseg/internal/cache"
	"github.com/ppiankov/edgarseg/internal/extract"
	"github.com/ppiankov/edgarseg/internal/logger"
	"github.com/ppiankov/edgarseg/internal/model"
	"github.com/ppiankov/edgarseg/internal/segment"
	"github.com/ppiankov/edgarseg/internal/worker"
)

// ErrNoDocument is returned when neither the index page nor the filing record names a document
var ErrNoDocument = errors.New("no document URL")

// Pipeline orchestrates locate, fetch, normalize and segment for one filing at a time.
// It holds no per-filing state and is shared by all workers.
type Pipeline struct {
	fetcher   DocumentFetcher
	locator   *Locator
	segmenter *segment.Segmenter
	config    *model.Config
	log       logger.Logger
}

// NewPipeline creates a pipeline with its own fetcher, rate budget and document cache
func NewPipeline(cfg *model.Config, log logger.Logger) *Pipeline {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	fetcher := NewFetcher(cfg, limiter, cache.New(cfg.Cache), log)
	return New(cfg, fetcher, log)
}

// New creates a pipeline around an existing fetcher
func New(cfg *model.Config, fetcher DocumentFetcher, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		fetcher:   fetcher,
		locator:   NewLocator(fetcher, cfg.Edgar.ArchiveBaseURL, log),
		segmenter: segment.New(segment.Options{MaxItemChars: cfg.Segment.MaxItemChars}),
		config:    cfg,
		log:       log,
	}
}

// Locator returns the pipeline's document locator
func (p *Pipeline) Locator() *Locator {
	return p.locator
}

// Process runs one filing through the pipeline. On failure the returned result is in
// the FAILED state and the error is a *FetchError or a context error. A filing with
// no recognizable items is not a failure.
func (p *Pipeline) Process(ctx context.Context, filing model.Filing) (*model.FilingResult, error) {
	runID := uuid.NewString()
	log := p.log.With(
		logger.String("run_id", runID),
		logger.String("accession", filing.AccessionNumber),
		logger.String("form_type", filing.Type.String()),
	)

	result := model.NewFilingResult(runID, filing)
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	loc := p.locator.Locate(ctx, filing)
	result.IndexURL = loc.IndexURL
	result.DocumentURL = loc.DocumentURL
	result.UsedFallback = loc.Fallback
	p.advance(result, model.StateIndexResolved, log)

	if err := ctx.Err(); err != nil {
		return p.fail(result, log, fmt.Errorf("canceled before fetch: %w", err))
	}
	if loc.DocumentURL == "" {
		return p.fail(result, log, &FetchError{Kind: KindHTTPError, URL: loc.IndexURL, Err: ErrNoDocument})
	}

	fetched, err := p.fetcher.Fetch(ctx, loc.DocumentURL)
	if err != nil {
		return p.fail(result, log, fmt.Errorf("fetch document: %w", err))
	}
	p.advance(result, model.StateFetched, log)

	p.segmentDocument(result, fetched.Body, log)

	if p.config.Edgar.IncludeExhibits && len(loc.Exhibits) > 0 {
		result.Exhibits = p.fetchExhibits(ctx, loc.Exhibits, log)
	}

	if len(result.Items) == 0 {
		log.Warn("no items found", logger.String("document_url", loc.DocumentURL))
	}
	log.Info("filing segmented",
		logger.Int("items", len(result.Items)),
		logger.Int("tables_dropped", result.TablesDropped),
		logger.Bool("fallback", loc.Fallback),
		logger.Bool("from_cache", fetched.FromCache),
		logger.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// ProcessDocument segments a document that was already retrieved, such as a local file.
// source is recorded as the document URL.
func (p *Pipeline) ProcessDocument(filing model.Filing, source, raw string) *model.FilingResult {
	result := model.NewFilingResult(uuid.NewString(), filing)
	log := p.log.With(logger.String("run_id", result.RunID), logger.String("source", source))
	start := time.Now()

	result.DocumentURL = source
	p.advance(result, model.StateIndexResolved, log)
	p.advance(result, model.StateFetched, log)
	p.segmentDocument(result, raw, log)

	result.Duration = time.Since(start)
	return result
}

// segmentDocument takes a fetched result through normalization and segmentation
func (p *Pipeline) segmentDocument(result *model.FilingResult, raw string, log logger.Logger) {
	text, dropped := p.Normalize(raw, result.Filing)
	result.TablesDropped = dropped
	result.CharCount = utf8.RuneCountInString(text)
	p.advance(result, model.StateNormalized, log)

	result.Items = p.segmenter.SegmentFiling(text, &result.Filing)
	p.advance(result, model.StateSegmented, log)
}

// Normalize filters decorative tables and converts a raw document to plain text.
// It never fails; it returns the text and the number of tables removed.
func (p *Pipeline) Normalize(raw string, filing model.Filing) (string, int) {
	doc, err := extract.Parse(raw)
	if err != nil {
		return extract.Normalize(raw), 0
	}

	dropped := 0
	if p.config.Segment.FilterTables {
		dropped = extract.FilterTables(doc, segment.Catalog(filing.Type, filing.FiledAt))
	}
	return doc.Text(), dropped
}

// fetchExhibits fetches up to the configured number of exhibits. Failures are logged
// and skipped.
func (p *Pipeline) fetchExhibits(ctx context.Context, exhibits []Exhibit, log logger.Logger) map[string]string {
	limit := p.config.Edgar.MaxExhibits
	if limit <= 0 || limit > len(exhibits) {
		limit = len(exhibits)
	}

	out := make(map[string]string, limit)
	for _, ex := range exhibits[:limit] {
		if ctx.Err() != nil {
			break
		}
		res, err := p.fetcher.Fetch(ctx, ex.URL)
		if err != nil {
			log.Warn("exhibit fetch failed", logger.String("exhibit", ex.Type), logger.String("url", ex.URL), logger.Error(err))
			continue
		}
		text := extract.Normalize(res.Body)
		if text == "" {
			continue
		}
		out[exhibitKey(ex.Type, out)] = text
	}
	return out
}

// exhibitKey lowercases the exhibit type and disambiguates repeats: ex-99.1, ex-99.1_2
func exhibitKey(exhibitType string, taken map[string]string) string {
	key := strings.ToLower(exhibitType)
	if _, exists := taken[key]; !exists {
		return key
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", key, n)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}

func (p *Pipeline) advance(result *model.FilingResult, next model.State, log logger.Logger) {
	if err := result.Advance(next); err != nil {
		log.Error("state transition rejected", logger.Error(err))
	}
}

func (p *Pipeline) fail(result *model.FilingResult, log logger.Logger, err error) (*model.FilingResult, error) {
	p.advance(result, model.StateFailed, log)
	result.Error = err.Error()
	log.Warn("filing failed",
		logger.String("document_url", result.DocumentURL),
		logger.Error(err),
	)
	return result, err
}
