package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/edgarseg/internal/cache"
	"github.com/ppiankov/edgarseg/internal/logger"
	"github.com/ppiankov/edgarseg/internal/model"
	"github.com/ppiankov/edgarseg/internal/retry"
	"github.com/ppiankov/edgarseg/internal/util"
	"github.com/ppiankov/edgarseg/internal/worker"
)

// fetchSleepFunc waits between attempts; tests replace it to run instantly
var fetchSleepFunc retry.SleepFunc = retry.Sleep

// DocumentFetcher retrieves archive documents
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// Fetcher fetches archive documents under the shared rate budget
type Fetcher struct {
	httpClient        *http.Client
	limiter           *worker.Limiter
	cache             cache.Cache
	robots            *util.RobotsChecker
	log               logger.Logger
	userAgent         string
	maxBytes          int64
	throttlePhrase    string
	throttleAttempts  int
	throttleBaseDelay time.Duration
	retry             retry.Config
	retryableStatuses map[int]bool
}

// NewFetcher creates a Fetcher. A nil limiter gets one built from cfg; pass the same
// limiter to every fetcher in the process so they share one budget. docCache may be nil.
func NewFetcher(cfg *model.Config, limiter *worker.Limiter, docCache cache.Cache, log logger.Logger) *Fetcher {
	if limiter == nil {
		limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}
	if log == nil {
		log = logger.NewNop()
	}

	client := &http.Client{
		Timeout:   cfg.HTTP.Timeout,
		Transport: util.NewTransport(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	statuses := make(map[int]bool, len(cfg.Retry.RetryableStatuses))
	for _, code := range cfg.Retry.RetryableStatuses {
		statuses[code] = true
	}

	throttleAttempts := cfg.Retry.ThrottleAttempts
	if throttleAttempts <= 0 {
		throttleAttempts = 1
	}

	maxBytes := cfg.HTTP.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}

	f := &Fetcher{
		httpClient:        client,
		limiter:           limiter,
		cache:             docCache,
		log:               log,
		userAgent:         cfg.HTTP.UserAgent,
		maxBytes:          maxBytes,
		throttlePhrase:    cfg.Edgar.ThrottlePhrase,
		throttleAttempts:  throttleAttempts,
		throttleBaseDelay: cfg.Retry.ThrottleBaseDelay,
		retry: retry.Config{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
		},
		retryableStatuses: statuses,
	}

	if cfg.HTTP.RespectRobots {
		f.robots = util.NewRobotsChecker(client, cfg.HTTP.UserAgent)
		f.robots.Wait = limiter.Wait
	}

	return f
}

// FetchResult contains a fetched document and how it was obtained
type FetchResult struct {
	URL             string
	FinalURL        string
	Body            string
	StatusCode      int
	ContentType     string
	Attempts        int  // Network attempts, including throttled ones
	ThrottleRetries int  // Responses rejected for carrying the throttle phrase
	FromCache       bool // Served from the document cache without using the rate budget
	FetchedAt       time.Time
}

// Fetch retrieves a document. Every network attempt first takes a permit from the
// shared limiter. Failures are always *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.DocumentKey(rawURL)
	if f.cache != nil {
		if data, ok := f.cache.Get(key); ok {
			f.log.Debug("document cache hit", logger.String("url", rawURL))
			return &FetchResult{
				URL:        rawURL,
				FinalURL:   rawURL,
				Body:       string(data),
				StatusCode: http.StatusOK,
				FromCache:  true,
				FetchedAt:  time.Now().UTC(),
			}, nil
		}
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		delay, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, f.classify(ctx, rawURL, 0, 0, err)
		}
		crawlDelay = delay
	}

	attempts := 0
	for throttled := 0; ; throttled++ {
		result, n, err := f.fetchWithRetry(ctx, rawURL, crawlDelay)
		attempts += n
		if err != nil {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				fetchErr.Attempts = attempts
			}
			return nil, err
		}

		if !f.isThrottled(result.Body) {
			result.Attempts = attempts
			result.ThrottleRetries = throttled
			f.store(key, result)
			return result, nil
		}

		attempt := throttled + 1
		f.log.Warn("upstream throttled request",
			logger.String("url", rawURL),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", f.throttleAttempts),
		)

		if attempt >= f.throttleAttempts {
			return nil, &FetchError{
				Kind:       KindRateLimitExhausted,
				URL:        rawURL,
				StatusCode: result.StatusCode,
				Attempts:   attempts,
				Err:        fmt.Errorf("throttle notice in %d consecutive responses", attempt),
			}
		}

		if err := fetchSleepFunc(ctx, time.Duration(attempt)*f.throttleBaseDelay); err != nil {
			return nil, f.classify(ctx, rawURL, result.StatusCode, attempts, err)
		}
	}
}

// fetchWithRetry runs one logical request, retrying transport failures with capped
// exponential backoff. It returns the number of network attempts made.
func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string, crawlDelay time.Duration) (*FetchResult, int, error) {
	var (
		result     *FetchResult
		lastStatus int
		attempts   int
	)

	cfg := f.retry
	cfg.IsRetryable = func(err error) bool {
		return ctx.Err() == nil && f.isRetryable(err)
	}
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		return fetchSleepFunc(ctx, d)
	}

	err := retry.Do(ctx, cfg, func(attempt int) error {
		attempts = attempt
		lastStatus = 0
		r, err := f.doRequest(ctx, rawURL, crawlDelay)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) {
				lastStatus = se.code
			}
			if f.isRetryable(err) && ctx.Err() == nil {
				f.log.Debug("fetch attempt failed",
					logger.String("url", rawURL),
					logger.Int("attempt", attempt),
					logger.Error(err),
				)
			}
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, attempts, f.classify(ctx, rawURL, lastStatus, attempts, err)
	}
	return result, attempts, nil
}

func (f *Fetcher) doRequest(ctx context.Context, rawURL string, crawlDelay time.Duration) (*FetchResult, error) {
	if err := f.limiter.WaitWithDelay(ctx, crawlDelay); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("fetch: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read body: %w", err)}
	}

	return &FetchResult{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		Body:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func (f *Fetcher) isThrottled(body string) bool {
	return f.throttlePhrase != "" && strings.Contains(body, f.throttlePhrase)
}

// isRetryable reports whether a single attempt's failure is worth another attempt:
// configured statuses, timeouts and connection failures.
func (f *Fetcher) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return f.retryableStatuses[se.code]
	}

	var te *transportError
	return errors.As(err, &te)
}

// classify converts a final failure into a *FetchError
func (f *Fetcher) classify(ctx context.Context, rawURL string, status, attempts int, err error) error {
	kind := KindHTTPError
	switch {
	case ctx.Err() != nil:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		if !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", err, ctx.Err())
		}
	case isTimeout(err):
		kind = KindTimeout
	}

	return &FetchError{
		Kind:       kind,
		URL:        rawURL,
		StatusCode: status,
		Attempts:   attempts,
		Err:        err,
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (f *Fetcher) store(key string, result *FetchResult) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Set(key, []byte(result.Body), 0); err != nil {
		f.log.Warn("document cache write failed", logger.String("url", result.URL), logger.Error(err))
	}
}
