package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/parser"
	"github.com/maltedev/amazon-product-scraper/internal/ratelimit"
)

// interstitialSelector matches the "Continue shopping" control of the bot
// check form.
const interstitialSelector = "form[action*='validateCaptcha'] button, form[action*='validateCaptcha'] input[type='submit']"

type Config struct {
	HomeURL     string
	SearchURL   string
	WarmupDelay time.Duration
	MaxPages    int
}

// Runner drives one complete scrape: warm-up, pagination, sequential product
// extraction and the final write.
type Runner struct {
	session  browser.Session
	parser   ProductParser
	writer   ResultWriter
	sinks    []ResultSink
	limiter  *ratelimit.AdaptiveRateLimiter
	metrics  *Metrics
	progress *Progress
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time

	closeOnce sync.Once
}

type Option func(*Runner)

func WithSinks(sinks ...ResultSink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

func WithRateLimiter(l *ratelimit.AdaptiveRateLimiter) Option {
	return func(r *Runner) { r.limiter = l }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithProgress(p *Progress) Option {
	return func(r *Runner) { r.progress = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(session browser.Session, p ProductParser, writer ResultWriter, cfg Config, logger *slog.Logger, opts ...Option) *Runner {
	if cfg.HomeURL == "" {
		cfg.HomeURL = DefaultHomeURL
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.MaxPages <= 0 || cfg.MaxPages > MaxPages {
		cfg.MaxPages = MaxPages
	}

	r := &Runner{
		session: session,
		parser:  p,
		writer:  writer,
		limiter: ratelimit.NewAdaptiveRateLimiter(0, 0),
		logger:  logger.With("component", "runner"),
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the scrape and returns the finished run. The browser session
// is closed before returning on every path. Nothing is written when the run
// fails or ctx is cancelled before the records are complete.
func (r *Runner) Run(ctx context.Context) (*models.RunResult, error) {
	result := models.NewRunResult(r.cfg.SearchURL, r.now())
	logger := r.logger.With("run_id", result.ID.String())
	r.progress.Start(result.ID.String(), result.StartedAt)

	logger.Info("starting scrape", "search_url", r.cfg.SearchURL)

	err := r.collect(ctx, result, logger)
	r.closeSession(logger)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		logger.Error("scrape aborted", "error", err)
		r.progress.Fail(err)
		return nil, err
	}

	r.progress.SetPhase(PhaseWrite)
	result.CompletedAt = r.now()

	path, err := r.writer.Write(result.CompletedAt, result.Records())
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrWriteResult, err)
		r.progress.Fail(err)
		return nil, err
	}
	result.OutputFile = path

	logger.Info("scrape completed",
		"file", path,
		"links", result.LinkCount,
		"products", len(result.Products),
		"failures", len(result.Failures),
		"duration", result.CompletedAt.Sub(result.StartedAt))

	r.storeSinks(ctx, result, logger)
	r.progress.Complete(path)

	return result, nil
}

func (r *Runner) collect(ctx context.Context, result *models.RunResult, logger *slog.Logger) error {
	page, err := r.session.NewPage()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoPage, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("failed to close page", "error", err)
		}
	}()

	if err := r.warmup(ctx, page, logger); err != nil {
		return err
	}

	if err := page.Goto(r.cfg.SearchURL); err != nil {
		return fmt.Errorf("failed to open search page: %w", err)
	}

	r.progress.SetPhase(PhasePaginate)
	links, err := NewPaginator(r.parser, r.cfg.MaxPages, r.logger).
		WithMetrics(r.metrics, r.progress).
		Paginate(ctx, page)
	if err != nil {
		return err
	}
	result.LinkCount = len(links)
	logger.Info("collected product links", "count", len(links))

	r.progress.SetPhase(PhaseScrape)
	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		outcome := r.scrapeProduct(page, link)
		result.Add(outcome)
		r.progress.ProductDone(outcome.OK())

		if outcome.OK() {
			r.limiter.RecordSuccess()
			r.metrics.ObserveProduct("", time.Since(start))
			logger.Info("scraped product", "index", i+1, "of", len(links), "url", link)
			continue
		}

		r.limiter.RecordError()
		var perr *ProductError
		stage := StageExtract
		if errors.As(outcome.Err, &perr) {
			stage = perr.Stage
		}
		r.metrics.ObserveProduct(stage, time.Since(start))
		logger.Error("failed to scrape product", "url", link, "stage", stage, "error", outcome.Err)
	}

	return nil
}

func (r *Runner) warmup(ctx context.Context, page browser.Page, logger *slog.Logger) error {
	r.progress.SetPhase(PhaseWarmup)

	if err := page.Goto(r.cfg.HomeURL); err != nil {
		return fmt.Errorf("failed to open home page: %w", err)
	}

	if r.cfg.WarmupDelay > 0 {
		timer := time.NewTimer(r.cfg.WarmupDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	html, err := page.Content()
	if err != nil {
		logger.Warn("failed to read home page", "error", err)
		return nil
	}
	if parser.IsInterstitial(html) {
		logger.Warn("bot check interstitial detected, continuing")
		if err := page.Click(interstitialSelector); err != nil {
			logger.Warn("failed to dismiss interstitial", "error", err)
		}
	}
	return nil
}

func (r *Runner) scrapeProduct(page browser.Page, link string) models.Outcome {
	if err := page.Goto(link); err != nil {
		return models.Failed(link, &ProductError{URL: link, Stage: StageNavigate, Err: err})
	}

	html, err := page.Content()
	if err != nil {
		return models.Failed(link, &ProductError{URL: link, Stage: StageContent, Err: err})
	}

	record, err := r.parser.ParseProduct(html)
	if err != nil {
		return models.Failed(link, &ProductError{URL: link, Stage: StageExtract, Err: err})
	}

	return models.Succeeded(link, record)
}

func (r *Runner) storeSinks(ctx context.Context, result *models.RunResult, logger *slog.Logger) {
	for _, sink := range r.sinks {
		if err := sink.Store(ctx, result); err != nil {
			r.metrics.IncSinkError(sink.Name())
			logger.Error("failed to store run", "sink", sink.Name(), "error", err)
			continue
		}
		logger.Info("stored run", "sink", sink.Name())
	}
}

func (r *Runner) closeSession(logger *slog.Logger) {
	r.closeOnce.Do(func() {
		if err := r.session.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	})
}
