package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/parser"
)

type ListingParser interface {
	ParseListing(html string, baseURL string) (*parser.Listing, error)
}

// Paginator walks the search result pages of a listing and collects product
// links.
type Paginator struct {
	parser   ListingParser
	maxPages int
	metrics  *Metrics
	progress *Progress
	logger   *slog.Logger
}

func NewPaginator(p ListingParser, maxPages int, logger *slog.Logger) *Paginator {
	if maxPages <= 0 || maxPages > MaxPages {
		maxPages = MaxPages
	}
	return &Paginator{
		parser:   p,
		maxPages: maxPages,
		logger:   logger.With("component", "paginator"),
	}
}

// WithMetrics attaches run metrics and progress reporting.
func (pg *Paginator) WithMetrics(m *Metrics, progress *Progress) *Paginator {
	pg.metrics = m
	pg.progress = progress
	return pg
}

// Paginate collects links from the current results page onwards until the
// next control is disabled or the page bound is reached. A page without a
// next control is an error. Links are returned in encounter order without
// deduplication; sponsored links are dropped.
func (pg *Paginator) Paginate(ctx context.Context, page browser.Page) ([]string, error) {
	var links []string

	for i := 0; i < pg.maxPages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := page.WaitForSelector(parser.SelectorPagination); err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrPagination, i+1, err)
		}

		html, err := page.Content()
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrPagination, i+1, err)
		}

		pageURL, err := page.URL()
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrPagination, i+1, err)
		}

		listing, err := pg.parser.ParseListing(html, pageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrPagination, i+1, err)
		}

		pg.logger.Info("collected listing links", "page", i+1, "count", len(listing.Links))
		links = append(links, listing.Links...)
		pg.metrics.ObservePage(len(listing.Links))
		pg.progress.PageDone(len(listing.Links))

		if listing.Next == parser.NextDisabled {
			pg.logger.Info("reached last results page", "page", i+1)
			break
		}
		if listing.Next == parser.NextMissing {
			return nil, fmt.Errorf("%w: page %d: next page control not found", ErrPagination, i+1)
		}

		if err := page.Click(parser.SelectorNextPage); err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrPagination, i+1, err)
		}
	}

	filtered := FilterSponsored(links)
	pg.logger.Info("pagination finished",
		"links", len(links),
		"sponsored", len(links)-len(filtered))

	return filtered, nil
}

// FilterSponsored drops links carrying the sponsored placement marker.
func FilterSponsored(links []string) []string {
	filtered := make([]string, 0, len(links))
	for _, link := range links {
		if strings.Contains(link, SponsoredMarker) {
			continue
		}
		filtered = append(filtered, link)
	}
	return filtered
}
