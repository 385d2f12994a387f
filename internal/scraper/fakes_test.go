package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/parser"
)

const testSearchURL = "https://www.amazon.com/s?k=shirts"

// fakePage serves canned HTML. Navigating to testSearchURL enters listing
// mode where Click on the next control advances the listing index.
type fakePage struct {
	mu sync.Mutex

	listing  func(idx int) string
	products map[string]string
	home     string

	gotoErr  map[string]error
	waitErr  error
	clickErr error

	current    string
	onListing  bool
	listingIdx int

	visited []string
	clicks  []string
	closed  bool
}

var _ browser.Page = (*fakePage)(nil)

func (p *fakePage) Goto(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.visited = append(p.visited, url)
	if err := p.gotoErr[url]; err != nil {
		return err
	}
	p.current = url
	p.onListing = url == testSearchURL
	p.listingIdx = 0
	return nil
}

func (p *fakePage) WaitForSelector(selector string) error {
	return p.waitErr
}

func (p *fakePage) Click(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clicks = append(p.clicks, selector)
	if p.clickErr != nil {
		return p.clickErr
	}
	if p.onListing && selector == parser.SelectorNextPage {
		p.listingIdx++
	}
	return nil
}

func (p *fakePage) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.onListing {
		return p.listing(p.listingIdx), nil
	}
	if p.current == DefaultHomeURL {
		return p.home, nil
	}
	if html, ok := p.products[p.current]; ok {
		return html, nil
	}
	return "<html><body></body></html>", nil
}

func (p *fakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeSession struct {
	page    *fakePage
	pageErr error
	closes  int
}

func (s *fakeSession) NewPage() (browser.Page, error) {
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	return s.page, nil
}

func (s *fakeSession) Close() error {
	s.closes++
	return nil
}

type fakeWriter struct {
	calls       int
	completedAt time.Time
	records     []models.ProductRecord
	err         error
}

func (w *fakeWriter) Write(completedAt time.Time, records []models.ProductRecord) (string, error) {
	w.calls++
	w.completedAt = completedAt
	w.records = records
	if w.err != nil {
		return "", w.err
	}
	return fmt.Sprintf("products-%d.json", completedAt.UnixMilli()), nil
}

type fakeSink struct {
	name string
	err  error
	runs []*models.RunResult
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Store(_ context.Context, run *models.RunResult) error {
	s.runs = append(s.runs, run)
	return s.err
}

var errBoom = errors.New("boom")

func listingHTML(next string, hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<div data-cy="title-recipe"><h2><a class="a-link-normal a-text-normal" href="%s"><span>item</span></a></h2></div>`, href)
	}
	b.WriteString(`<div class="s-pagination-container">`)
	switch next {
	case "enabled":
		b.WriteString(`<a class="s-pagination-item s-pagination-next" href="#">Next</a>`)
	case "disabled":
		b.WriteString(`<span class="s-pagination-item s-pagination-next s-pagination-disabled">Next</span>`)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func productHTML(title string) string {
	return fmt.Sprintf(`<html><body><span id="productTitle"> %s </span></body></html>`, title)
}

func listingPages(pages ...string) func(int) string {
	return func(idx int) string {
		if idx >= len(pages) {
			return pages[len(pages)-1]
		}
		return pages[idx]
	}
}
