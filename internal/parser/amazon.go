package parser

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/amazon-product-scraper/internal/models"
	"golang.org/x/net/html"
)

// Selectors for the amazon.com listing and product layouts.
const (
	SelectorListingLink   = "div[data-cy='title-recipe'] a.a-text-normal"
	SelectorPagination    = ".s-pagination-container"
	SelectorNextPage      = ".s-pagination-next"
	ClassNextPageDisabled = "s-pagination-disabled"

	selectorTitle        = "#productTitle"
	selectorPrice        = ".a-text-price .a-offscreen"
	selectorRatingTotal  = "span[data-hook='total-review-count']"
	selectorHistogramRow = "#histogramTable .a-text-right"
	selectorVariantImage = ".swatches img"
	selectorDetailRow    = ".product-facts-detail"
	selectorDetailLabel  = ".a-col-left"
	selectorDetailValue  = ".a-col-right"
	selectorAboutBullet  = ".product-facts-title + ul li"
	selectorBotCheckForm = "form[action*='validateCaptcha']"
	ratingTotalSuffix    = "global ratings"
	currencySymbol       = "$"
)

var leadingIntPattern = regexp.MustCompile(`^\d+`)

var _ Parser = (*AmazonParser)(nil)

type AmazonParser struct {
	logger *slog.Logger
}

func NewAmazonParser(logger *slog.Logger) *AmazonParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &AmazonParser{
		logger: logger.With("component", "parser"),
	}
}

// IsInterstitial reports whether the page is the bot check served in place of
// the requested page.
func IsInterstitial(htmlContent string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return false
	}
	return doc.Find(selectorBotCheckForm).Length() > 0
}

// ParseListing reads product links and the next-page state from a search
// results page. Relative hrefs are resolved against baseURL.
func (p *AmazonParser) ParseListing(htmlContent string, baseURL string) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}

	listing := &Listing{Links: make([]string, 0)}

	doc.Find(SelectorListingLink).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			p.logger.Debug("skipping unparsable listing href", "href", href, "error", err)
			return
		}
		listing.Links = append(listing.Links, base.ResolveReference(ref).String())
	})

	next := doc.Find(SelectorNextPage).First()
	switch {
	case next.Length() == 0:
		listing.Next = NextMissing
	case next.HasClass(ClassNextPageDisabled):
		listing.Next = NextDisabled
	default:
		listing.Next = NextEnabled
	}

	return listing, nil
}

// ParseProduct extracts a ProductRecord from a product detail page.
func (p *AmazonParser) ParseProduct(htmlContent string) (*models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	record := models.NewProductRecord()

	record.Title = p.extractTitle(doc)
	record.PriceMin, record.PriceMax = p.extractPrices(doc)
	record.RatingTotal = p.extractRatingTotal(doc)
	if record.RatingTotal != 0 {
		record.RatingPercent = p.extractRatingPercent(doc)
	}
	record.Variants = p.extractVariants(doc)

	details, err := p.extractDetails(doc)
	if err != nil {
		return nil, err
	}
	record.ProductDetails = details
	record.ProductAbout = p.extractAbout(doc)

	if problems := record.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid product record: %s", strings.Join(problems, "; "))
	}

	return record, nil
}

func (p *AmazonParser) extractTitle(doc *goquery.Document) *string {
	sel := doc.Find(selectorTitle).First()
	if sel.Length() == 0 {
		return nil
	}
	title := strings.TrimSpace(sel.Text())
	return &title
}

// extractPrices keeps DOM order: the first two price elements become min and
// max even when the first is the higher one.
func (p *AmazonParser) extractPrices(doc *goquery.Document) (*float64, *float64) {
	prices := doc.Find(selectorPrice)

	switch {
	case prices.Length() == 0:
		return nil, nil
	case prices.Length() == 1:
		price := parsePrice(prices.Eq(0).Text())
		return price, price
	default:
		return parsePrice(prices.Eq(0).Text()), parsePrice(prices.Eq(1).Text())
	}
}

func (p *AmazonParser) extractRatingTotal(doc *goquery.Document) int {
	sel := doc.Find(selectorRatingTotal).First()
	if sel.Length() == 0 {
		p.logger.Debug("rating total not found, defaulting to 0")
		return 0
	}

	total, err := ParseRatingTotal(sel.Text())
	if err != nil {
		p.logger.Debug("failed to parse rating total, defaulting to 0", "text", sel.Text(), "error", err)
		return 0
	}
	return total
}

// extractRatingPercent reads only the direct text nodes of each histogram
// cell; nested elements hold the star labels.
func (p *AmazonParser) extractRatingPercent(doc *goquery.Document) []int {
	percents := make([]int, 0)

	doc.Find(selectorHistogramRow).Each(func(_ int, row *goquery.Selection) {
		row.Contents().Each(func(_ int, node *goquery.Selection) {
			if len(node.Nodes) == 0 || node.Nodes[0].Type != html.TextNode {
				return
			}
			text := strings.TrimSpace(strings.ReplaceAll(node.Nodes[0].Data, "%", ""))
			if text == "" {
				return
			}
			value, err := strconv.Atoi(text)
			if err != nil {
				p.logger.Debug("skipping unparsable rating percent", "text", node.Nodes[0].Data)
				return
			}
			percents = append(percents, value)
		})
	})

	return percents
}

func (p *AmazonParser) extractVariants(doc *goquery.Document) []string {
	variants := make([]string, 0)
	doc.Find(selectorVariantImage).Each(func(_ int, img *goquery.Selection) {
		if alt, ok := img.Attr("alt"); ok {
			variants = append(variants, alt)
		}
	})
	return variants
}

func (p *AmazonParser) extractDetails(doc *goquery.Document) (map[string]string, error) {
	details := make(map[string]string)
	var rowErr error

	doc.Find(selectorDetailRow).EachWithBreak(func(i int, row *goquery.Selection) bool {
		left := row.Find(selectorDetailLabel).First()
		right := row.Find(selectorDetailValue).First()
		if left.Length() == 0 || right.Length() == 0 {
			rowErr = fmt.Errorf("%w (row %d)", ErrMalformedDetails, i)
			return false
		}
		details[strings.TrimSpace(left.Text())] = strings.TrimSpace(right.Text())
		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return details, nil
}

func (p *AmazonParser) extractAbout(doc *goquery.Document) string {
	var bullets []string
	doc.Find(selectorAboutBullet).Each(func(_ int, li *goquery.Selection) {
		bullets = append(bullets, strings.TrimSpace(li.Text()))
	})
	return strings.Join(bullets, "\n")
}

// parsePrice strips the currency symbol and thousands separators. Text that
// does not parse yields nil.
func parsePrice(text string) *float64 {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, currencySymbol)
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &value
}

// ParseRatingTotal parses texts like "1,234 global ratings". Only the leading
// integer is read, so "1 global rating" parses too.
func ParseRatingTotal(text string) (int, error) {
	cleaned := strings.ReplaceAll(text, ratingTotalSuffix, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	match := leadingIntPattern.FindString(cleaned)
	if match == "" {
		return 0, fmt.Errorf("no rating count in %q", text)
	}

	total, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("invalid rating count %q: %w", match, err)
	}
	return total, nil
}
