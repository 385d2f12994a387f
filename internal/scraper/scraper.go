package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

const (
	DefaultHomeURL   = "https://www.amazon.com"
	DefaultSearchURL = "https://www.amazon.com/s?i=specialty-aps&bbn=16225019011&rh=n%3A7141123011%2Cn%3A16225019011%2Cn%3A1040658&ref=nav_em__nav_desktop_sa_intl_clothing_0_2_13_2"

	DefaultWarmupDelay = 10 * time.Second
	// MaxPages bounds the pagination loop regardless of the result set size.
	MaxPages = 100

	// SponsoredMarker appears in the URL of paid listing placements.
	SponsoredMarker = "sspa"
)

var (
	ErrPagination  = errors.New("pagination failed")
	ErrNoPage      = errors.New("failed to open browser page")
	ErrWriteResult = errors.New("failed to write result file")
)

// Stage names where a product link failed.
type Stage string

const (
	StageNavigate Stage = "navigate"
	StageContent  Stage = "content"
	StageExtract  Stage = "extract"
)

// ProductError is the failure of a single product link. It never aborts a run.
type ProductError struct {
	URL   string
	Stage Stage
	Err   error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}

// ResultWriter persists the final records and returns the written path.
type ResultWriter interface {
	Write(completedAt time.Time, records []models.ProductRecord) (string, error)
}

// ResultSink receives a finished run after the result file was written.
type ResultSink interface {
	Name() string
	Store(ctx context.Context, run *models.RunResult) error
}

// ProductParser turns page HTML into listing data and product records.
type ProductParser interface {
	ListingParser
	ParseProduct(html string) (*models.ProductRecord, error)
}
