package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProductRecord is the unit of output, one per successfully visited product page.
type ProductRecord struct {
	Title          *string           `json:"title,omitempty"`
	PriceMin       *float64          `json:"price_min"`
	PriceMax       *float64          `json:"price_max"`
	RatingTotal    int               `json:"rating_total"`
	RatingPercent  []int             `json:"rating_percent"`
	Variants       []string          `json:"variants"`
	ProductDetails map[string]string `json:"product_details"`
	ProductAbout   string            `json:"product_about"`
}

func NewProductRecord() *ProductRecord {
	return &ProductRecord{
		Variants:       make([]string, 0),
		ProductDetails: make(map[string]string),
	}
}

func (p *ProductRecord) Validate() []string {
	var errors []string

	if p.RatingTotal < 0 {
		errors = append(errors, "rating_total cannot be negative")
	}

	if p.RatingTotal == 0 && p.RatingPercent != nil {
		errors = append(errors, "rating_percent must be null when rating_total is 0")
	}

	if p.Variants == nil {
		errors = append(errors, "variants must not be nil")
	}

	if p.ProductDetails == nil {
		errors = append(errors, "product_details must not be nil")
	}

	return errors
}

// ScrapedProduct pairs a record with the link it was extracted from.
type ScrapedProduct struct {
	URL    string        `json:"url"`
	Record ProductRecord `json:"record"`
}

type Failure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Outcome is the result of processing one product link: exactly one of
// Record and Err is set.
type Outcome struct {
	URL    string
	Record *ProductRecord
	Err    error
}

func Succeeded(url string, record *ProductRecord) Outcome {
	return Outcome{URL: url, Record: record}
}

func Failed(url string, err error) Outcome {
	return Outcome{URL: url, Err: err}
}

func (o Outcome) OK() bool {
	return o.Err == nil && o.Record != nil
}

type RunResult struct {
	ID          uuid.UUID        `json:"id"`
	SearchURL   string           `json:"search_url"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	LinkCount   int              `json:"link_count"`
	Products    []ScrapedProduct `json:"products"`
	Failures    []Failure        `json:"failures"`
	OutputFile  string           `json:"output_file,omitempty"`
}

func NewRunResult(searchURL string, startedAt time.Time) *RunResult {
	return &RunResult{
		ID:        uuid.New(),
		SearchURL: searchURL,
		StartedAt: startedAt,
		Products:  make([]ScrapedProduct, 0),
		Failures:  make([]Failure, 0),
	}
}

// Add folds an outcome into the run, preserving link order.
func (r *RunResult) Add(o Outcome) {
	if o.OK() {
		r.Products = append(r.Products, ScrapedProduct{URL: o.URL, Record: *o.Record})
		return
	}

	err := o.Err
	if err == nil {
		err = fmt.Errorf("no record extracted")
	}
	r.Failures = append(r.Failures, Failure{URL: o.URL, Error: err.Error()})
}

// Records returns the records in output order.
func (r *RunResult) Records() []ProductRecord {
	records := make([]ProductRecord, 0, len(r.Products))
	for _, p := range r.Products {
		records = append(records, p.Record)
	}
	return records
}
