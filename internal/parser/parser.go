package parser

import (
	"errors"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

var (
	ErrMalformedDetails = errors.New("product details row is missing a column")
	ErrInvalidBaseURL   = errors.New("invalid listing base URL")
)

type Parser interface {
	ParseListing(html string, baseURL string) (*Listing, error)
	ParseProduct(html string) (*models.ProductRecord, error)
}

// NextState describes the pagination "next" control of a listing page.
type NextState int

const (
	NextMissing NextState = iota
	NextEnabled
	NextDisabled
)

func (s NextState) String() string {
	switch s {
	case NextEnabled:
		return "enabled"
	case NextDisabled:
		return "disabled"
	default:
		return "missing"
	}
}

func (s NextState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Listing struct {
	Links []string  `json:"links"`
	Next  NextState `json:"next"`
}
