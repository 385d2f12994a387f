package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductRecordJSONShape(t *testing.T) {
	record := NewProductRecord()

	data, err := json.Marshal(record)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"price_min": null,
		"price_max": null,
		"rating_total": 0,
		"rating_percent": null,
		"variants": [],
		"product_details": {},
		"product_about": ""
	}`, string(data))
}

func TestProductRecordValidate(t *testing.T) {
	price := 19.99

	tests := []struct {
		name    string
		record  func() *ProductRecord
		wantErr int
	}{
		{
			name:    "Empty record is valid",
			record:  NewProductRecord,
			wantErr: 0,
		},
		{
			name: "Negative rating total",
			record: func() *ProductRecord {
				r := NewProductRecord()
				r.PriceMin = &price
				r.PriceMax = &price
				r.RatingTotal = -1
				return r
			},
			wantErr: 1,
		},
		{
			name: "Percentages without total",
			record: func() *ProductRecord {
				r := NewProductRecord()
				r.RatingPercent = []int{70, 30}
				return r
			},
			wantErr: 1,
		},
		{
			name: "Nil collections",
			record: func() *ProductRecord {
				return &ProductRecord{}
			},
			wantErr: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.record().Validate(), tt.wantErr)
		})
	}
}

func TestRunResultAdd(t *testing.T) {
	run := NewRunResult("https://www.amazon.com/s?k=shirts", time.Now())
	assert.NotEqual(t, uuid.Nil, run.ID)

	title := "Shirt"
	record := NewProductRecord()
	record.Title = &title

	run.Add(Succeeded("https://www.amazon.com/dp/A", record))
	run.Add(Failed("https://www.amazon.com/dp/B", errors.New("navigation timeout")))
	run.Add(Outcome{URL: "https://www.amazon.com/dp/C"})

	require.Len(t, run.Products, 1)
	require.Len(t, run.Failures, 2)
	assert.Equal(t, "https://www.amazon.com/dp/A", run.Products[0].URL)
	assert.Equal(t, "navigation timeout", run.Failures[0].Error)
	assert.Equal(t, "https://www.amazon.com/dp/C", run.Failures[1].URL)

	records := run.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Shirt", *records[0].Title)
}
