package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductScraped is published once per extracted product
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"
	// EventTypeRunCompleted closes the events of a run
	EventTypeRunCompleted EventType = "SCRAPE_RUN_COMPLETED"

	DefaultStream = "stream:product_scrapes"
	source        = "amazon-product-scraper"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

type ProductScrapedPayload struct {
	RunID    string               `json:"run_id"`
	Position int                  `json:"position"`
	URL      string               `json:"url"`
	Product  models.ProductRecord `json:"product"`
}

type RunCompletedPayload struct {
	RunID       string           `json:"run_id"`
	SearchURL   string           `json:"search_url"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	LinkCount   int              `json:"link_count"`
	Products    int              `json:"products"`
	Failures    []models.Failure `json:"failures"`
	OutputFile  string           `json:"output_file"`
}

// Publisher forwards a finished run to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *Publisher) Name() string { return "redis" }

// Store publishes one PRODUCT_SCRAPED entry per record followed by a
// SCRAPE_RUN_COMPLETED entry. Publishing stops at the first failure.
func (p *Publisher) Store(ctx context.Context, run *models.RunResult) error {
	runID := run.ID.String()

	for i, product := range run.Products {
		payload := ProductScrapedPayload{
			RunID:    runID,
			Position: i,
			URL:      product.URL,
			Product:  product.Record,
		}
		if err := p.publish(ctx, EventTypeProductScraped, product.URL, run.CompletedAt, payload); err != nil {
			return err
		}
	}

	completed := RunCompletedPayload{
		RunID:       runID,
		SearchURL:   run.SearchURL,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		LinkCount:   run.LinkCount,
		Products:    len(run.Products),
		Failures:    run.Failures,
		OutputFile:  run.OutputFile,
	}
	if err := p.publish(ctx, EventTypeRunCompleted, runID, run.CompletedAt, completed); err != nil {
		return err
	}

	p.logger.Info("published run",
		"run_id", runID,
		"stream", p.stream,
		"events", len(run.Products)+1)
	return nil
}

// publish writes one entry in the layout stream consumers expect: a JSON
// envelope under "data" plus flat routing fields.
func (p *Publisher) publish(ctx context.Context, eventType EventType, aggregateID string, at time.Time, payload interface{}) error {
	eventID := uuid.New().String()

	envelope := map[string]interface{}{
		"id":           eventID,
		"type":         string(eventType),
		"aggregate_id": aggregateID,
		"timestamp":    at.Format(time.RFC3339),
		"payload":      payload,
		"metadata": map[string]interface{}{
			"source":        source,
			"target_stream": p.stream,
		},
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":         string(data),
			"type":         string(eventType),
			"timestamp":    fmt.Sprintf("%d", at.UnixNano()),
			"original_id":  eventID,
			"aggregate_id": aggregateID,
			"event_type":   string(eventType),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish %s to redis: %w", eventType, err)
	}

	p.logger.Debug("event published", "event_id", eventID, "event_type", eventType, "aggregate_id", aggregateID)
	return nil
}
