package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id            UUID PRIMARY KEY,
	search_url    TEXT        NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL,
	link_count    INTEGER     NOT NULL,
	product_count INTEGER     NOT NULL,
	failure_count INTEGER     NOT NULL,
	output_file   TEXT        NOT NULL,
	failures      JSONB       NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS scraped_products (
	run_id          UUID    NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	url             TEXT    NOT NULL,
	title           TEXT,
	price_min       DOUBLE PRECISION,
	price_max       DOUBLE PRECISION,
	rating_total    INTEGER NOT NULL,
	rating_percent  JSONB,
	variants        JSONB   NOT NULL,
	product_details JSONB   NOT NULL,
	product_about   TEXT    NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_scraped_products_url ON scraped_products(url);
`

// productRow is the column layout of scraped_products.
type productRow struct {
	RunID          uuid.UUID
	Position       int
	URL            string
	Title          *string
	PriceMin       *float64
	PriceMax       *float64
	RatingTotal    int
	RatingPercent  []byte
	Variants       []byte
	ProductDetails []byte
	ProductAbout   string
}

// RunStore persists finished runs to Postgres.
type RunStore struct {
	db     *DB
	logger *slog.Logger
}

func NewRunStore(db *DB, logger *slog.Logger) *RunStore {
	return &RunStore{
		db:     db,
		logger: logger.With("component", "run_store"),
	}
}

func (s *RunStore) Name() string { return "postgres" }

func (s *RunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Store writes the run and its products in a single transaction.
func (s *RunStore) Store(ctx context.Context, run *models.RunResult) error {
	rows, err := buildProductRows(run)
	if err != nil {
		return err
	}

	failures, err := json.Marshal(run.Failures)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO scrape_runs (
				id, search_url, started_at, completed_at, link_count,
				product_count, failure_count, output_file, failures
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.ID, run.SearchURL, run.StartedAt, run.CompletedAt, run.LinkCount,
			len(run.Products), len(run.Failures), run.OutputFile, failures,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(`
				INSERT INTO scraped_products (
					run_id, position, url, title, price_min, price_max, rating_total,
					rating_percent, variants, product_details, product_about
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				row.RunID, row.Position, row.URL, row.Title, row.PriceMin, row.PriceMax,
				row.RatingTotal, row.RatingPercent, row.Variants, row.ProductDetails, row.ProductAbout,
			)
		}

		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert products: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("stored run",
		"run_id", run.ID,
		"products", len(rows),
		"failures", len(run.Failures))
	return nil
}

// CountProducts returns how many products were stored for a run.
func (s *RunStore) CountProducts(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM scraped_products WHERE run_id = $1`, runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// LatestRun returns the id and completion time of the most recent run.
func (s *RunStore) LatestRun(ctx context.Context) (uuid.UUID, time.Time, error) {
	var (
		id          uuid.UUID
		completedAt time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, completed_at FROM scrape_runs ORDER BY completed_at DESC LIMIT 1`,
	).Scan(&id, &completedAt)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("failed to get latest run: %w", err)
	}
	return id, completedAt, nil
}

func buildProductRows(run *models.RunResult) ([]productRow, error) {
	rows := make([]productRow, 0, len(run.Products))
	for i, p := range run.Products {
		var percent []byte
		if p.Record.RatingPercent != nil {
			b, err := json.Marshal(p.Record.RatingPercent)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal rating percent for %s: %w", p.URL, err)
			}
			percent = b
		}

		variants, err := json.Marshal(nonNilStrings(p.Record.Variants))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal variants for %s: %w", p.URL, err)
		}

		details := p.Record.ProductDetails
		if details == nil {
			details = map[string]string{}
		}
		detailsJSON, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal details for %s: %w", p.URL, err)
		}

		rows = append(rows, productRow{
			RunID:          run.ID,
			Position:       i,
			URL:            p.URL,
			Title:          p.Record.Title,
			PriceMin:       p.Record.PriceMin,
			PriceMax:       p.Record.PriceMax,
			RatingTotal:    p.Record.RatingTotal,
			RatingPercent:  percent,
			Variants:       variants,
			ProductDetails: detailsJSON,
			ProductAbout:   p.Record.ProductAbout,
		})
	}
	return rows, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
