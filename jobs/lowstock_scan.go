package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/garasipos/garasipos/internal/observability"
)

// LowStockScanJob flags products at or below their minimum stock alert so the
// workshop can restock before sales start failing on InsufficientStock.
type LowStockScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *observability.Metrics
	clock   func() time.Time
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *LowStockScanJob {
	return &LowStockScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type lowStockProduct struct {
	ID            int64
	SKU           string
	Name          string
	Stock         int
	MinStockAlert int
	PriceBuy      float64
}

// Handle executes the low-stock scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 200
	}

	start := j.now()
	logger := j.logger()
	logger.Info("starting low stock scan", slog.Int("limit", payload.Limit))

	items, err := j.scan(ctx, payload.Limit)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	// Rupiah amounts with Indonesian digit grouping.
	printer := message.NewPrinter(language.Indonesian)
	for _, p := range items {
		shortfall := p.MinStockAlert - p.Stock
		if shortfall < 1 {
			shortfall = 1
		}
		estimate := printer.Sprintf("Rp%.0f", float64(shortfall)*p.PriceBuy)
		logger.Warn("product below minimum stock",
			slog.String("sku", p.SKU),
			slog.String("name", p.Name),
			slog.Int("stock", p.Stock),
			slog.Int("min_stock_alert", p.MinStockAlert),
			slog.String("restock_estimate", estimate),
		)
	}

	j.Metrics.SetLowStock(len(items))
	logger.Info("completed low stock scan",
		slog.Int("flagged", len(items)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *LowStockScanJob) scan(ctx context.Context, limit int) ([]lowStockProduct, error) {
	if j.Pool == nil {
		return nil, errors.New("low stock scan: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT id, sku, name, stock, min_stock_alert, price_buy
FROM products WHERE deleted_at IS NULL AND stock <= min_stock_alert ORDER BY stock - min_stock_alert ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]lowStockProduct, 0)
	for rows.Next() {
		var p lowStockProduct
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.MinStockAlert, &p.PriceBuy); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}

func (j *LowStockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
