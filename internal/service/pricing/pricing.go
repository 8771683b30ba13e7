// Package pricing enriches extracted line items with internal reference
// prices and computes order-level differential totals. The reference table is
// the mock stand-in for the internal pricing system; lookups are cached in
// redis when a client is available.
package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"mailtriage/internal/logger"
	"mailtriage/internal/models"
	"mailtriage/internal/redis"

	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "pricing:ref:"
	cacheTTL       = 30 * time.Minute

	// fallbackRatio derives an internal-price estimate for unknown product
	// codes: a fixed fraction of the customer-quoted unit price.
	fallbackRatio = 0.8
)

// referencePrices is the internal price list keyed by product code.
var referencePrices = map[string]float64{
	"PA-12345": 85.50,
	"PB-67890": 120.75,
	"PC-24680": 45.25,
	"PD-13579": 220.00,
	"PE-97531": 67.80,
}

// Service performs reference-price lookups and line-item comparison.
type Service struct {
	cache   *redis.Client
	latency time.Duration
}

// NewService builds the pricing service. cache may be nil; lookups then go
// straight to the reference table.
func NewService(cache *redis.Client, latency time.Duration) *Service {
	return &Service{cache: cache, latency: latency}
}

// Lookup resolves the internal reference price for a product code. The second
// return is false when the code is not in the price list.
func (s *Service) Lookup(ctx context.Context, productCode string) (float64, bool) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKeyPrefix+productCode); err == nil {
			if price, perr := strconv.ParseFloat(raw, 64); perr == nil {
				return price, true
			}
		} else if err != redis.ErrCacheMiss {
			logger.Logger.Warn("price cache read failed", zap.Error(err))
		}
	}

	price, ok := referencePrices[productCode]
	if !ok {
		return 0, false
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKeyPrefix+productCode, fmt.Sprintf("%.2f", price), cacheTTL); err != nil {
			logger.Logger.Warn("price cache write failed", zap.Error(err))
		}
	}
	return price, true
}

// Compare populates internal price and per-unit differential on every item.
// Item order and count are preserved; an unknown product code falls back to a
// derived estimate so no item leaves the stage partially enriched.
func (s *Service) Compare(ctx context.Context, items []*models.LineItem) ([]*models.LineItem, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for _, item := range items {
		internal, ok := s.Lookup(ctx, item.ProductCode)
		if !ok {
			internal = item.UnitPrice * fallbackRatio
		}
		diff := item.UnitPrice - internal
		item.LineTotal = float64(item.Quantity) * item.UnitPrice
		item.InternalPrice = &internal
		item.Differential = &diff
	}
	return items, nil
}

// Aggregate reduces enriched items to order-level totals. The differential
// percentage is left nil when the order value is zero; callers must treat that
// as undefined rather than a zero differential.
func Aggregate(items []*models.LineItem) *models.DifferentialSummary {
	summary := &models.DifferentialSummary{}
	for _, item := range items {
		summary.TotalOrderValue += item.LineTotal
		if item.InternalPrice != nil {
			summary.TotalInternalCost += *item.InternalPrice * float64(item.Quantity)
		}
	}
	summary.TotalDifferential = summary.TotalOrderValue - summary.TotalInternalCost
	if summary.TotalOrderValue != 0 {
		pct := summary.TotalDifferential / summary.TotalOrderValue * 100
		summary.DifferentialPct = &pct
	}
	return summary
}
