// Package extract turns an eligible attachment into a structured order record.
// The Extractor here is a mock standing in for a document-understanding call;
// it keeps the call's contract (latency, nil result for documents without
// order data) without the real integration.
package extract

import (
	"context"
	"strings"
	"time"

	"mailtriage/internal/logger"
	"mailtriage/internal/models"

	"go.uber.org/zap"
)

// Eligible reports whether the attachment can be processed. Only PDF
// documents are recognized.
func Eligible(att *models.Attachment) bool {
	if att == nil {
		return false
	}
	return att.IsPDF || strings.EqualFold(att.ContentType, "application/pdf")
}

// Extractor is the document extraction collaborator. A nil record with a nil
// error means the document held no recoverable order data.
type Extractor interface {
	Extract(ctx context.Context, att *models.Attachment) (*models.OrderRecord, error)
}

// MockExtractor simulates document understanding: it waits the configured
// latency and returns a copy of the canonical sample order.
type MockExtractor struct {
	Latency time.Duration
}

func (m *MockExtractor) Extract(ctx context.Context, att *models.Attachment) (*models.OrderRecord, error) {
	logger.Logger.Info("extracting order data from attachment",
		zap.String("attachment_id", att.ID),
		zap.String("name", att.Name),
	)
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return sampleOrder(), nil
}

// sampleOrder is the canonical extraction payload, built fresh per call so
// pipeline stages can enrich items freely.
func sampleOrder() *models.OrderRecord {
	delivery := time.Now().Add(14 * 24 * time.Hour)
	return &models.OrderRecord{
		OrderNumber:  "ORD-2023-42587",
		CustomerName: "Acme Corporation",
		DeliveryDate: &delivery,
		Currency:     "USD",
		TotalAmount:  1069.90,
		Items: []*models.LineItem{
			{
				ProductCode: "PA-12345",
				Description: "Product A - Premium Widget",
				Quantity:    5,
				UnitPrice:   99.99,
				LineTotal:   499.95,
			},
			{
				ProductCode: "PB-67890",
				Description: "Product B - Advanced Gadget",
				Quantity:    3,
				UnitPrice:   149.99,
				LineTotal:   449.97,
			},
			{
				ProductCode: "PC-24680",
				Description: "Product C - Standard Component",
				Quantity:    2,
				UnitPrice:   59.99,
				LineTotal:   119.98,
			},
		},
	}
}
