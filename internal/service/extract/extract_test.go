package extract

import (
	"context"
	"testing"

	"mailtriage/internal/models"
)

func TestEligible(t *testing.T) {
	cases := []struct {
		name string
		att  *models.Attachment
		want bool
	}{
		{"nil attachment", nil, false},
		{"pdf flag", &models.Attachment{IsPDF: true, ContentType: "application/octet-stream"}, true},
		{"pdf content type", &models.Attachment{ContentType: "application/pdf"}, true},
		{"content type case insensitive", &models.Attachment{ContentType: "APPLICATION/PDF"}, true},
		{"image", &models.Attachment{ContentType: "image/png"}, false},
		{"plain text", &models.Attachment{ContentType: "text/plain"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Eligible(tc.att); got != tc.want {
				t.Fatalf("Eligible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMockExtractorReturnsSampleOrder(t *testing.T) {
	ex := &MockExtractor{}
	att := &models.Attachment{ID: "att-1", Name: "order.pdf", IsPDF: true}

	order, err := ex.Extract(context.Background(), att)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if order == nil {
		t.Fatalf("expected an order record")
	}
	if order.OrderNumber != "ORD-2023-42587" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if len(order.Items) != 3 {
		t.Fatalf("expected 3 line items, got %d", len(order.Items))
	}
	if order.TotalAmount != 1069.90 {
		t.Fatalf("unexpected total amount %v", order.TotalAmount)
	}
}

func TestMockExtractorReturnsFreshCopies(t *testing.T) {
	ex := &MockExtractor{}
	att := &models.Attachment{ID: "att-1", Name: "order.pdf", IsPDF: true}

	first, err := ex.Extract(context.Background(), att)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	first.Items[0].ProductCode = "mutated"

	second, err := ex.Extract(context.Background(), att)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if second.Items[0].ProductCode != "PA-12345" {
		t.Fatalf("extraction results must not share state, got %s", second.Items[0].ProductCode)
	}
}
