package reply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mailtriage/internal/models"
)

func orderContext() *PromptContext {
	internal := 85.50
	diff := 14.49
	pct := 14.49
	return &PromptContext{
		Subject:    "Order Request",
		SenderName: "Jane Doe",
		Category:   models.CategoryOrder,
		Order: &models.OrderRecord{
			OrderNumber: "ORD-2023-42587",
			Currency:    "USD",
			Items: []*models.LineItem{
				{
					ProductCode:   "PA-12345",
					Description:   "Product A - Premium Widget",
					Quantity:      5,
					UnitPrice:     99.99,
					LineTotal:     499.95,
					InternalPrice: &internal,
					Differential:  &diff,
				},
			},
		},
		Summary: &models.DifferentialSummary{
			TotalOrderValue:   499.95,
			TotalInternalCost: 427.50,
			TotalDifferential: 72.45,
			DifferentialPct:   &pct,
		},
	}
}

func TestParseStructuredJSON(t *testing.T) {
	raw := `{"subject":"RE: Order","body":"Thanks for your order.","recommendation":"Confirm."}`
	generated, err := parseReply(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if generated.Subject != "RE: Order" || generated.Body != "Thanks for your order." || generated.Recommendation != "Confirm." {
		t.Fatalf("unexpected parse result: %+v", generated)
	}
}

func TestParseStructuredToleratesCodeFence(t *testing.T) {
	raw := "```json\n{\"subject\":\"RE: Order\",\"body\":\"Thanks.\"}\n```"
	generated, err := parseReply(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if generated.Subject != "RE: Order" || generated.Body != "Thanks." {
		t.Fatalf("unexpected parse result: %+v", generated)
	}
}

func TestParseLooseSplitsMarkers(t *testing.T) {
	raw := "Subject: RE: Order Request\nBody: Thank you for the order.\nWe will confirm shortly.\nRecommendation: Confirm at quoted prices."
	generated, err := parseReply(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if generated.Subject != "RE: Order Request" {
		t.Fatalf("unexpected subject %q", generated.Subject)
	}
	if !strings.Contains(generated.Body, "Thank you for the order.") || strings.Contains(generated.Body, "Recommendation:") {
		t.Fatalf("unexpected body %q", generated.Body)
	}
	if generated.Recommendation != "Confirm at quoted prices." {
		t.Fatalf("unexpected recommendation %q", generated.Recommendation)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := parseReply("no structure here at all"); err == nil {
		t.Fatalf("expected parse failure")
	}
}

func TestGenerateFallsBackToTemplate(t *testing.T) {
	failing := func(ctx context.Context, pc *PromptContext) (*models.GeneratedReply, error) {
		return nil, errors.New("provider unavailable")
	}
	svc := &Service{strategies: []strategy{failing, templateStrategy}}

	generated, err := svc.Generate(context.Background(), orderContext())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if generated.Source != models.ReplySourceTemplate {
		t.Fatalf("expected template source, got %s", generated.Source)
	}
	if generated.Subject == "" || generated.Body == "" {
		t.Fatalf("fallback reply incomplete: %+v", generated)
	}
	if generated.Recommendation == "" {
		t.Fatalf("order reply must carry a recommendation")
	}
}

func TestOrderTemplateRecommendationBranches(t *testing.T) {
	cases := []struct {
		name string
		diff float64
		want string
	}{
		{"above reference", 72.45, "negotiate"},
		{"below reference", -10.0, "margin review"},
		{"exact match", 0, "ready to process"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pc := orderContext()
			pc.Summary.TotalDifferential = tc.diff
			if tc.diff == 0 {
				pc.Summary.DifferentialPct = nil
			}
			generated := OrderTemplate(pc)
			if generated.Recommendation == "" {
				t.Fatalf("recommendation must never be empty")
			}
			if !strings.Contains(strings.ToLower(generated.Recommendation), tc.want) {
				t.Fatalf("recommendation %q missing %q", generated.Recommendation, tc.want)
			}
		})
	}
}

func TestGenericTemplatePerCategory(t *testing.T) {
	for _, cat := range []models.Category{models.CategoryInquiry, models.CategorySupport, models.CategoryOther} {
		generated := GenericTemplate(&PromptContext{Subject: "Hello", SenderName: "Sam", Category: cat})
		if generated.Subject != "RE: Hello" {
			t.Fatalf("unexpected subject %q for %s", generated.Subject, cat)
		}
		if !strings.Contains(generated.Body, "Dear Sam") {
			t.Fatalf("greeting missing for %s: %q", cat, generated.Body)
		}
	}
}

func TestReplySubject(t *testing.T) {
	if got := replySubject("Order Request"); got != "RE: Order Request" {
		t.Fatalf("got %q", got)
	}
	if got := replySubject("RE: Order Request"); got != "RE: Order Request" {
		t.Fatalf("existing prefix must be kept, got %q", got)
	}
	if got := replySubject("  "); got != "RE: your message" {
		t.Fatalf("got %q", got)
	}
}
