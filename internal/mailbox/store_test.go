package mailbox

import (
	"context"
	"testing"
	"time"

	"mailtriage/internal/models"
)

func TestGenerateEmailsDeterministic(t *testing.T) {
	first := GenerateEmails(30, 42)
	second := GenerateEmails(30, 42)

	if len(first) != 30 || len(second) != 30 {
		t.Fatalf("expected 30 emails, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Subject != second[i].Subject || first[i].Category != second[i].Category {
			t.Fatalf("same seed must produce the same inbox, mismatch at %d", i)
		}
	}
}

func TestGenerateEmailsOrderAlwaysHasPDF(t *testing.T) {
	emails := GenerateEmails(50, 7)

	var orders int
	for _, e := range emails {
		if e.Category != models.CategoryOrder {
			continue
		}
		orders++
		if len(e.Attachments) == 0 {
			t.Fatalf("order email %s has no attachments", e.ID)
		}
		if !e.Attachments[0].IsPDF {
			t.Fatalf("order email %s first attachment is not a PDF", e.ID)
		}
	}
	if orders == 0 {
		t.Fatalf("expected at least one order email in 50 samples")
	}
}

func TestGenerateEmailsNewestFirst(t *testing.T) {
	emails := GenerateEmails(20, 1)
	for i := 1; i < len(emails); i++ {
		if emails[i].ReceivedAt.After(emails[i-1].ReceivedAt) {
			t.Fatalf("inbox not sorted newest first at %d", i)
		}
	}
}

func TestStoreMarkReadAndCounts(t *testing.T) {
	store := NewStore([]*models.Email{
		{ID: "a", Category: models.CategoryOrder},
		{ID: "b", Category: models.CategoryOrder},
		{ID: "c", Category: models.CategorySupport},
	})

	if !store.MarkRead("a") {
		t.Fatalf("expected mark read to succeed")
	}
	if store.MarkRead("missing") {
		t.Fatalf("expected mark read to fail for unknown id")
	}
	if got := store.Get("a"); got == nil || !got.IsRead {
		t.Fatalf("read flag not visible after MarkRead")
	}

	counts := store.Counts()
	if counts[models.CategoryOrder] != 2 || counts[models.CategorySupport] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestMockSender(t *testing.T) {
	sender := &MockSender{}
	ok, err := sender.Send(context.Background(), "a@b.c", "subject", "body")
	if err != nil || !ok {
		t.Fatalf("send = (%v, %v), want success", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := &MockSender{Latency: 50 * time.Millisecond}
	if _, err := slow.Send(ctx, "a@b.c", "subject", "body"); err == nil {
		t.Fatalf("expected context error from cancelled send")
	}
}
