package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mailtriage/internal/models"
	"mailtriage/internal/service/extract"
	"mailtriage/internal/service/pricing"
	"mailtriage/internal/service/reply"
)

type stubExtractor struct {
	fn func(ctx context.Context, att *models.Attachment) (*models.OrderRecord, error)
}

func (s *stubExtractor) Extract(ctx context.Context, att *models.Attachment) (*models.OrderRecord, error) {
	return s.fn(ctx, att)
}

func sampleEmail() *models.Email {
	return &models.Email{
		ID:      "em-1",
		Subject: "Order Request",
		From:    models.EmailAddress{Name: "Jane Doe", Address: "jane@acme.example"},
		Attachments: []*models.Attachment{
			{ID: "att-1", Name: "order.pdf", ContentType: "application/pdf", IsPDF: true},
			{ID: "att-2", Name: "notes.txt", ContentType: "text/plain"},
		},
		Category: models.CategoryOrder,
	}
}

func newTestController(ex extract.Extractor) *Controller {
	return NewController(ex, pricing.NewService(nil, 0), reply.NewService(nil, 0))
}

func TestProcessCompletesAndStoresResult(t *testing.T) {
	ctrl := newTestController(&extract.MockExtractor{})
	email := sampleEmail()

	var stages []models.RunState
	result, err := ctrl.Process(context.Background(), email, "att-1", func(state models.RunState) {
		stages = append(stages, state)
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := []models.RunState{models.StateExtracting, models.StateComparing, models.StateGenerating, models.StateComplete}
	if len(stages) != len(want) {
		t.Fatalf("stage sequence %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stage[%d] = %s, want %s", i, stages[i], want[i])
		}
	}

	if result.Order == nil || result.Summary == nil || result.Reply == nil {
		t.Fatalf("incomplete result: %+v", result)
	}
	if result.Summary.DifferentialPct == nil {
		t.Fatalf("expected differential percentage on sample order")
	}
	if ctrl.State(email.ID) != models.StateComplete {
		t.Fatalf("state = %s, want complete", ctrl.State(email.ID))
	}
	stored := ctrl.Result(email.ID)
	if stored == nil || stored.Order.OrderNumber != result.Order.OrderNumber {
		t.Fatalf("stored result mismatch: %+v", stored)
	}
}

func TestProcessNoOrderDataEndsIdle(t *testing.T) {
	ctrl := newTestController(&stubExtractor{
		fn: func(context.Context, *models.Attachment) (*models.OrderRecord, error) {
			return nil, nil
		},
	})
	email := sampleEmail()

	_, err := ctrl.Process(context.Background(), email, "att-1", nil)
	if !errors.Is(err, ErrNoOrderData) {
		t.Fatalf("err = %v, want ErrNoOrderData", err)
	}
	if ctrl.State(email.ID) != models.StateIdle {
		t.Fatalf("state = %s, want idle", ctrl.State(email.ID))
	}
	if ctrl.Result(email.ID) != nil {
		t.Fatalf("no artifacts may survive an extraction miss")
	}
}

func TestProcessStageFailureHidesCause(t *testing.T) {
	ctrl := newTestController(&stubExtractor{
		fn: func(context.Context, *models.Attachment) (*models.OrderRecord, error) {
			return nil, errors.New("upstream exploded with credentials abc123")
		},
	})
	email := sampleEmail()

	_, err := ctrl.Process(context.Background(), email, "att-1", nil)
	if !errors.Is(err, ErrProcessingFailed) {
		t.Fatalf("err = %v, want ErrProcessingFailed", err)
	}
	if strings.Contains(err.Error(), "abc123") {
		t.Fatalf("cause must not leak to the caller: %v", err)
	}
	if ctrl.State(email.ID) != models.StateIdle {
		t.Fatalf("state = %s, want idle after failure", ctrl.State(email.ID))
	}
}

func TestProcessRejectsIneligibleAttachment(t *testing.T) {
	ctrl := newTestController(&extract.MockExtractor{})
	email := sampleEmail()

	if _, err := ctrl.Process(context.Background(), email, "att-2", nil); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
	if _, err := ctrl.Process(context.Background(), email, "missing", nil); !errors.Is(err, ErrUnknownAttachment) {
		t.Fatalf("err = %v, want ErrUnknownAttachment", err)
	}
	if ctrl.State(email.ID) != models.StateIdle {
		t.Fatalf("rejections must not touch run state")
	}
}

func TestProcessRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	ctrl := newTestController(&stubExtractor{
		fn: func(ctx context.Context, _ *models.Attachment) (*models.OrderRecord, error) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return nil, nil
		},
	})
	email := sampleEmail()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Process(context.Background(), email, "att-1", nil)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("first run never started")
	}

	if _, err := ctrl.Process(context.Background(), email, "att-1", nil); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("err = %v, want ErrRunInFlight", err)
	}

	close(release)
	if err := <-done; !errors.Is(err, ErrNoOrderData) {
		t.Fatalf("first run err = %v", err)
	}
}

func TestDraftUsesCategoryTemplate(t *testing.T) {
	ctrl := newTestController(&extract.MockExtractor{})
	email := &models.Email{
		ID:       "em-2",
		Subject:  "Product catalog question",
		From:     models.EmailAddress{Name: "Sam Lee", Address: "sam@example.com"},
		Body:     "Do you offer volume discounts?",
		Category: models.CategoryInquiry,
	}

	generated, err := ctrl.Draft(context.Background(), email)
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if generated.Source != models.ReplySourceTemplate {
		t.Fatalf("expected template source, got %s", generated.Source)
	}
	if !strings.Contains(generated.Body, "volume discounts") {
		t.Fatalf("inquiry draft missing category content: %q", generated.Body)
	}
	// Drafting must not touch pipeline state.
	if ctrl.State(email.ID) != models.StateIdle {
		t.Fatalf("state = %s, want idle", ctrl.State(email.ID))
	}
}

func TestBeginPublishesBusyStateAtomically(t *testing.T) {
	ctrl := newTestController(&extract.MockExtractor{})

	if err := ctrl.begin("em-1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	// The claim itself must already read as busy; nothing between the claim
	// and the first stage may let a second run through.
	if !ctrl.State("em-1").InFlight() {
		t.Fatalf("claimed run reads as %s, want an in-flight state", ctrl.State("em-1"))
	}
	if err := ctrl.begin("em-1"); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("second claim err = %v, want ErrRunInFlight", err)
	}
}

func TestConcurrentProcessBurstAdmitsOneRun(t *testing.T) {
	const callers = 50

	var inFlight, overlaps int32
	release := make(chan struct{})
	ctrl := newTestController(&stubExtractor{
		fn: func(ctx context.Context, _ *models.Attachment) (*models.OrderRecord, error) {
			if atomic.AddInt32(&inFlight, 1) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			defer atomic.AddInt32(&inFlight, -1)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return nil, nil
		},
	})
	email := sampleEmail()

	start := make(chan struct{})
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			<-start
			_, err := ctrl.Process(context.Background(), email, "att-1", nil)
			errs <- err
		}()
	}
	close(start)

	// Exactly one caller claims the run; the rest bounce off while it blocks.
	for i := 0; i < callers-1; i++ {
		if err := <-errs; !errors.Is(err, ErrRunInFlight) {
			t.Fatalf("caller %d err = %v, want ErrRunInFlight", i, err)
		}
	}
	close(release)
	if err := <-errs; !errors.Is(err, ErrNoOrderData) {
		t.Fatalf("winner err = %v, want ErrNoOrderData", err)
	}
	if got := atomic.LoadInt32(&overlaps); got != 0 {
		t.Fatalf("%d callers observed another run in the extraction stage", got)
	}
}

func TestRerunReplacesPriorResult(t *testing.T) {
	var calls int
	ctrl := newTestController(&stubExtractor{
		fn: func(context.Context, *models.Attachment) (*models.OrderRecord, error) {
			calls++
			return &models.OrderRecord{
				OrderNumber: fmt.Sprintf("ORD-RUN-%d", calls),
				Currency:    "USD",
				Items: []*models.LineItem{
					{ProductCode: "PA-12345", Quantity: 1, UnitPrice: 90.00},
				},
			}, nil
		},
	})
	email := sampleEmail()

	if _, err := ctrl.Process(context.Background(), email, "att-1", nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := ctrl.Process(context.Background(), email, "att-1", nil); err != nil {
		t.Fatalf("second run: %v", err)
	}

	stored := ctrl.Result(email.ID)
	if stored == nil || stored.Order.OrderNumber != "ORD-RUN-2" {
		t.Fatalf("expected second run to replace the first, got %+v", stored)
	}
}
