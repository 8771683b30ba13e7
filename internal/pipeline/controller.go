// Package pipeline owns the processing state machine for one email's
// attachment: extraction, price comparison, aggregation, and response
// generation, strictly in sequence. One run per email may be in flight; a
// second request is rejected while the first runs.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"mailtriage/internal/logger"
	"mailtriage/internal/models"
	"mailtriage/internal/service/extract"
	"mailtriage/internal/service/pricing"
	"mailtriage/internal/service/reply"

	"go.uber.org/zap"
)

var (
	// ErrRunInFlight signals a concurrent process request for the same email.
	ErrRunInFlight = errors.New("processing in progress")
	// ErrNotEligible rejects non-document attachments before any stage runs.
	ErrNotEligible = errors.New("only PDF attachments can be processed")
	// ErrNoOrderData reports an extraction miss: the run halted cleanly at
	// idle because the document held no recoverable order data.
	ErrNoOrderData = errors.New("no order data found in attachment")
	// ErrUnknownAttachment reports an attachment id not on the email.
	ErrUnknownAttachment = errors.New("attachment not found")
	// ErrProcessingFailed is the generic user-facing failure; the stage and
	// cause are logged, never returned.
	ErrProcessingFailed = errors.New("processing failed")
)

// Result bundles the artifacts of one completed run. It replaces any prior
// result for the same email wholesale.
type Result struct {
	EmailID      string                      `json:"email_id"`
	AttachmentID string                      `json:"attachment_id"`
	Order        *models.OrderRecord         `json:"order"`
	Summary      *models.DifferentialSummary `json:"summary"`
	Reply        *models.GeneratedReply      `json:"reply"`
	CompletedAt  time.Time                   `json:"completed_at"`
}

// StageFn observes every state transition of a run.
type StageFn func(state models.RunState)

// Controller sequences the pipeline stages and tracks per-email run state.
type Controller struct {
	extractor extract.Extractor
	pricing   *pricing.Service
	generator reply.Generator

	mu      sync.Mutex
	states  map[string]models.RunState
	results map[string]*Result
}

func NewController(extractor extract.Extractor, pricingSvc *pricing.Service, generator reply.Generator) *Controller {
	return &Controller{
		extractor: extractor,
		pricing:   pricingSvc,
		generator: generator,
		states:    make(map[string]models.RunState),
		results:   make(map[string]*Result),
	}
}

// SetGenerator swaps the generation stage, used when a provider key saved
// through settings enables (or replaces) the LLM-backed generator.
func (c *Controller) SetGenerator(g reply.Generator) {
	c.mu.Lock()
	c.generator = g
	c.mu.Unlock()
}

func (c *Controller) currentGenerator() reply.Generator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generator
}

// State returns the current run state for an email (idle when never run).
func (c *Controller) State(emailID string) models.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[emailID]; ok {
		return state
	}
	return models.StateIdle
}

// Result returns the stored result of the last completed run, or nil.
func (c *Controller) Result(emailID string) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[emailID]
	if !ok {
		return nil
	}
	cp := *res
	cp.Order = res.Order.Clone()
	return &cp
}

// Draft generates a reply for an email outside a pipeline run. Inquiry,
// support, and other categories get their drafts this way, with no pricing
// context attached.
func (c *Controller) Draft(ctx context.Context, email *models.Email) (*models.GeneratedReply, error) {
	return c.currentGenerator().Generate(ctx, &reply.PromptContext{
		Subject:    email.Subject,
		Body:       email.Body,
		SenderName: email.From.Name,
		Category:   email.Category,
	})
}

// Process runs the full pipeline for one attachment. stageFn, when non-nil,
// is invoked on every state transition. The guard is a boundary check, not a
// lock held across stages: stages themselves run unlocked in the caller's
// goroutine.
func (c *Controller) Process(ctx context.Context, email *models.Email, attachmentID string, stageFn StageFn) (*Result, error) {
	att := email.AttachmentByID(attachmentID)
	if att == nil {
		return nil, ErrUnknownAttachment
	}
	if !extract.Eligible(att) {
		return nil, ErrNotEligible
	}

	if err := c.begin(email.ID); err != nil {
		return nil, err
	}

	notify := func(state models.RunState) {
		c.setState(email.ID, state)
		if stageFn != nil {
			stageFn(state)
		}
	}

	// begin already published extracting; only the callback fires here.
	if stageFn != nil {
		stageFn(models.StateExtracting)
	}
	order, err := c.extractor.Extract(ctx, att)
	if err != nil {
		return nil, c.fail(email.ID, "extract", err)
	}
	if order == nil {
		c.setState(email.ID, models.StateIdle)
		return nil, ErrNoOrderData
	}

	notify(models.StateComparing)
	order.Items, err = c.pricing.Compare(ctx, order.Items)
	if err != nil {
		return nil, c.fail(email.ID, "compare", err)
	}
	summary := pricing.Aggregate(order.Items)

	notify(models.StateGenerating)
	generated, err := c.currentGenerator().Generate(ctx, &reply.PromptContext{
		Subject:    email.Subject,
		Body:       email.Body,
		SenderName: email.From.Name,
		Category:   email.Category,
		Order:      order,
		Summary:    summary,
	})
	if err != nil {
		return nil, c.fail(email.ID, "generate", err)
	}

	result := &Result{
		EmailID:      email.ID,
		AttachmentID: attachmentID,
		Order:        order,
		Summary:      summary,
		Reply:        generated,
		CompletedAt:  time.Now(),
	}
	c.mu.Lock()
	c.results[email.ID] = result
	c.states[email.ID] = models.StateComplete
	c.mu.Unlock()
	if stageFn != nil {
		stageFn(models.StateComplete)
	}
	return result, nil
}

// begin claims the email for a new run by publishing the first stage while
// the guard mutex is still held; a second request can never observe the gap
// between the claim and the run going busy. Any prior result is dropped up
// front: a redo replaces the previous artifacts wholesale, and a failed run
// must not leave stale state behind.
func (c *Controller) begin(emailID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[emailID].InFlight() {
		return ErrRunInFlight
	}
	delete(c.results, emailID)
	c.states[emailID] = models.StateExtracting
	return nil
}

func (c *Controller) setState(emailID string, state models.RunState) {
	c.mu.Lock()
	c.states[emailID] = state
	c.mu.Unlock()
}

// fail logs the stage and cause, resets the machine to idle, and returns the
// generic failure for the caller to surface.
func (c *Controller) fail(emailID, stage string, cause error) error {
	logger.Logger.Error("pipeline stage failed",
		zap.String("email_id", emailID),
		zap.String("stage", stage),
		zap.Error(cause),
	)
	c.setState(emailID, models.StateIdle)
	return ErrProcessingFailed
}
