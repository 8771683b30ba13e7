// Package reply produces the draft response for a triaged email: either an
// order reply narrating the price comparison, or a category-templated generic
// reply. When an LLM client is configured its output is preferred, with a
// deterministic recovery chain behind it; the stage never leaves the user
// without a draft.
package reply

import (
	"context"
	"errors"
	"time"

	"mailtriage/internal/logger"
	"mailtriage/internal/models"

	"go.uber.org/zap"
)

// PromptContext carries everything the generation stage may use.
type PromptContext struct {
	Subject    string
	Body       string
	SenderName string
	Category   models.Category
	Order      *models.OrderRecord
	Summary    *models.DifferentialSummary
}

// Generator is the response-generation stage.
type Generator interface {
	Generate(ctx context.Context, pc *PromptContext) (*models.GeneratedReply, error)
}

// strategy is one recovery step: produce a usable reply or report why not.
type strategy func(ctx context.Context, pc *PromptContext) (*models.GeneratedReply, error)

// Service runs an ordered list of strategies, falling through on failure. The
// final strategy is the static template, which cannot fail, so Generate only
// errors when the context is cancelled.
type Service struct {
	strategies []strategy
	latency    time.Duration
}

// NewService builds the generation stage. llm may be nil, in which case every
// draft comes from the template.
func NewService(llm *LLMClient, latency time.Duration) *Service {
	s := &Service{latency: latency}
	if llm != nil {
		s.strategies = append(s.strategies, llm.generate)
	}
	s.strategies = append(s.strategies, templateStrategy)
	return s
}

func (s *Service) Generate(ctx context.Context, pc *PromptContext) (*models.GeneratedReply, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var lastErr error
	for _, strat := range s.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		generated, err := strat(ctx, pc)
		if err != nil {
			lastErr = err
			logger.Logger.Warn("reply strategy failed, falling back",
				zap.Error(err),
			)
			continue
		}
		if usable(generated) {
			return generated, nil
		}
		lastErr = errors.New("strategy returned unusable reply")
	}
	// templateStrategy never fails; reaching here means a ctx race.
	return nil, lastErr
}

func usable(r *models.GeneratedReply) bool {
	return r != nil && r.Subject != "" && r.Body != ""
}

func templateStrategy(_ context.Context, pc *PromptContext) (*models.GeneratedReply, error) {
	if pc.Order != nil && pc.Summary != nil {
		return OrderTemplate(pc), nil
	}
	return GenericTemplate(pc), nil
}
