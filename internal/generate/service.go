package generate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"contentforge/config"
	"contentforge/internal/archive"
	"contentforge/internal/provider"
)

// Ledger is the balance store consulted and charged by Submit
type Ledger interface {
	GetBalance(ctx context.Context, accountID int64) (int64, error)
	TryDecrement(ctx context.Context, accountID int64) (int64, bool, error)
}

// Archive is the durable record of completed generations
type Archive interface {
	Append(ctx context.Context, rec *archive.Record) (string, error)
}

// Service sequences eligibility check, provider invocation, persistence and
// balance adjustment for each generation.
type Service struct {
	ledger  Ledger
	archive Archive
	text    provider.TextGenerator
	image   provider.ImageGenerator
	cfg     *config.Config
}

// NewService creates a new generation service
func NewService(ledger Ledger, arch Archive, text provider.TextGenerator, image provider.ImageGenerator, cfg *config.Config) *Service {
	return &Service{
		ledger:  ledger,
		archive: arch,
		text:    text,
		image:   image,
		cfg:     cfg,
	}
}

// Submit runs one credit-gated generation.
//
// The ordering is deliberate: persist before decrement, never decrement
// before the provider succeeds. A credit is never consumed without a durable
// artifact to show for it. The cost is a narrow window where a concurrent
// call can slip past the initial balance check; that case is allowed once
// and logged rather than failing an already-delivered result.
func (s *Service) Submit(ctx context.Context, accountID int64, req Request) (*Result, error) {
	req.applyDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}
	if accountID <= 0 {
		return nil, fmt.Errorf("%w: account id must be positive", ErrInvalidInput)
	}

	balance, err := s.ledger.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if balance < 1 {
		return nil, ErrInsufficientCredit
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	content, err := s.text.GenerateText(callCtx, provider.TextRequest{
		Prompt:    req.Prompt,
		Kind:      string(req.Kind),
		Tone:      string(req.Tone),
		Length:    string(req.Length),
		MaxTokens: s.maxTokens(req.Length),
	})
	if err != nil {
		// Unknown kinds share the transient retry policy but get logged apart
		if provider.KindOf(err) == provider.KindUnknown {
			log.Printf("generate: unclassified provider failure for account %d: %v", accountID, err)
		}
		return nil, err
	}

	rec := &archive.Record{
		AccountID: accountID,
		Title:     deriveTitle(req.Prompt),
		Content:   content,
		Kind:      string(req.Kind),
		Tone:      string(req.Tone),
		Length:    string(req.Length),
	}
	if _, err := s.archive.Append(ctx, rec); err != nil {
		// Favor a free generation over losing a credit with no artifact
		return nil, err
	}

	newBalance, ok, err := s.ledger.TryDecrement(ctx, accountID)
	switch {
	case err != nil:
		// The record is already durable; surface the anomaly but deliver
		log.Printf("generate: decrement failed for account %d after delivery: %v", accountID, err)
		newBalance = balance - 1
	case !ok:
		log.Printf("generate: grace generation for account %d, balance raced to zero", accountID)
	}

	return &Result{Record: rec, Balance: newBalance}, nil
}

// GenerateImage runs one image generation. The image path consumes no credit
// and persists nothing.
func (s *Service) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt must not be empty", ErrInvalidInput)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	payload, err := s.image.GenerateImage(callCtx, prompt)
	if err != nil {
		if provider.KindOf(err) == provider.KindUnknown {
			log.Printf("generate: unclassified provider failure: %v", err)
		}
		return nil, err
	}

	return payload, nil
}

func (s *Service) timeout() time.Duration {
	if s.cfg != nil && s.cfg.Provider.Timeout > 0 {
		return time.Duration(s.cfg.Provider.Timeout) * time.Second
	}
	return 60 * time.Second
}

func (s *Service) maxTokens(l Length) int {
	var budget int
	if s.cfg != nil {
		switch l {
		case LengthShort:
			budget = s.cfg.Provider.ShortTokens
		case LengthMedium:
			budget = s.cfg.Provider.MediumTokens
		case LengthLong:
			budget = s.cfg.Provider.LongTokens
		}
	}
	if budget > 0 {
		return budget
	}
	switch l {
	case LengthShort:
		return 300
	case LengthLong:
		return 1000
	default:
		return 600
	}
}
