package provider

import "context"

// TextRequest describes one text generation call
type TextRequest struct {
	Prompt    string
	Kind      string
	Tone      string
	Length    string
	MaxTokens int
}

// TextGenerator produces text content from a prompt. Implementations make a
// single network call and must not touch the ledger or the archive.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageGenerator produces a single binary image from a prompt
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Checker probes connectivity to the external service
type Checker interface {
	Check(ctx context.Context) (string, error)
}
