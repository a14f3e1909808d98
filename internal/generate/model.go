package generate

import (
	"errors"
	"fmt"
	"strings"

	"contentforge/internal/archive"
)

// Sentinel errors surfaced by Submit.
var (
	ErrInvalidInput       = errors.New("generate: invalid input")
	ErrInsufficientCredit = errors.New("generate: insufficient credit")
)

// Kind selects the content category
type Kind string

const (
	KindBlog    Kind = "blog"
	KindSocial  Kind = "social"
	KindEmail   Kind = "email"
	KindProduct Kind = "product"
	KindAd      Kind = "ad"
	KindStory   Kind = "story"
)

// Tone selects the writing voice
type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneCasual        Tone = "casual"
	ToneFunny         Tone = "funny"
	TonePersuasive    Tone = "persuasive"
	ToneEducational   Tone = "educational"
	ToneInspirational Tone = "inspirational"
)

// Length selects the output budget
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Request describes one generation. It is constructed per call and never
// persisted directly.
type Request struct {
	Prompt string `json:"prompt"`
	Kind   Kind   `json:"kind"`
	Tone   Tone   `json:"tone"`
	Length Length `json:"length"`
}

// Result is the outcome of a successful Submit
type Result struct {
	Record  *archive.Record `json:"record"`
	Balance int64           `json:"credits"`
}

var (
	validKinds = map[Kind]bool{
		KindBlog: true, KindSocial: true, KindEmail: true,
		KindProduct: true, KindAd: true, KindStory: true,
	}
	validTones = map[Tone]bool{
		ToneProfessional: true, ToneCasual: true, ToneFunny: true,
		TonePersuasive: true, ToneEducational: true, ToneInspirational: true,
	}
	validLengths = map[Length]bool{
		LengthShort: true, LengthMedium: true, LengthLong: true,
	}
)

// applyDefaults fills empty fields with the original defaults
func (r *Request) applyDefaults() {
	if r.Kind == "" {
		r.Kind = KindBlog
	}
	if r.Tone == "" {
		r.Tone = ToneProfessional
	}
	if r.Length == "" {
		r.Length = LengthMedium
	}
}

func (r *Request) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt must not be empty", ErrInvalidInput)
	}
	if !validKinds[r.Kind] {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, r.Kind)
	}
	if !validTones[r.Tone] {
		return fmt.Errorf("%w: unknown tone %q", ErrInvalidInput, r.Tone)
	}
	if !validLengths[r.Length] {
		return fmt.Errorf("%w: unknown length %q", ErrInvalidInput, r.Length)
	}
	return nil
}

// deriveTitle truncates the prompt to a display title
func deriveTitle(prompt string) string {
	const max = 50
	runes := []rune(prompt)
	if len(runes) <= max {
		return prompt
	}
	return string(runes[:max]) + "..."
}
