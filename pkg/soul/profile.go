// Package soul manages per-user personality profiles for the counseling
// assistant.
//
// Every user has exactly one profile. Resolution is get-or-create: a user
// who never configured anything gets the default profile, persisted on
// first touch so later reads and updates see the same row.
package soul

import (
	"context"
	"fmt"
	"strings"

	"github.com/soulrag/soulrag-go/pkg/core"
)

// Accepted tone values.
var validTones = map[string]bool{
	"formal": true,
	"casual": true,
	"funny":  true,
	"direct": true,
	"gentle": true,
}

// Trait levels are expressed on a 1..10 scale.
const (
	MinLevel = 1
	MaxLevel = 10
)

// Profile is one user's personality configuration.
type Profile struct {
	UserID string `json:"user_id"`

	// Tone is one of: formal, casual, funny, direct, gentle.
	Tone string `json:"tone"`

	EmpathyLevel         int `json:"empathy_level"`
	ReasoningDepth       int `json:"reasoning_depth"`
	CreativityLevel      int `json:"creativity_level"`
	MemoryAggressiveness int `json:"memory_aggressiveness"`

	// Boundaries is a free-text description of conversational limits.
	Boundaries string `json:"boundaries"`
}

// Update carries a partial profile change. Nil fields keep their current
// value.
type Update struct {
	Tone                 *string `json:"tone,omitempty"`
	EmpathyLevel         *int    `json:"empathy_level,omitempty"`
	ReasoningDepth       *int    `json:"reasoning_depth,omitempty"`
	CreativityLevel      *int    `json:"creativity_level,omitempty"`
	MemoryAggressiveness *int    `json:"memory_aggressiveness,omitempty"`
	Boundaries           *string `json:"boundaries,omitempty"`
}

// Store persists personality profiles.
type Store interface {
	// Resolve returns the user's profile, creating and persisting the
	// default profile if none exists yet.
	Resolve(ctx context.Context, userID string) (*Profile, error)

	// Update applies a partial change to the user's profile and returns the
	// result. The profile is created with defaults first if absent.
	Update(ctx context.Context, userID string, update *Update) (*Profile, error)

	// Close releases the underlying connection.
	Close() error
}

// DefaultProfile returns the profile assigned to users who never configured
// one.
func DefaultProfile(userID string) *Profile {
	return &Profile{
		UserID:               userID,
		Tone:                 "gentle",
		EmpathyLevel:         5,
		ReasoningDepth:       7,
		CreativityLevel:      5,
		MemoryAggressiveness: 5,
		Boundaries:           "Respectful and supportive",
	}
}

// Validate checks that every trait is within its accepted range.
func (p *Profile) Validate() error {
	if !validTones[p.Tone] {
		return core.NewSoulError("Validate",
			fmt.Errorf("%w: tone %q must be one of formal, casual, funny, direct, gentle", core.ErrInvalidInput, p.Tone))
	}
	levels := map[string]int{
		"empathy_level":         p.EmpathyLevel,
		"reasoning_depth":       p.ReasoningDepth,
		"creativity_level":      p.CreativityLevel,
		"memory_aggressiveness": p.MemoryAggressiveness,
	}
	for name, level := range levels {
		if level < MinLevel || level > MaxLevel {
			return core.NewSoulError("Validate",
				fmt.Errorf("%w: %s %d must be in [%d, %d]", core.ErrInvalidInput, name, level, MinLevel, MaxLevel))
		}
	}
	return nil
}

// Apply copies the non-nil fields of update onto the profile and validates
// the result. The profile is unchanged on error.
func (p *Profile) Apply(update *Update) error {
	next := *p
	if update.Tone != nil {
		next.Tone = *update.Tone
	}
	if update.EmpathyLevel != nil {
		next.EmpathyLevel = *update.EmpathyLevel
	}
	if update.ReasoningDepth != nil {
		next.ReasoningDepth = *update.ReasoningDepth
	}
	if update.CreativityLevel != nil {
		next.CreativityLevel = *update.CreativityLevel
	}
	if update.MemoryAggressiveness != nil {
		next.MemoryAggressiveness = *update.MemoryAggressiveness
	}
	if update.Boundaries != nil {
		next.Boundaries = *update.Boundaries
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}

// Render formats the profile as the personality preamble prepended to every
// answer prompt. Deterministic: equal profiles render to equal strings.
func (p *Profile) Render() string {
	var b strings.Builder
	b.WriteString("--- USER'S AI SOUL PERSONALITY ---\n")
	fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	fmt.Fprintf(&b, "Empathy Level: %d/10\n", p.EmpathyLevel)
	fmt.Fprintf(&b, "Reasoning Depth: %d/10\n", p.ReasoningDepth)
	fmt.Fprintf(&b, "Creativity: %d/10\n", p.CreativityLevel)
	fmt.Fprintf(&b, "Memory Aggressiveness: %d/10\n", p.MemoryAggressiveness)
	fmt.Fprintf(&b, "Boundaries: %s\n", p.Boundaries)
	b.WriteString("\nFollow these personality traits STRICTLY when responding.\n")
	b.WriteString("--------------------------------")
	return b.String()
}
