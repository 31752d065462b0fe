package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrNoKnowledgeBase indicates that a user has no semantic index yet.
	// This is an expected condition for new users, not a storage failure:
	// the orchestrator surfaces it as a user-visible fallback rather than
	// an internal error.
	ErrNoKnowledgeBase = errors.New("knowledge base not ready")

	// ErrInvalidChunking indicates invalid chunk size/overlap parameters.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrGenerationFailed indicates that an LLM generation call failed.
	ErrGenerationFailed = errors.New("llm generation failed")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials indicates a failed login or bad access token.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken indicates a registration attempt with a known email.
	ErrEmailTaken = errors.New("email already registered")
)

// SoulError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &SoulError{
//	    Op:  "Chat",
//	    Err: ErrNoKnowledgeBase,
//	}
//	// Error() returns: "soulrag: Chat: knowledge base not ready"
type SoulError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "soulrag: <Op>: <Err>"
func (e *SoulError) Error() string {
	return fmt.Sprintf("soulrag: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with SoulError.
func (e *SoulError) Unwrap() error {
	return e.Err
}

// NewSoulError creates a new SoulError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewSoulError("Chat", err)
//	}
func NewSoulError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SoulError{
		Op:  op,
		Err: err,
	}
}
