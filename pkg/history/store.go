// Package history stores and retrieves per-user chat transcripts.
//
// Every chat turn is persisted durably and attributed to exactly one user.
// The recent-window read gives the conversation engine a bounded slice of
// context; the full listing and deletion operations back the transcript
// management API.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/soulrag/soulrag-go/pkg/core"
)

// Turn roles. A turn is authored either by the user or by the assistant;
// no other role is accepted.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one persisted message in a user's transcript.
type Turn struct {
	// ID is a unique, insertion-ordered identifier. It breaks ordering ties
	// between turns sharing a timestamp.
	ID int64 `json:"id"`

	// UserID is the owning user identity.
	UserID string `json:"user_id"`

	// Role is RoleUser or RoleAssistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp is when the turn was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// ListOptions filters and paginates a transcript listing.
type ListOptions struct {
	// Role restricts results to one role when non-empty.
	Role string

	// Offset skips that many turns from the start of the ordering.
	Offset int

	// Limit caps the number of returned turns; zero means no cap.
	Limit int
}

// Store is a durable per-user transcript store.
//
// All reads order turns chronologically, oldest first, with the insertion
// ID breaking timestamp ties. Implementations must scope every operation to
// the given user.
type Store interface {
	// Append persists one turn and returns it with its assigned ID.
	Append(ctx context.Context, userID, role, content string) (*Turn, error)

	// Recent returns the most recent limit turns in chronological order.
	Recent(ctx context.Context, userID string, limit int) ([]*Turn, error)

	// List returns the user's turns per opts, in chronological order.
	List(ctx context.Context, userID string, opts ListOptions) ([]*Turn, error)

	// Count returns the number of the user's turns, optionally filtered to
	// one role. An empty role counts all turns.
	Count(ctx context.Context, userID, role string) (int64, error)

	// DeleteAll removes every turn for the user and returns how many.
	DeleteAll(ctx context.Context, userID string) (int64, error)

	// DeleteBefore removes the user's turns strictly older than the cutoff
	// and returns how many.
	DeleteBefore(ctx context.Context, userID string, before time.Time) (int64, error)

	// Close releases the underlying connection.
	Close() error
}

// ValidRole reports whether role is one of the accepted turn roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// CheckRole returns an error when role is not an accepted turn role.
func CheckRole(role string) error {
	if !ValidRole(role) {
		return core.NewSoulError("CheckRole",
			fmt.Errorf("%w: role %q must be %q or %q", core.ErrInvalidInput, role, RoleUser, RoleAssistant))
	}
	return nil
}
