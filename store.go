package cmdflow

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownKind      = errors.New("cmdflow: unknown node kind")
	ErrUnknownBlock     = errors.New("cmdflow: unknown block")
	ErrCategoryMismatch = errors.New("cmdflow: category does not match node kind")
	ErrTriggerExists    = errors.New("cmdflow: graph already has a trigger node")
	ErrInvalidNodeID    = errors.New("cmdflow: invalid or duplicate node id")
	ErrInvalidData      = errors.New("cmdflow: invalid node data")
	ErrCommandNotFound  = errors.New("cmdflow: command not found")
	ErrCommandExists    = errors.New("cmdflow: command name already used on this server")
)

// Summary is the list view of a stored command. It is read from the top-level payload
// fields, so listing never parses full graphs.
type Summary struct {
	ID          string    `json:"id"`
	ServerID    string    `json:"serverId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store defines the contract for persisting command graphs.
// Saves are last-write-wins; no merge is attempted.
type Store interface {
	// Create stores a new command and returns its generated ID.
	// Returns ErrCommandExists if the server already has a command with that name.
	Create(ctx context.Context, p *Payload) (string, error)

	// Update replaces a stored command.
	// Returns ErrCommandNotFound if it doesn't exist.
	Update(ctx context.Context, id string, p *Payload) error

	// Get returns nil, nil if the command doesn't exist on that server.
	Get(ctx context.Context, serverID, id string) (*Payload, error)

	// Delete is a no-op if the command doesn't exist.
	Delete(ctx context.Context, serverID, id string) error

	// List returns the server's commands ordered by name.
	// Returns an empty slice (not nil) if none found.
	List(ctx context.Context, serverID string) ([]Summary, error)
}
