// Package memory provides an in-process cmdflow.Store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/cmdflow"
)

type record struct {
	serverID  string
	name      string
	body      []byte
	updatedAt time.Time
}

// Store implements cmdflow.Store in memory.
// Payloads are kept as JSON, so callers never share state with the store.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	commands map[string]*record
	now      func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		commands: make(map[string]*record),
		now:      time.Now,
	}
}

// Create stores a new command under a generated UUID.
func (s *Store) Create(ctx context.Context, p *cmdflow.Payload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("cmdflow: marshal payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(p.ServerID, p.Name, "") {
		return "", cmdflow.ErrCommandExists
	}
	id := uuid.NewString()
	s.commands[id] = &record{serverID: p.ServerID, name: p.Name, body: body, updatedAt: s.now()}
	return id, nil
}

// Update replaces a stored command.
func (s *Store) Update(ctx context.Context, id string, p *cmdflow.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cmdflow: marshal payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.commands[id]
	if !ok || rec.serverID != p.ServerID {
		return cmdflow.ErrCommandNotFound
	}
	if s.nameTaken(p.ServerID, p.Name, id) {
		return cmdflow.ErrCommandExists
	}
	rec.name = p.Name
	rec.body = body
	rec.updatedAt = s.now()
	return nil
}

func (s *Store) nameTaken(serverID, name, except string) bool {
	for id, rec := range s.commands {
		if id != except && rec.serverID == serverID && rec.name == name {
			return true
		}
	}
	return false
}

// Get returns nil, nil if the command doesn't exist on that server.
func (s *Store) Get(ctx context.Context, serverID, id string) (*cmdflow.Payload, error) {
	s.mu.RLock()
	rec, ok := s.commands[id]
	s.mu.RUnlock()
	if !ok || rec.serverID != serverID {
		return nil, nil
	}
	return cmdflow.DecodePayload(rec.body)
}

// Delete removes a command. No error if it doesn't exist.
func (s *Store) Delete(ctx context.Context, serverID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.commands[id]; ok && rec.serverID == serverID {
		delete(s.commands, id)
	}
	return nil
}

// List returns the server's commands ordered by name.
func (s *Store) List(ctx context.Context, serverID string) ([]cmdflow.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []cmdflow.Summary{}
	for id, rec := range s.commands {
		if rec.serverID != serverID {
			continue
		}
		var head struct {
			Description string `json:"description"`
		}
		if err := json.Unmarshal(rec.body, &head); err != nil {
			return nil, fmt.Errorf("cmdflow: decode summary: %w", err)
		}
		out = append(out, cmdflow.Summary{
			ID:          id,
			ServerID:    rec.serverID,
			Name:        rec.name,
			Description: head.Description,
			UpdatedAt:   rec.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ cmdflow.Store = (*Store)(nil)
