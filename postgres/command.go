package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/cmdflow"
)

// Create inserts a new command with a generated UUID.
// The full payload goes to the graph column; name and description are copied out for listing.
func (s *PGStore) Create(ctx context.Context, p *cmdflow.Payload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("cmdflow: marshal payload: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(ctx,
		`INSERT INTO commands (id, server_id, name, description, graph) VALUES ($1, $2, $3, $4, $5)`,
		id, p.ServerID, p.Name, p.Description, body,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", cmdflow.ErrCommandExists
		}
		return "", fmt.Errorf("cmdflow: insert command: %w", err)
	}
	return id, nil
}

// Update replaces a command's payload.
// Returns ErrCommandNotFound if no command with that id exists on the payload's server.
func (s *PGStore) Update(ctx context.Context, id string, p *cmdflow.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cmdflow: marshal payload: %w", err)
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE commands SET name = $1, description = $2, graph = $3, updated_at = NOW()
		 WHERE id = $4 AND server_id = $5`,
		p.Name, p.Description, body, id, p.ServerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cmdflow.ErrCommandExists
		}
		return fmt.Errorf("cmdflow: update command: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return cmdflow.ErrCommandNotFound
	}
	return nil
}

// Get fetches a command's payload.
// Returns nil, nil if not found.
func (s *PGStore) Get(ctx context.Context, serverID, id string) (*cmdflow.Payload, error) {
	var body []byte
	err := s.db.QueryRow(ctx,
		`SELECT graph FROM commands WHERE id = $1 AND server_id = $2`, id, serverID,
	).Scan(&body)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cmdflow: get command: %w", err)
	}
	return cmdflow.DecodePayload(body)
}

// Delete deletes a command.
// No error if the command doesn't exist.
func (s *PGStore) Delete(ctx context.Context, serverID, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM commands WHERE id = $1 AND server_id = $2`, id, serverID)
	if err != nil {
		return fmt.Errorf("cmdflow: delete command: %w", err)
	}
	return nil
}

// List returns a server's commands ordered by name, without reading their graphs.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) List(ctx context.Context, serverID string) ([]cmdflow.Summary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, server_id, name, description, updated_at FROM commands WHERE server_id = $1 ORDER BY name`,
		serverID)
	if err != nil {
		return nil, fmt.Errorf("cmdflow: list commands: %w", err)
	}
	defer rows.Close()

	out := []cmdflow.Summary{}
	for rows.Next() {
		var c cmdflow.Summary
		if err := rows.Scan(&c.ID, &c.ServerID, &c.Name, &c.Description, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("cmdflow: scan command: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cmdflow: rows commands: %w", err)
	}
	return out, nil
}
