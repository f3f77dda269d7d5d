// Package redis implements cmdflow.Store on Redis.
//
// Layout, under a configurable prefix:
//
//	<prefix>cmd:<id>         hash: server, name, description, updated, payload
//	<prefix>server:<sid>     set of command ids
//	<prefix>names:<sid>      hash: command name -> id
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/cmdflow"
	backend "github.com/redis/go-redis/v9"
)

// Store implements cmdflow.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "cmdflow:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) cmdKey(id string) string         { return s.prefix + "cmd:" + id }
func (s *Store) serverKey(serverID string) string { return s.prefix + "server:" + serverID }
func (s *Store) namesKey(serverID string) string  { return s.prefix + "names:" + serverID }

func (s *Store) fields(p *cmdflow.Payload) (map[string]any, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("cmdflow: marshal payload: %w", err)
	}
	return map[string]any{
		"server":      p.ServerID,
		"name":        p.Name,
		"description": p.Description,
		"updated":     s.now().UTC().Format(time.RFC3339Nano),
		"payload":     body,
	}, nil
}

// Create stores a new command. The name is claimed first so two creates cannot both win.
func (s *Store) Create(ctx context.Context, p *cmdflow.Payload) (string, error) {
	fields, err := s.fields(p)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()

	claimed, err := s.client.HSetNX(ctx, s.namesKey(p.ServerID), p.Name, id).Result()
	if err != nil {
		return "", fmt.Errorf("cmdflow: claim name: %w", err)
	}
	if !claimed {
		return "", cmdflow.ErrCommandExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.cmdKey(id), fields)
	pipe.SAdd(ctx, s.serverKey(p.ServerID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		s.release(ctx, p.ServerID, p.Name, id)
		return "", fmt.Errorf("cmdflow: save command: %w", err)
	}
	return id, nil
}

// owner returns the server and name a command is stored under.
func (s *Store) owner(ctx context.Context, id string) (serverID, name string, err error) {
	vals, err := s.client.HMGet(ctx, s.cmdKey(id), "server", "name").Result()
	if err != nil {
		return "", "", fmt.Errorf("cmdflow: find command: %w", err)
	}
	serverID, _ = vals[0].(string)
	name, _ = vals[1].(string)
	return serverID, name, nil
}

// Update replaces a stored command, moving its name claim when renamed.
func (s *Store) Update(ctx context.Context, id string, p *cmdflow.Payload) error {
	serverID, oldName, err := s.owner(ctx, id)
	if err != nil {
		return err
	}
	if serverID == "" || serverID != p.ServerID {
		return cmdflow.ErrCommandNotFound
	}
	fields, err := s.fields(p)
	if err != nil {
		return err
	}

	if p.Name != oldName {
		claimed, err := s.client.HSetNX(ctx, s.namesKey(serverID), p.Name, id).Result()
		if err != nil {
			return fmt.Errorf("cmdflow: claim name: %w", err)
		}
		if !claimed {
			return cmdflow.ErrCommandExists
		}
	}

	pipe := s.client.TxPipeline()
	if p.Name != oldName {
		pipe.HDel(ctx, s.namesKey(serverID), oldName)
	}
	pipe.HSet(ctx, s.cmdKey(id), fields)
	if _, err := pipe.Exec(ctx); err != nil {
		if p.Name != oldName {
			s.release(ctx, serverID, p.Name, id)
		}
		return fmt.Errorf("cmdflow: update command: %w", err)
	}
	return nil
}

// release drops a name claim made by id after its write failed.
// The name is only removed while it still points at id.
func (s *Store) release(ctx context.Context, serverID, name, id string) {
	ctx = context.WithoutCancel(ctx)
	key := s.namesKey(serverID)
	if owner, err := s.client.HGet(ctx, key, name).Result(); err == nil && owner == id {
		s.client.HDel(ctx, key, name)
	}
}

// Get returns nil, nil if the command doesn't exist on that server.
func (s *Store) Get(ctx context.Context, serverID, id string) (*cmdflow.Payload, error) {
	vals, err := s.client.HMGet(ctx, s.cmdKey(id), "server", "payload").Result()
	if err != nil {
		return nil, fmt.Errorf("cmdflow: get command: %w", err)
	}
	owner, _ := vals[0].(string)
	body, _ := vals[1].(string)
	if owner == "" || owner != serverID {
		return nil, nil
	}
	return cmdflow.DecodePayload([]byte(body))
}

// Delete removes a command and releases its name. No error if it doesn't exist.
func (s *Store) Delete(ctx context.Context, serverID, id string) error {
	owner, name, err := s.owner(ctx, id)
	if err != nil {
		return err
	}
	if owner == "" || owner != serverID {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.cmdKey(id))
	pipe.SRem(ctx, s.serverKey(serverID), id)
	pipe.HDel(ctx, s.namesKey(serverID), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cmdflow: delete command: %w", err)
	}
	return nil
}

// List returns the server's commands ordered by name.
func (s *Store) List(ctx context.Context, serverID string) ([]cmdflow.Summary, error) {
	ids, err := s.client.SMembers(ctx, s.serverKey(serverID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cmdflow: list commands: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*backend.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, s.cmdKey(id), "name", "description", "updated")
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("cmdflow: list commands: %w", err)
		}
	}

	out := []cmdflow.Summary{}
	for i, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) != 3 || vals[0] == nil {
			continue
		}
		sum := cmdflow.Summary{ID: ids[i], ServerID: serverID}
		sum.Name, _ = vals[0].(string)
		sum.Description, _ = vals[1].(string)
		if ts, ok := vals[2].(string); ok {
			sum.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ cmdflow.Store = (*Store)(nil)
