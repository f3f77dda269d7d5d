// Package editor ties a command graph being edited to the store it is saved in.
package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meikuraledutech/cmdflow"
	"github.com/meikuraledutech/cmdflow/internal/logging"
)

// Session is one open editor: the graph, where it is saved, and the last saved snapshot.
// The graph is the authority while the session is open; the store only sees snapshots.
type Session struct {
	ServerID  string
	CommandID string // empty until the first successful save
	Graph     *cmdflow.Graph
	Selection Selection

	store     cmdflow.Store
	log       *slog.Logger
	metrics   *Metrics
	graphOpts []cmdflow.GraphOption
	saved     []byte
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithMetrics records loads and saves.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithGraphOptions configures every graph the session creates or loads.
func WithGraphOptions(opts ...cmdflow.GraphOption) Option {
	return func(s *Session) {
		s.graphOpts = opts
	}
}

func newSession(store cmdflow.Store, serverID string, opts []Option) *Session {
	s := &Session{
		ServerID: serverID,
		store:    store,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Graph = cmdflow.New(s.graphOpts...)
	return s
}

// New starts a new, unsaved command for serverID.
func New(store cmdflow.Store, serverID string, opts ...Option) *Session {
	return newSession(store, serverID, opts)
}

// Open loads an existing command. If it cannot be loaded the session still opens,
// on a fresh graph that will be saved as a new command, and the error is returned
// alongside it: ErrCommandNotFound when it does not exist, the store error otherwise.
func Open(ctx context.Context, store cmdflow.Store, serverID, commandID string, opts ...Option) (*Session, error) {
	s := newSession(store, serverID, opts)

	p, err := store.Get(ctx, serverID, commandID)
	if err == nil && p == nil {
		err = cmdflow.ErrCommandNotFound
	}
	if err != nil {
		s.metrics.load("error")
		s.log.Warn("command load failed, starting empty", "server", serverID, "command", commandID, "error", err)
		return s, fmt.Errorf("editor: open %s: %w", commandID, err)
	}

	s.CommandID = commandID
	s.Graph = cmdflow.Deserialize(p, s.graphOpts...)
	s.saved = s.snapshot()
	s.metrics.load("ok")
	s.log.Debug("command loaded", "server", serverID, "command", commandID, "nodes", len(s.Graph.Nodes()))
	return s, nil
}

func (s *Session) snapshot() []byte {
	b, _ := json.Marshal(cmdflow.Serialize(s.Graph, s.ServerID))
	return b
}

// Dirty reports whether the graph differs from the last saved or loaded state.
func (s *Session) Dirty() bool {
	return s.saved == nil || !bytes.Equal(s.saved, s.snapshot())
}

// Save validates the graph and writes it: create on first save, update afterwards.
// A *cmdflow.ValidationError blocks the save. On any failure the graph is left as it
// was so the save can be retried.
func (s *Session) Save(ctx context.Context) error {
	if err := s.Graph.Validate(); err != nil {
		s.metrics.save("invalid")
		return err
	}

	p := cmdflow.Serialize(s.Graph, s.ServerID)
	var err error
	if s.CommandID == "" {
		var id string
		if id, err = s.store.Create(ctx, p); err == nil {
			s.CommandID = id
		}
	} else {
		err = s.store.Update(ctx, s.CommandID, p)
	}
	if err != nil {
		var verr *cmdflow.ValidationError
		if errors.As(err, &verr) {
			s.metrics.save("invalid")
			return err
		}
		s.metrics.save("error")
		s.log.Error("command save failed", "server", s.ServerID, "command", s.CommandID, "error", err)
		return fmt.Errorf("editor: save: %w", err)
	}

	s.saved = s.snapshot()
	s.metrics.save("ok")
	s.log.Info("command saved", "server", s.ServerID, "command", s.CommandID, "name", p.Name)
	return nil
}

// Revert discards unsaved edits, going back to the last saved graph or a fresh one.
func (s *Session) Revert() {
	s.Selection.Clear()
	if s.saved == nil {
		s.Graph = cmdflow.New(s.graphOpts...)
		return
	}
	p, err := cmdflow.DecodePayload(s.saved)
	if err != nil {
		p = nil
	}
	s.Graph = cmdflow.Deserialize(p, s.graphOpts...)
}
