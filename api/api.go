// Package api serves command graphs over HTTP, keyed by server and command id.
//
//	GET    /servers/:serverId/commands        list summaries
//	POST   /servers/:serverId/commands        create, 201 {"id": ...}
//	GET    /servers/:serverId/commands/:id    payload
//	PUT    /servers/:serverId/commands/:id    replace, 204
//	DELETE /servers/:serverId/commands/:id    204
//	GET    /catalog?category=...              block templates
//
// Payloads are repaired and validated before they reach the store; a payload that
// cannot be saved is answered with 422 and the list of problems.
package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/meikuraledutech/cmdflow"
	"github.com/meikuraledutech/cmdflow/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type server struct {
	store   cmdflow.Store
	catalog *cmdflow.Catalog
	log     *slog.Logger
	metrics *metrics
}

// Option configures the application.
type Option func(*server, *options)

type options struct {
	registry *prometheus.Registry
}

// WithLogger sets the logger for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *server, _ *options) {
		s.log = l
	}
}

// WithCatalog replaces the catalog served at /catalog and used to rebuild graphs.
func WithCatalog(c *cmdflow.Catalog) Option {
	return func(s *server, _ *options) {
		s.catalog = c
	}
}

// WithRegistry records request metrics in reg and serves it at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(_ *server, o *options) {
		o.registry = reg
	}
}

// New builds the fiber application over store.
func New(store cmdflow.Store, opts ...Option) *fiber.App {
	s := &server{
		store:   store,
		catalog: cmdflow.DefaultCatalog(),
		log:     logging.NewNop(),
	}
	var o options
	for _, opt := range opts {
		opt(s, &o)
	}

	app := fiber.New()

	if o.registry != nil {
		s.metrics = newMetrics(o.registry)
		app.Use(s.metrics.middleware)
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})))
	}

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ── Catalog ───────────────────────────────────────────────────────
	app.Get("/catalog", s.catalogList)

	// ── Commands ──────────────────────────────────────────────────────
	app.Get("/servers/:serverId/commands", s.list)
	app.Post("/servers/:serverId/commands", s.create)
	app.Get("/servers/:serverId/commands/:id", s.get)
	app.Put("/servers/:serverId/commands/:id", s.update)
	app.Delete("/servers/:serverId/commands/:id", s.delete)

	return app
}

func (s *server) graphOptions() []cmdflow.GraphOption {
	return []cmdflow.GraphOption{cmdflow.WithFactory(cmdflow.NewFactory(s.catalog))}
}

// payload decodes, repairs and validates the request body for serverID.
// It writes the error response itself and returns nil when the body is unusable.
func (s *server) payload(c fiber.Ctx, serverID string) (*cmdflow.Payload, error) {
	p, err := cmdflow.DecodePayload(c.Body())
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if len(p.Nodes) == 0 {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payload has no nodes"})
	}
	if p.TriggerCount() != 1 {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payload must have exactly one trigger"})
	}
	if p.ServerID != "" && p.ServerID != serverID {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "serverId does not match path"})
	}

	g := cmdflow.Deserialize(p, s.graphOptions()...)
	if err := g.Validate(); err != nil {
		var verr *cmdflow.ValidationError
		if errors.As(err, &verr) {
			return nil, c.Status(fiber.StatusUnprocessableEntity).JSON(verr)
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return cmdflow.Serialize(g, serverID), nil
}

func (s *server) fail(c fiber.Ctx, msg string, err error) error {
	s.log.Error(msg, "error", err, "path", c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func (s *server) catalogList(c fiber.Ctx) error {
	if cat := c.Query("category"); cat != "" {
		return c.JSON(s.catalog.ListByCategory(cmdflow.Category(cat)))
	}
	out := []cmdflow.Template{}
	for _, cat := range []cmdflow.Category{
		cmdflow.CategoryTriggers, cmdflow.CategoryOptions, cmdflow.CategoryActions, cmdflow.CategoryConditions,
	} {
		out = append(out, s.catalog.ListByCategory(cat)...)
	}
	return c.JSON(out)
}

func (s *server) list(c fiber.Ctx) error {
	list, err := s.store.List(c.Context(), c.Params("serverId"))
	if err != nil {
		return s.fail(c, "list commands", err)
	}
	return c.JSON(list)
}

func (s *server) create(c fiber.Ctx) error {
	serverID := c.Params("serverId")
	p, err := s.payload(c, serverID)
	if p == nil {
		return err
	}

	id, err := s.store.Create(c.Context(), p)
	if errors.Is(err, cmdflow.ErrCommandExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "command name already used"})
	}
	if err != nil {
		return s.fail(c, "create command", err)
	}
	s.log.Info("command created", "server", serverID, "id", id, "name", p.Name)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *server) get(c fiber.Ctx) error {
	p, err := s.store.Get(c.Context(), c.Params("serverId"), c.Params("id"))
	if err != nil {
		return s.fail(c, "get command", err)
	}
	if p == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "command not found"})
	}
	return c.JSON(p)
}

func (s *server) update(c fiber.Ctx) error {
	serverID, id := c.Params("serverId"), c.Params("id")
	p, err := s.payload(c, serverID)
	if p == nil {
		return err
	}

	err = s.store.Update(c.Context(), id, p)
	if errors.Is(err, cmdflow.ErrCommandNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "command not found"})
	}
	if errors.Is(err, cmdflow.ErrCommandExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "command name already used"})
	}
	if err != nil {
		return s.fail(c, "update command", err)
	}
	s.log.Info("command updated", "server", serverID, "id", id, "name", p.Name)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *server) delete(c fiber.Ctx) error {
	if err := s.store.Delete(c.Context(), c.Params("serverId"), c.Params("id")); err != nil {
		return s.fail(c, "delete command", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
