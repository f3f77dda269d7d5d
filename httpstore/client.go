// Package httpstore implements cmdflow.Store against the command HTTP endpoint
// served by package api: POST creates, PUT updates.
package httpstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/meikuraledutech/cmdflow"
)

// Client is a cmdflow.Store backed by a remote endpoint.
type Client struct {
	http    *client.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithHeader adds a header to every request, e.g. an Authorization token.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.http.SetHeader(key, value)
	}
}

// New creates a client for the endpoint rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    client.New().SetTimeout(10 * time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) commandsURL(serverID string) string {
	return c.baseURL + "/servers/" + url.PathEscape(serverID) + "/commands"
}

func (c *Client) commandURL(serverID, id string) string {
	return c.commandsURL(serverID) + "/" + url.PathEscape(id)
}

// response is what callers need from an HTTP response once it is released.
type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, method, u string, body any) (response, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetJSON(body)
	}

	var (
		resp *client.Response
		err  error
	)
	switch method {
	case "GET":
		resp, err = req.Get(u)
	case "POST":
		resp, err = req.Post(u)
	case "PUT":
		resp, err = req.Put(u)
	case "DELETE":
		resp, err = req.Delete(u)
	default:
		return response{}, fmt.Errorf("cmdflow: unsupported method %s", method)
	}
	if err != nil {
		return response{}, fmt.Errorf("cmdflow: %s %s: %w", method, u, err)
	}
	defer resp.Close()

	return response{
		status: resp.StatusCode(),
		body:   append([]byte(nil), resp.Body()...),
	}, nil
}

// errorFor turns an unexpected status into an error, surfacing validation problems.
func errorFor(r response) error {
	if r.status == 422 {
		var verr cmdflow.ValidationError
		if err := json.Unmarshal(r.body, &verr); err == nil && len(verr.Problems) > 0 {
			return &verr
		}
	}
	var msg struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.body, &msg); err != nil || msg.Error == "" {
		msg.Error = string(r.body)
	}
	return fmt.Errorf("cmdflow: endpoint returned %d: %s", r.status, msg.Error)
}

// Create posts a new command and returns the id the endpoint assigned.
func (c *Client) Create(ctx context.Context, p *cmdflow.Payload) (string, error) {
	r, err := c.do(ctx, "POST", c.commandsURL(p.ServerID), p)
	if err != nil {
		return "", err
	}
	switch r.status {
	case 201:
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(r.body, &created); err != nil {
			return "", fmt.Errorf("cmdflow: decode create response: %w", err)
		}
		return created.ID, nil
	case 409:
		return "", cmdflow.ErrCommandExists
	}
	return "", errorFor(r)
}

// Update puts a replacement payload.
func (c *Client) Update(ctx context.Context, id string, p *cmdflow.Payload) error {
	r, err := c.do(ctx, "PUT", c.commandURL(p.ServerID, id), p)
	if err != nil {
		return err
	}
	switch r.status {
	case 200, 204:
		return nil
	case 404:
		return cmdflow.ErrCommandNotFound
	case 409:
		return cmdflow.ErrCommandExists
	}
	return errorFor(r)
}

// Get returns nil, nil on 404.
func (c *Client) Get(ctx context.Context, serverID, id string) (*cmdflow.Payload, error) {
	r, err := c.do(ctx, "GET", c.commandURL(serverID, id), nil)
	if err != nil {
		return nil, err
	}
	switch r.status {
	case 200:
		return cmdflow.DecodePayload(r.body)
	case 404:
		return nil, nil
	}
	return nil, errorFor(r)
}

// Delete removes a command.
func (c *Client) Delete(ctx context.Context, serverID, id string) error {
	r, err := c.do(ctx, "DELETE", c.commandURL(serverID, id), nil)
	if err != nil {
		return err
	}
	if r.status == 200 || r.status == 204 || r.status == 404 {
		return nil
	}
	return errorFor(r)
}

// List fetches the server's command summaries.
func (c *Client) List(ctx context.Context, serverID string) ([]cmdflow.Summary, error) {
	r, err := c.do(ctx, "GET", c.commandsURL(serverID), nil)
	if err != nil {
		return nil, err
	}
	if r.status != 200 {
		return nil, errorFor(r)
	}
	out := []cmdflow.Summary{}
	if err := json.Unmarshal(r.body, &out); err != nil {
		return nil, fmt.Errorf("cmdflow: decode list: %w", err)
	}
	return out, nil
}

var _ cmdflow.Store = (*Client)(nil)
