// Package adminclient is a Go client of the atelier REST API together with
// the form workflow the admin panel drives for each entity.
package adminclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"atelier/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response. It matches the apperrors sentinels with
// errors.Is so callers can branch on the kind of failure.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

func (e *APIError) Is(target error) bool {
	switch target {
	case apperrors.ErrNotFound:
		return e.Status == http.StatusNotFound
	case apperrors.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case apperrors.ErrValidation:
		return e.Status == http.StatusBadRequest
	case apperrors.ErrUpstream:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// Identity is the admin account behind a token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client talks to the API under baseURL, e.g. "http://localhost:8080/api".
type Client struct {
	baseURL string
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// New creates a Client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token, e.g. one restored from disk.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	agent := fiber.Post(c.baseURL + "/auth/login").JSON(fiber.Map{
		"email":    email,
		"password": password,
	})
	if err := c.send(ctx, agent, false, &out); err != nil {
		return err
	}
	c.SetToken(out.Token)
	return nil
}

// Verify asks the server who the token belongs to. A stored token is only
// trusted once the server accepts it.
func (c *Client) Verify(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.send(ctx, fiber.Get(c.baseURL+"/auth/me"), true, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Logout forgets the token.
func (c *Client) Logout() {
	c.SetToken("")
}

// send executes agent and decodes a JSON response into out. The agent is
// released by this call.
func (c *Client) send(ctx context.Context, agent *fiber.Agent, auth bool, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	agent.Timeout(timeout)
	if auth {
		if token := c.Token(); token != "" {
			agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("invalid request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return decodeError(code, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(code int, body []byte) error {
	apiErr := &APIError{Status: code, Message: http.StatusText(code)}
	var payload struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
		apiErr.Fields = payload.Errors
	}
	return apiErr
}
