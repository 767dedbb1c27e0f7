// Package client talks to the kanban API service over HTTP and implements the
// board's persistence gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rajan-marasini/task-kanban/domain"
)

const maxResponseSize = 4 << 20

// Client wraps http.Client with the API's JSON envelope handling.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// New creates a Client for baseURL. bearer may be empty when the API runs
// without auth.
func New(baseURL, bearer string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Bearer:  bearer,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response that maps to no domain error.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// FetchBoard loads columns and tasks concurrently.
func (c *Client) FetchBoard(ctx context.Context) ([]domain.Column, []domain.Task, error) {
	var (
		cols  []domain.Column
		tasks []domain.Task
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return c.do(ctx, http.MethodGet, "/columns", nil, nil, &cols)
	})
	eg.Go(func() error {
		return c.do(ctx, http.MethodGet, "/todos", nil, nil, &tasks)
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return cols, tasks, nil
}

// CreateTask posts a new task. Every call carries a fresh idempotency key.
func (c *Client) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	if err := n.Validate(); err != nil {
		return domain.Task{}, err
	}
	var out domain.Task
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	err := c.do(ctx, http.MethodPost, "/todos", n, headers, &out)
	return out, err
}

// PatchTask sends only the fields set in patch.
func (c *Client) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	var out domain.Task
	err := c.do(ctx, http.MethodPatch, taskPath(id), patch, nil, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

func taskPath(id string) string {
	return "/todos/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		buf, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(env.Data) == 0 {
		return &domain.TransportError{Op: op, Err: errors.New("response carries no data")}
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func statusError(op string, status int, raw []byte) error {
	var env envelope
	_ = sonic.Unmarshal(raw, &env)
	if env.Message == "" {
		env.Message = http.StatusText(status)
	}
	apiErr := &APIError{Status: status, Message: env.Message}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case status == http.StatusBadRequest:
		return &domain.ValidationError{Reason: env.Message}
	case status >= http.StatusInternalServerError:
		return &domain.TransportError{Op: op, Err: apiErr}
	default:
		return apiErr
	}
}
