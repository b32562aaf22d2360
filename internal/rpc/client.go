package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/dirscope/internal/logging"
)

// Caller invokes a named backend command. args is encoded as the request
// payload; the response payload is decoded into result unless result is nil.
type Caller interface {
	Call(ctx context.Context, command string, args any, result any) error
}

// CommandError is returned when the backend answers a command with a
// non-success status.
type CommandError struct {
	Command string
	Status  int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed (status %d): %s", e.Command, e.Status, e.Message)
}

// IsCommandError reports whether err carries a backend rejection and returns it.
func IsCommandError(err error) (*CommandError, bool) {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ErrUndecodable is returned when a successful response body cannot be
// decoded into the caller's result.
var ErrUndecodable = errors.New("undecodable response body")

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4 << 10

// Client sends commands to the backend as JSON over HTTP. Each command is
// a POST to <base>/invoke/<command>.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New creates a Client with default HTTP settings.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout}, logger)
}

// NewWithHTTPClient creates a Client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logging.Component(logger, "rpc"),
	}
}

// Call implements Caller.
func (c *Client) Call(ctx context.Context, command string, args any, result any) error {
	if command == "" {
		return fmt.Errorf("command name is required")
	}

	payload := []byte("{}")
	if args != nil {
		var err error
		payload, err = json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encoding %s args: %w", command, err)
		}
	}

	endpoint := c.baseURL + "/invoke/" + url.PathEscape(command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", command, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from configured base + command name
	if err != nil {
		return fmt.Errorf("calling %s: %w", command, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.logger.Debug("command completed",
		slog.String("command", command),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &CommandError{
			Command: command,
			Status:  resp.StatusCode,
			Message: errorMessage(body),
		}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding %s response: %w: %w", command, ErrUndecodable, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failure body, falling back
// to the trimmed raw text.
func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no response body"
	}
	return msg
}
