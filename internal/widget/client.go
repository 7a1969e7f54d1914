package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	// ChatPath is where messages are posted.
	ChatPath = "/api/chat"
	// StatusPath reports how many knowledge entries the backend has loaded.
	StatusPath = "/debug/csv"

	maxResponseBytes = 1 << 20
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrInFlight     = errors.New("a message is already being sent")
	ErrClosed       = errors.New("chat client is closed")
)

// Control is the input element the client disables while a message is in flight.
type Control interface {
	SetEnabled(enabled bool)
}

// ControlFunc adapts a function to Control.
type ControlFunc func(enabled bool)

// SetEnabled calls f(enabled).
func (f ControlFunc) SetEnabled(enabled bool) { f(enabled) }

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the backend origin, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// HTTPClient defaults to a client without a timeout; a slow backend only delays
	// re-enabling the input.
	HTTPClient *http.Client
	// Knowledge is optional free-form text sent as "kb" with every message.
	Knowledge string
	// Language forces the reply language ("en", "es", "ja"); empty lets the backend detect it.
	Language string
	Control  Control
}

// Client sends chat messages one at a time and appends both sides of the exchange to
// its View.
type Client struct {
	view    View
	baseURL string
	http    *http.Client
	control Control

	mu        sync.RWMutex
	knowledge string
	language  string

	inFlight atomic.Bool
	closed   atomic.Bool
}

type chatRequest struct {
	Message string `json:"message"`
	KB      string `json:"kb,omitempty"`
	Lang    string `json:"lang,omitempty"`
}

type chatResponse struct {
	Reply *string `json:"reply"`
	Error *string `json:"error"`
}

// NewClient binds a client to view.
func NewClient(view View, cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		view:      view,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      httpClient,
		control:   cfg.Control,
		knowledge: cfg.Knowledge,
		language:  strings.ToLower(strings.TrimSpace(cfg.Language)),
	}
}

// SetKnowledge replaces the knowledge context sent with subsequent messages.
func (c *Client) SetKnowledge(kb string) {
	c.mu.Lock()
	c.knowledge = kb
	c.mu.Unlock()
}

// SetLanguage replaces the forced reply language for subsequent messages.
func (c *Client) SetLanguage(lang string) {
	c.mu.Lock()
	c.language = strings.ToLower(strings.TrimSpace(lang))
	c.mu.Unlock()
}

// Sending reports whether a message is currently in flight.
func (c *Client) Sending() bool {
	return c.inFlight.Load()
}

// InputEnabled reports whether the input should accept a new message.
func (c *Client) InputEnabled() bool {
	return !c.inFlight.Load() && !c.closed.Load()
}

// Submit sends text and blocks until the exchange settles. A rejected submission
// (empty text, a message already in flight, closed client) returns an error and has no
// side effects. Otherwise the user message is appended immediately and exactly one bot
// message follows: the reply, the backend's error text, or a network error. Failures
// are only ever reported through the log, so Submit returns nil once settled.
func (c *Client) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}

	c.setInputEnabled(false)
	defer func() {
		c.inFlight.Store(false)
		c.setInputEnabled(true)
	}()

	c.view.Append(RoleUser, text)
	c.view.Append(RoleBot, c.exchange(ctx, text))
	return nil
}

// Close releases idle connections. Later submissions fail with ErrClosed.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.http.CloseIdleConnections()
}

func (c *Client) setInputEnabled(enabled bool) {
	if c.control != nil {
		c.control.SetEnabled(enabled)
	}
}

// exchange performs the request and returns the text of the bot message.
func (c *Client) exchange(ctx context.Context, text string) string {
	c.mu.RLock()
	payload := chatRequest{Message: text, KB: c.knowledge, Lang: c.language}
	c.mu.RUnlock()

	resp, err := c.post(ctx, payload)
	if err != nil {
		return networkErrorText(err)
	}
	switch {
	case resp.Reply != nil:
		return *resp.Reply
	case resp.Error != nil:
		return *resp.Error
	default:
		return networkErrorText(errors.New("response has neither reply nor error"))
	}
}

func (c *Client) post(ctx context.Context, payload chatRequest) (chatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return chatResponse{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(body))
	if err != nil {
		return chatResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return chatResponse{}, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return chatResponse{}, fmt.Errorf("read response: %w", err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// A structured error is still a handled failure, whatever the status.
		if decodeErr == nil && out.Error != nil {
			return chatResponse{Error: out.Error}, nil
		}
		return chatResponse{}, fmt.Errorf("unexpected status %s", res.Status)
	}
	if decodeErr != nil {
		return chatResponse{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	return out, nil
}

func networkErrorText(err error) string {
	return "Network error: " + err.Error()
}
