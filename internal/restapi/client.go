// Package restapi calls the HTTP endpoints which start document processing
// and persist prompts. Processing results are streamed back over the
// subscription identified by the connection id sent with the request.
package restapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/promptstream/promptstream/internal/build"
	"github.com/promptstream/promptstream/internal/frame"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/encoding/json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultMaxIdleConnsPerHost for HTTP client created by NewHTTPClient.
const DefaultMaxIdleConnsPerHost = 16

const (
	pathStartProcess  = "/start-process-pdf"
	pathManagePrompts = "/manage-prompts"
)

// ErrMissingConnectionID returned from Submit when there is no session to
// stream results into.
var ErrMissingConnectionID = errors.New("restapi: connection id required")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	// Message is the error field of the response body if present.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("restapi: %s (status %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("restapi: unexpected HTTP status code: %d", e.Code)
}

// SubmitRequest starts evaluation of File with Prompt.
type SubmitRequest struct {
	ConnectionID string
	Stage        string
	// DomainName is the streaming endpoint the backend pushes results to.
	DomainName string
	// File content, sent base64-encoded. Nil sends null.
	File   []byte
	Prompt string
}

// SubmitResponse ...
type SubmitResponse struct {
	Response string
}

// Prompt is a saved prompt.
type Prompt struct {
	Demo   string `json:"demo,omitempty" yaml:"demo,omitempty"`
	Title  string `json:"title" yaml:"title"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// Client of the processing REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithLogger sets logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewHTTPClient creates http.Client suitable for Client.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		},
		Timeout: timeout,
	}
}

// New creates Client. A nil httpClient means http.DefaultClient.
func New(baseURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("restapi: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("restapi: base url scheme must be http or https, got %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "restapi").Logger()
	return c, nil
}

// Submit starts processing. The result itself arrives as chunk frames on
// the subscription with req.ConnectionID, the returned response is the
// backend acknowledgement.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if req.ConnectionID == "" {
		return SubmitResponse{}, ErrMissingConnectionID
	}
	body, err := submitBody(req)
	if err != nil {
		return SubmitResponse{}, err
	}
	data, err := c.call(ctx, "submit", http.MethodPost, pathStartProcess, body)
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{Response: gjson.GetBytes(data, "response").String()}, nil
}

func submitBody(req SubmitRequest) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		body, err = sjson.SetBytes(body, path, value)
	}
	set(frame.FieldAction, frame.ActionProcessImage)
	set(frame.FieldConnectionID, req.ConnectionID)
	set("stage", req.Stage)
	set("domainName", req.DomainName)
	if req.File != nil {
		set("file", base64.StdEncoding.EncodeToString(req.File))
	} else {
		set("file", nil)
	}
	set("prompt", req.Prompt)
	set(frame.FieldType, frame.TypeEvaluation)
	if err != nil {
		return nil, fmt.Errorf("restapi: build request: %w", err)
	}
	return body, nil
}

// ListPrompts returns prompts saved for demo.
func (c *Client) ListPrompts(ctx context.Context, demo string) ([]Prompt, error) {
	path := pathManagePrompts + "?" + url.Values{"demo": []string{demo}}.Encode()
	data, err := c.call(ctx, "list_prompts", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var prompts []Prompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("restapi: decode prompts: %w", err)
	}
	return prompts, nil
}

// SavePrompt stores p.
func (c *Client) SavePrompt(ctx context.Context, p Prompt) error {
	if p.Title == "" || p.Prompt == "" {
		return errors.New("restapi: prompt title and text required")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("restapi: encode prompt: %w", err)
	}
	_, err = c.call(ctx, "save_prompt", http.MethodPost, pathManagePrompts, body)
	return err
}

func (c *Client) call(ctx context.Context, method string, httpMethod string, path string, body []byte) ([]byte, error) {
	started := time.Now()
	defer func() {
		callDurationHistogram.WithLabelValues(method).Observe(time.Since(started).Seconds())
	}()
	data, err := c.do(ctx, httpMethod, path, body)
	if err != nil {
		callErrorCount.WithLabelValues(method).Inc()
		c.logger.Error().Err(err).Str("method", method).Msg("error calling REST API")
		return nil, err
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, httpMethod string, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("error constructing HTTP request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.logger.Debug().Str("request_id", requestID).Str("method", httpMethod).Str("path", path).Msg("calling REST API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading HTTP body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Code:    resp.StatusCode,
			Message: gjson.GetBytes(respData, "error").String(),
		}
	}
	return respData, nil
}
