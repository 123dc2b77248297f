package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL    = "https://api.tavily.com"
	researchPath      = "/research"
	contentTypeStream = "text/event-stream"
)

// Settings provides the base configuration for a Client.
type Settings struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client is a thin HTTP wrapper around the research agent API. It owns no
// per-audit state; one Client may serve many audits.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	logger     *zap.Logger
}

// Initiator starts an audit and hands back either a live stream or a status body.
type Initiator interface {
	Research(ctx context.Context, req ResearchRequest) (*ResearchResponse, error)
}

// StatusChecker fetches the current status of an asynchronous job.
type StatusChecker interface {
	Status(ctx context.Context, requestID string) (*StatusResponse, error)
}

// API is the full surface the orchestrator needs from the agent service.
type API interface {
	Initiator
	StatusChecker
}

func NewClient(cfg Settings, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("agent api key missing")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	// No http.Client.Timeout: it would also cap reading a streamed body,
	// cutting off long audits. Response headers are bounded here; body reads
	// are bounded per call (a context deadline for JSON calls, the caller's
	// context for streams).
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: timeout,
	}
	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// Research initiates an audit. The server decides the transport: a
// text/event-stream response yields ResearchResponse.Stream (caller closes),
// anything else is decoded as a status body, which may already be terminal.
func (c *Client) Research(ctx context.Context, req ResearchRequest) (*ResearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("agent: encode research request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+researchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Stream {
		httpReq.Header.Set("Accept", contentTypeStream)
	}

	resp, err := c.do(httpReq, "research")
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == contentTypeStream {
		c.logger.Debug("research accepted as stream")
		return &ResearchResponse{Stream: resp.Body}, nil
	}

	defer resp.Body.Close()
	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &TransportError{Op: "research", Err: fmt.Errorf("decode response: %w", err)}
	}
	c.logger.Debug("research accepted",
		zap.String("status", status.Status),
		zap.String("request_id", status.RequestID))
	return &ResearchResponse{Status: &status}, nil
}

// Status checks one in-flight job. The whole exchange is bounded by the
// client timeout; a slow check surfaces as a transient error and the poll
// loop treats it as still pending.
func (c *Client) Status(ctx context.Context, requestID string) (*StatusResponse, error) {
	if requestID == "" {
		return nil, errors.New("agent: request id required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+researchPath+"/"+requestID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.do(httpReq, "status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &TransportError{Op: "status", Err: fmt.Errorf("decode response: %w", err)}
	}
	if status.RequestID == "" {
		status.RequestID = requestID
	}
	return &status, nil
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return resp, nil
}
