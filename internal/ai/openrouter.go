package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-4o-mini"

	maxErrorBody = 4 * 1024
	maxLineSize  = 2 * 1024 * 1024
)

// Config is everything a Client needs to reach the completions endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string

	// HeaderTimeout bounds the wait for response headers. Zero means no limit.
	HeaderTimeout time.Duration

	// CompleteOnEOF makes Run treat a stream that closes without the
	// terminator as complete instead of returning a TruncatedError.
	CompleteOnEOF bool

	Logger     *log.Logger
	HTTPClient *http.Client
}

// Client streams chat completions from an OpenRouter compatible endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger
	// longest event line kept; longer lines are skipped
	maxLine int
}

type openRouterChatReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openrouter: api key is required")
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		return nil, errors.New("openrouter: model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	hc := cfg.HTTPClient
	if hc == nil {
		// No global timeout: http.Client.Timeout would also cover reading the
		// body. The caller's context bounds the stream.
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = cfg.HeaderTimeout
		hc = &http.Client{Transport: transport}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{cfg: cfg, http: hc, logger: logger, maxLine: maxLineSize}, nil
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string { return c.cfg.Model }

// Run sends history as one streaming request and aggregates the reply.
//
// onProgress receives the whole accumulated text after every non-empty token;
// onComplete receives the trimmed final text once, when the terminator
// arrives. Either callback may be nil. After ctx is cancelled neither is
// invoked again and Run returns ctx.Err().
func (c *Client) Run(ctx context.Context, history []Message, onProgress, onComplete func(string)) error {
	resp, err := c.open(ctx, history)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	sc := newLineScanner(newTextReader(resp.Body), c.maxLine, func() {
		c.logger.Printf("[openrouter] skipping oversized event model=%s limit=%d", c.cfg.Model, c.maxLine)
	})

	var acc strings.Builder
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok := ParseLine(sc.Text())
		if !ok {
			continue
		}
		switch ev.Kind {
		case EventTerminator:
			if onComplete != nil {
				onComplete(strings.TrimSpace(acc.String()))
			}
			return nil
		case EventUnparseable:
			c.logger.Printf("[openrouter] skipping event model=%s err=%v", c.cfg.Model, &ProtocolError{Line: ev.Raw, Err: ev.Err})
		case EventToken:
			if ev.Text == "" {
				continue
			}
			acc.WriteString(ev.Text)
			if onProgress != nil {
				onProgress(acc.String())
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return &TransportError{Op: "read", Err: err}
	}
	if c.cfg.CompleteOnEOF {
		if onComplete != nil {
			onComplete(strings.TrimSpace(acc.String()))
		}
		return nil
	}
	return &TruncatedError{Partial: acc.String()}
}

func (c *Client) open(ctx context.Context, history []Message) (*http.Response, error) {
	b, err := json.Marshal(openRouterChatReq{
		Model:    c.cfg.Model,
		Messages: history,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.AppName != "" {
		req.Header.Set("X-Title", c.cfg.AppName)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Op: "connect", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &TransportError{
			Op:         "status",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, &TransportError{Op: "body", Err: ErrNoBody}
	}
	return resp, nil
}
