package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

var ErrServer = errors.New("md2txt server error")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ConvertOptions is encoded into the query string of /api/convert.
type ConvertOptions struct {
	Stats bool `url:"stats,omitempty"`
}

// ExportOptions is encoded into the query string of /api/export.
type ExportOptions struct {
	Backend string `url:"backend"`
	User    string `url:"user,omitempty"`
	Name    string `url:"name,omitempty"`
}

type Stats struct {
	Headings   int `json:"headings"`
	ListItems  int `json:"list_items"`
	Emphasis   int `json:"emphasis"`
	Strong     int `json:"strong"`
	CodeSpans  int `json:"code_spans"`
	CodeBlocks int `json:"code_blocks"`
	Links      int `json:"links"`
	Images     int `json:"images"`
}

type ConvertResult struct {
	Output string `json:"output"`
	Cached bool   `json:"cached"`
	Stats  *Stats `json:"stats,omitempty"`
}

type ExportResult struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// New returns a client for the server at baseURL. A nil httpClient gets a
// client with a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) Convert(ctx context.Context, text string, opts ConvertOptions) (*ConvertResult, error) {
	var result ConvertResult
	if err := c.post(ctx, "/api/convert", opts, text, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Export(ctx context.Context, text string, opts ExportOptions) (*ExportResult, error) {
	var result ExportResult
	if err := c.post(ctx, "/api/export", opts, text, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, opts any, text string, out any) error {
	q, err := query.Values(opts)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	target := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return fmt.Errorf("%w: %d %s", ErrServer, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
