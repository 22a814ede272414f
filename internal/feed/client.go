package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Client queries indicator pages through an Executor and validates each
// response before handing records to the caller.
type Client struct {
	exec   Executor
	logger *slog.Logger
}

// NewClient creates a feed client.
func NewClient(exec Executor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		exec:   exec,
		logger: logger.With("component", "feed"),
	}
}

// Authenticate establishes the API session. It must be called once before
// Query or Next.
func (c *Client) Authenticate(ctx context.Context) error {
	return c.exec.Authenticate(ctx)
}

// Query fetches the first page matching params.
func (c *Client) Query(ctx context.Context, params QueryParams) (Page, error) {
	return c.fetch(ctx, Request{Operation: OpQueryIndicators, Params: params})
}

// Next follows a continuation cursor returned by a previous page.
func (c *Client) Next(ctx context.Context, cursor string) (Page, error) {
	return c.fetch(ctx, Request{Operation: OpQueryIndicators, Cursor: cursor})
}

func (c *Client) fetch(ctx context.Context, req Request) (Page, error) {
	resp, err := c.exec.Execute(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("query indicators: %w", err)
	}

	c.logger.Info("connection to Intel API completed", "endpoint", resp.Endpoint, "status", resp.StatusCode)

	if len(resp.Errors) > 0 {
		return Page{}, &APIError{Endpoint: resp.Endpoint, StatusCode: resp.StatusCode, Messages: resp.Errors}
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusForbidden, http.StatusNotFound:
		return Page{}, &APIError{Endpoint: resp.Endpoint, StatusCode: resp.StatusCode}
	default:
		return Page{}, &UnexpectedResponseError{Endpoint: resp.Endpoint, StatusCode: resp.StatusCode}
	}

	records, err := decodeIndicators(resp.Resources)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", resp.Endpoint, err)
	}

	page := Page{Records: records, NextCursor: resp.NextPage()}
	if page.HasMore() {
		c.logger.Debug("pagination is required", "records", len(records))
	} else {
		c.logger.Debug("pagination is not required", "records", len(records))
	}
	return page, nil
}

func decodeIndicators(resources []json.RawMessage) ([]Indicator, error) {
	records := make([]Indicator, 0, len(resources))
	for i, raw := range resources {
		var head struct {
			ID     string `json:"id"`
			Marker string `json:"_marker"`
			Type   string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("%w: resource %d: %w", ErrMalformedIndicator, i, err)
		}
		if head.ID == "" {
			return nil, fmt.Errorf("%w: resource %d has no id", ErrMalformedIndicator, i)
		}
		if head.Marker == "" {
			return nil, fmt.Errorf("%w: indicator %s has no _marker", ErrMalformedIndicator, head.ID)
		}
		records = append(records, Indicator{
			ID:     head.ID,
			Marker: head.Marker,
			Type:   head.Type,
			Raw:    raw,
		})
	}
	return records, nil
}
