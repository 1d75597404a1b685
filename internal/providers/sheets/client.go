// Package sheets is the boundary to the spreadsheet service: append rows to
// the caller's sheet using their stored OAuth token. Spreadsheet creation,
// formatting, and token exchange live outside this service.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipsheet/internal/domain"
)

const defaultTimeout = 15 * time.Second

// AppendRequest appends rows to one spreadsheet.
type AppendRequest struct {
	SpreadsheetID string
	AccessToken   string
	Values        [][]string
}

// Appender appends rows to a spreadsheet.
type Appender interface {
	Append(ctx context.Context, req AppendRequest) error
}

// Client implements Appender against the Sheets REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a Sheets client. baseURL defaults to the public API.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://sheets.googleapis.com/v4"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: base, client: httpClient}
}

// Append implements Appender via spreadsheets.values.append.
func (c *Client) Append(ctx context.Context, req AppendRequest) error {
	if req.SpreadsheetID == "" {
		return fmt.Errorf("%w: spreadsheet id is required", domain.ErrInvalidInput)
	}
	if req.AccessToken == "" {
		return fmt.Errorf("%w: sheets token is missing", domain.ErrInvalidInput)
	}
	if len(req.Values) == 0 {
		return nil
	}

	values := make([][]any, len(req.Values))
	for i, row := range req.Values {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]any{"values": values}); err != nil {
		return fmt.Errorf("encode append payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(req.SpreadsheetID), url.PathEscape("A1"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("build append request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: sheets: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: sheets token rejected", domain.ErrUnauthorized)
	default:
		return fmt.Errorf("%w: sheets status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
}

var _ Appender = (*Client)(nil)

// ErrNoSheet is returned by callers when the account has no sheet configured.
var ErrNoSheet = errors.New("no spreadsheet configured")
