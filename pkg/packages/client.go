// Package packages is a small client for the packages-site JSON API.
// The contract is deliberately forgiving: any non-2xx status or
// non-JSON body means "not found", never a hard error. Only transport
// failures surface as errors so callers can log and move on.
package packages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aosc-dev/pakreq/internal/apperror"
)

// Package is the slice of the index response the daemon cares about.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{baseURL: baseURL, client: httpClient, logger: logger}, nil
}

type packageInfoResponse struct {
	Pkg *Package `json:"pkg"`
}

type searchResponse struct {
	Packages []Package `json:"packages"`
}

// FindPackage looks a package up by exact name. (nil, nil) when the
// index does not know it.
func (c *Client) FindPackage(ctx context.Context, name string) (*Package, error) {
	var out packageInfoResponse
	ok, err := c.getJSON(ctx, fmt.Sprintf("%s/packages/%s", c.baseURL, url.PathEscape(name)), nil, &out)
	if err != nil || !ok {
		return nil, err
	}

	return out.Pkg, nil
}

// SearchPackages returns the index's name matches for a query.
func (c *Client) SearchPackages(ctx context.Context, name string) ([]Package, error) {
	var out searchResponse
	ok, err := c.getJSON(ctx, c.baseURL+"/search/", url.Values{"q": {name}}, &out)
	if err != nil || !ok {
		return nil, err
	}

	return out.Packages, nil
}

// getJSON performs a GET with type=json and decodes the body into v.
// ok=false means the index answered but had nothing useful (non-2xx or
// undecodable body).
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, v any) (ok bool, err error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build index request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, apperror.Unavailable("package index unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("index lookup miss", "url", rawURL, "status", resp.StatusCode)
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		c.logger.Debug("index returned non-JSON body", "url", rawURL, "err", err)
		return false, nil
	}

	return true, nil
}
