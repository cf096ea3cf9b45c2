package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// GetTrends fetches a page of observations for one platform.
func (c *Client) GetTrends(ctx context.Context, opts TrendsOptions) (*TrendsResponse, error) {
	if opts.Platform == "" {
		return nil, fmt.Errorf("get trends: platform is required")
	}

	query := url.Values{}
	if len(opts.Keywords) > 0 {
		query.Set("keywords", strings.Join(opts.Keywords, ","))
	}
	if opts.From != "" {
		query.Set("from", opts.From)
	}
	if opts.To != "" {
		query.Set("to", opts.To)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	var resp TrendsResponse
	if err := c.get(ctx, "/trends/"+url.PathEscape(opts.Platform), query, &resp); err != nil {
		return nil, fmt.Errorf("get trends %s: %w", opts.Platform, err)
	}

	return &resp, nil
}

// GetAllTrends fetches every page matching opts.
func (c *Client) GetAllTrends(ctx context.Context, opts TrendsOptions) ([]APITrendPoint, error) {
	var all []APITrendPoint
	opts.Limit = c.pageLimit
	seen := make(map[string]bool)

	for {
		resp, err := c.GetTrends(ctx, opts)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.Data...)

		if resp.Cursor == "" {
			break
		}
		// A server that repeats a cursor would otherwise loop forever.
		if seen[resp.Cursor] {
			return nil, fmt.Errorf("get trends %s: cursor %q repeated", opts.Platform, resp.Cursor)
		}
		seen[resp.Cursor] = true
		opts.Cursor = resp.Cursor
	}

	return all, nil
}

// GetStatus checks that the API is reachable and the key is accepted.
func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &resp, nil
}
