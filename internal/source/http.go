package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pathwise/trendintel/internal/api"
	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/model"
)

// HTTPAdapter reads one platform from a JSON trend API.
type HTTPAdapter struct {
	name     string
	platform string
	cfg      config.HTTPSourceConfig
	client   *api.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewHTTPAdapter creates an adapter for the given platform. The client is
// built from cfg; extra options are appended after the config-derived ones.
func NewHTTPAdapter(name, platform string, cfg config.HTTPSourceConfig, logger *slog.Logger, opts ...api.ClientOption) *HTTPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source", name)

	clientOpts := []api.ClientOption{api.WithLogger(logger)}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		clientOpts = append(clientOpts, api.WithRetries(cfg.MaxRetries, api.DefaultRetryBackoff))
	}
	clientOpts = append(clientOpts, opts...)

	return &HTTPAdapter{
		name:     name,
		platform: platform,
		cfg:      cfg,
		client:   api.NewClient(cfg.BaseURL, cfg.APIKey, clientOpts...),
		logger:   logger,
		now:      time.Now,
	}
}

func (a *HTTPAdapter) Name() string     { return a.name }
func (a *HTTPAdapter) Platform() string { return a.platform }

// Configured reports whether the adapter is enabled and has a base URL.
func (a *HTTPAdapter) Configured() bool {
	return a.cfg.Enabled && a.cfg.BaseURL != ""
}

// Fetch pulls every page for the keywords and window. Rows for keywords that
// were not requested, rows outside the window and malformed rows are dropped.
func (a *HTTPAdapter) Fetch(ctx context.Context, keywords []string, window DateWindow) ([]model.TrendDataPoint, error) {
	if !a.Configured() {
		return nil, notConfigured(a.name)
	}

	wanted := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		wanted[api.NormalizeKeyword(kw)] = true
	}

	rows, err := a.client.GetAllTrends(ctx, api.TrendsOptions{
		Platform: a.platform,
		Keywords: keywords,
		From:     api.FormatDate(window.From),
		To:       api.FormatDate(window.To),
	})
	if err != nil {
		return nil, Classify(a.name, err)
	}

	fetchedAt := a.now()
	points := make([]model.TrendDataPoint, 0, len(rows))
	var malformed int
	for _, row := range rows {
		dp, err := row.ToDataPoint("", a.platform, a.name, a.cfg.Confidence, fetchedAt)
		if err != nil {
			malformed++
			a.logger.Debug("dropping malformed row", "keyword", row.Keyword, "err", err)
			continue
		}
		if !wanted[dp.Keyword] || !window.Contains(dp.Date) {
			continue
		}
		points = append(points, dp)
	}

	if len(rows) > 0 && malformed == len(rows) {
		return nil, &SourceError{
			Source: a.name,
			Kind:   KindBadResponse,
			Err:    fmt.Errorf("all %d rows malformed", malformed),
		}
	}
	if malformed > 0 {
		a.logger.Warn("dropped malformed rows", "count", malformed, "total", len(rows))
	}

	return points, nil
}
