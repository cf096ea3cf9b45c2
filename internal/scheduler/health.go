package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pathwise/trendintel/internal/fetcher"
)

// Health is a read-only diagnostic of the pipeline's inputs.
type Health struct {
	Healthy           bool                   `json:"healthy"`
	StoreOK           bool                   `json:"storeOk"`
	SourcesConfigured int                    `json:"sourcesConfigured"`
	Sources           []fetcher.SourceStatus `json:"sources"`
	DataFresh         bool                   `json:"dataFresh"`
	LastFetched       time.Time              `json:"lastFetched"`
	DataPoints        int                    `json:"dataPoints"`
	Keywords          int                    `json:"keywords"`
	Warnings          []string               `json:"warnings"`
	CheckedAt         time.Time              `json:"checkedAt"`
}

// CheckPipelineHealth reports whether sources are configured, stored data is
// fresh within the staleness window and enough keywords exist to score. It
// never writes.
func (p *Pipeline) CheckPipelineHealth(ctx context.Context) Health {
	h := Health{
		Sources:   p.deps.Fetcher.GetDataSourceStatus(),
		CheckedAt: p.now(),
		Warnings:  []string{},
	}
	for _, s := range h.Sources {
		if s.Configured {
			h.SourcesConfigured++
		}
	}
	if h.SourcesConfigured == 0 {
		h.Warnings = append(h.Warnings, ErrNoDataSources.Error())
	}

	if err := p.deps.Store.Ping(ctx); err != nil {
		h.Warnings = append(h.Warnings, fmt.Sprintf("store unavailable: %v", err))
		return h
	}
	h.StoreOK = true

	stats, err := p.deps.Store.DataPointStats(ctx)
	if err != nil {
		h.Warnings = append(h.Warnings, fmt.Sprintf("data point stats: %v", err))
		return h
	}
	h.DataPoints = stats.Count
	h.Keywords = stats.Keywords
	h.LastFetched = stats.LastFetched

	h.DataFresh = !stats.LastFetched.IsZero() && h.CheckedAt.Sub(stats.LastFetched) <= p.cfg.StalenessWindow
	if !h.DataFresh {
		h.Warnings = append(h.Warnings, fmt.Sprintf("no data fetched within %s", p.cfg.StalenessWindow))
	}
	if h.Keywords < p.cfg.MinKeywords {
		h.Warnings = append(h.Warnings, fmt.Sprintf("%d keywords stored, need %d", h.Keywords, p.cfg.MinKeywords))
	}

	h.Healthy = h.StoreOK && h.SourcesConfigured > 0 && h.DataFresh && h.Keywords >= p.cfg.MinKeywords
	return h
}
