package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"

	"github.com/pathwise/trendintel/internal/api"
	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/model"
)

// RSSPlatform is the platform recorded on points produced from news feeds.
const RSSPlatform = "news"

// RSSAdapter counts trending-feed items that mention each keyword. The count of
// matching items per day is recorded as that day's content density on the news
// platform.
type RSSAdapter struct {
	cfg    config.RSSSourceConfig
	parser *gofeed.Parser
	logger *slog.Logger
	now    func() time.Time
}

// NewRSSAdapter creates an adapter over the configured feeds.
func NewRSSAdapter(cfg config.RSSSourceConfig, timeout time.Duration, logger *slog.Logger) *RSSAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	if timeout > 0 {
		parser.Client = &http.Client{Timeout: timeout}
	}
	return &RSSAdapter{
		cfg:    cfg,
		parser: parser,
		logger: logger.With("source", "rss-trending"),
		now:    time.Now,
	}
}

func (a *RSSAdapter) Name() string     { return "rss-trending" }
func (a *RSSAdapter) Platform() string { return RSSPlatform }

// Configured reports whether the adapter is enabled with at least one feed.
func (a *RSSAdapter) Configured() bool {
	return a.cfg.Enabled && len(a.cfg.Feeds) > 0
}

type mentionKey struct {
	keyword string
	day     time.Time
}

// Fetch parses every feed and counts mentions. A feed that fails is skipped;
// the adapter fails only when every feed fails.
func (a *RSSAdapter) Fetch(ctx context.Context, keywords []string, window DateWindow) ([]model.TrendDataPoint, error) {
	if !a.Configured() {
		return nil, notConfigured(a.Name())
	}

	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = api.NormalizeKeyword(kw); kw != "" {
			normalized = append(normalized, kw)
		}
	}

	now := a.now()
	counts := make(map[mentionKey]int)
	var feedErrs []error

	for _, url := range a.cfg.Feeds {
		if err := ctx.Err(); err != nil {
			return nil, Classify(a.Name(), err)
		}

		feed, err := a.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			a.logger.Warn("feed fetch failed", "feed", url, "err", err)
			feedErrs = append(feedErrs, fmt.Errorf("fetching %s: %w", url, err))
			continue
		}

		for _, item := range feed.Items {
			pub := now
			if item.PublishedParsed != nil {
				pub = *item.PublishedParsed
			} else if item.UpdatedParsed != nil {
				pub = *item.UpdatedParsed
			}
			if !window.Contains(pub) {
				continue
			}

			text := " " + mentionText(item.Title+" "+item.Description) + " "
			for _, kw := range normalized {
				if strings.Contains(text, " "+kw+" ") {
					counts[mentionKey{keyword: kw, day: model.Day(pub)}]++
				}
			}
		}
	}

	if len(feedErrs) == len(a.cfg.Feeds) {
		return nil, Classify(a.Name(), errors.Join(feedErrs...))
	}

	points := make([]model.TrendDataPoint, 0, len(counts))
	for k, n := range counts {
		points = append(points, model.TrendDataPoint{
			Keyword:        k.keyword,
			Platform:       RSSPlatform,
			Date:           k.day,
			ContentDensity: model.Float(float64(n)),
			Source:         a.Name(),
			Confidence:     a.cfg.Confidence,
			FetchedAt:      now.UTC(),
		})
	}
	return points, nil
}

// mentionText strips markup and punctuation so keywords match on word
// boundaries: "<b>Investasi</b>, untuk pemula!" -> "investasi untuk pemula".
func mentionText(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case inTag:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return api.NormalizeKeyword(b.String())
}
