package source

import (
	"log/slog"

	"github.com/pathwise/trendintel/internal/config"
)

// Adapter names.
const (
	NameSearch = "search-trends"
	NameVideo  = "video-trends"
	NameSocial = "social-trends"
)

// Platforms of the HTTP adapters.
const (
	PlatformSearch = "search"
	PlatformVideo  = "video"
	PlatformSocial = "social"
)

// FromConfig builds every known adapter, configured or not, in a fixed order.
func FromConfig(cfg *config.Config, logger *slog.Logger) []Adapter {
	src := cfg.Sources
	return []Adapter{
		NewHTTPAdapter(NameSearch, PlatformSearch, src.Search, logger),
		NewHTTPAdapter(NameVideo, PlatformVideo, src.Video, logger),
		NewHTTPAdapter(NameSocial, PlatformSocial, src.Social, logger),
		NewRSSAdapter(src.RSS, cfg.Fetch.SourceTimeout, logger),
		NewFallbackAdapter(src.Fallback),
	}
}
