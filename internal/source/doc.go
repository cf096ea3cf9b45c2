// Package source defines the adapter capability used by the fetcher and the
// concrete adapters behind it:
//
//   - HTTPAdapter: JSON trend APIs (search, video, social) via internal/api
//   - RSSAdapter: trending news feeds parsed with gofeed
//   - FallbackAdapter: baseline estimates from a local YAML file
//
// Every adapter is optional. An adapter that is not configured reports
// Configured() == false and is skipped by the fetcher. Failures are returned as
// *SourceError so callers can log the kind without inspecting transport errors.
package source
