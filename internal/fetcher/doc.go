// Package fetcher implements the Data Fetcher component.
//
// The Data Fetcher:
//   - Fans out to every configured source adapter concurrently
//   - Bounds each adapter with its own timeout and the whole stage with an outer one
//   - Proceeds with whatever succeeded; one adapter's failure never aborts the others
//   - Merges incoming points with stored ones by natural key (higher confidence wins)
//   - Writes the changed points for a niche in a single store transaction
package fetcher
