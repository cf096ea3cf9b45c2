// Package api provides the REST client for JSON trend APIs.
//
// Every HTTP source adapter (search, video, social) talks to a service that
// exposes the same read endpoint:
//
//	GET {base}/trends/{platform}?keywords=a,b&from=YYYY-MM-DD&to=YYYY-MM-DD&cursor=...
//
// and answers with a page of per-keyword, per-day observations. Requests are
// retried with jittered exponential backoff on 429 and 5xx responses.
package api
