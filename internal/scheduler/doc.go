// Package scheduler runs the trend pipeline for an economic path.
//
// A run moves through IDLE, FETCHING, SCORING, SIGNALING, CLEANING and ends in
// DONE, PARTIAL_DONE or FAILED. Runs for different paths proceed concurrently;
// a second run for a path that is already in flight either joins the running
// one and receives its result, or is rejected with ErrConcurrentRun,
// depending on the configured policy.
//
// Callers never see a panic or a bare error: every run returns a RunResult
// whose Outcome is success, partial or failure with a reason.
//
// Refresher re-runs stale niches on an interval for long-running servers.
package scheduler
