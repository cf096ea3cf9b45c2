// Package progress carries pipeline stage events to observers.
//
// A run reports {stage, message, percent} at every transition. Observers
// include a structured-log observer and a websocket Hub that fans events out
// to connected UI clients and replays the latest event per path on connect.
package progress
