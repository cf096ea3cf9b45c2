package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/pathwise/trendintel/internal/api"
	"github.com/pathwise/trendintel/internal/model"
)

// Adapter fetches raw observations from one external source.
type Adapter interface {
	// Name identifies the adapter in logs and on data points.
	Name() string

	// Platform is the platform recorded on produced data points.
	Platform() string

	// Configured reports whether the adapter has what it needs to run.
	Configured() bool

	// Fetch returns observations for the keywords within window. NicheID is
	// left empty; the caller stamps it.
	Fetch(ctx context.Context, keywords []string, window DateWindow) ([]model.TrendDataPoint, error)
}

// DateWindow is an inclusive range of UTC days.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// NewDateWindow returns the window of the given number of days ending on now's day.
func NewDateWindow(now time.Time, days int) DateWindow {
	to := model.Day(now)
	if days < 1 {
		days = 1
	}
	return DateWindow{From: to.AddDate(0, 0, -(days - 1)), To: to}
}

// Contains reports whether t falls on a day inside the window.
func (w DateWindow) Contains(t time.Time) bool {
	d := model.Day(t)
	return !d.Before(w.From) && !d.After(w.To)
}

// ErrorKind classifies adapter failures.
type ErrorKind string

const (
	KindUnavailable   ErrorKind = "unavailable"
	KindTimeout       ErrorKind = "timeout"
	KindBadResponse   ErrorKind = "bad_response"
	KindNotConfigured ErrorKind = "not_configured"
	KindUnauthorized  ErrorKind = "unauthorized" // API key rejected
	KindNotFound      ErrorKind = "not_found"    // platform or endpoint unknown to the provider
)

// SourceError is returned by adapters on failure.
type SourceError struct {
	Source string
	Kind   ErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source %s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Classify wraps err as a *SourceError for the named source. Errors that are
// already a *SourceError are returned unchanged.
func Classify(name string, err error) error {
	if err == nil {
		return nil
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return err
	}

	return &SourceError{Source: name, Kind: kindOf(err), Err: err}
}

func kindOf(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsRetryable():
			return KindUnavailable
		case apiErr.IsAuth():
			return KindUnauthorized
		case apiErr.IsNotFound():
			return KindNotFound
		}
		return KindBadResponse
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindBadResponse
	}

	return KindUnavailable
}

// KindOf returns the kind of a *SourceError, or "" for any other error.
func KindOf(err error) ErrorKind {
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return srcErr.Kind
	}
	return ""
}

func notConfigured(name string) error {
	return &SourceError{Source: name, Kind: KindNotConfigured}
}
