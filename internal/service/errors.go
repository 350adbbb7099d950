package service

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientFetch marks fetch failures worth retrying
	ErrTransientFetch = errors.New("transient fetch failure")
	// ErrPermanentFetch marks fetch failures that will not succeed on retry
	ErrPermanentFetch = errors.New("permanent fetch failure")
	// ErrSkipRecord marks a record missing its identifying field
	ErrSkipRecord = errors.New("record skipped")
)

// FetchError is returned by the Althingi client
type FetchError struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch error for %s: HTTP %d", kind, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s fetch error for %s: %v", kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is match the transient/permanent sentinels
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransientFetch:
		return e.Transient
	case ErrPermanentFetch:
		return !e.Transient
	}
	return false
}

// IsNotFound reports whether err is a fetch error for a missing resource
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == 404
}

// ParseError is returned when a document or record cannot be extracted
type ParseError struct {
	Doc    string
	Record string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("parse %s record %s: %v", e.Doc, e.Record, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Doc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReconciliationError is returned when a record cannot be written. Missing
// is set when a required referenced entity does not exist locally.
type ReconciliationError struct {
	Entity  string
	Key     string
	Missing bool
	Err     error
}

func (e *ReconciliationError) Error() string {
	if e.Missing {
		return fmt.Sprintf("reconcile %s %s: missing reference: %v", e.Entity, e.Key, e.Err)
	}
	return fmt.Sprintf("reconcile %s %s: %v", e.Entity, e.Key, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// ConfigurationError aborts a run before any stage starts
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func skipRecord(doc, record, reason string) *ParseError {
	return &ParseError{Doc: doc, Record: record, Err: fmt.Errorf("%w: %s", ErrSkipRecord, reason)}
}
