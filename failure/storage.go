// Package failure classifies storage-backend errors into a small set of
// sentinels so callers can branch with errors.Is/errors.As instead of
// string-matching driver error messages themselves. The pattern table below
// is shaped around the two storage backends this tree actually ships:
// os.File errors for the filesystem writer, and AWS SDK v2 errors (S3's
// NoSuchKey/AccessDenied/SlowDown-style codes) for audit.S3Archive and
// export.S3Backend.
package failure

import (
	"errors"
	"strings"
)

// Sentinel errors for storage failure classification, used by the audit
// logger's archival backend and the exporter's filesystem/S3 writers.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrDiskFull         = errors.New("no space left on device")
	ErrStorageTimeout   = errors.New("storage operation timed out")
	ErrThrottled        = errors.New("rate limited")
	ErrAuth             = errors.New("authentication failed")
	ErrAccessDenied     = errors.New("access denied")
	ErrNetwork          = errors.New("network error")
)

// StorageError wraps an underlying error with a storage-failure
// classification, preserving the original error for errors.As.
type StorageError struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return e.Op + " " + e.Path + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// WrapWriteError classifies and wraps a write operation error.
func WrapWriteError(err error, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyError(err), Op: "write", Path: path, Err: err}
}

// WrapReadError classifies and wraps a read operation error.
func WrapReadError(err error, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyError(err), Op: "read", Path: path, Err: err}
}

// WrapInitError classifies and wraps a backend initialization error.
func WrapInitError(err error, target string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyError(err), Op: "init", Path: target, Err: err}
}

type errorPattern struct {
	patterns []string
	kind     error
}

// classifierTable is a declarative list of error message patterns, checked
// in order; the first match wins. ErrAccessDenied appears before
// ErrPermissionDenied so "AccessDenied"/"Forbidden"/"403" isn't shadowed.
var classifierTable = []errorPattern{
	{[]string{"AccessDenied", "Forbidden", "403"}, ErrAccessDenied},
	{[]string{"permission denied", "EACCES"}, ErrPermissionDenied},
	{[]string{"no such file", "does not exist", "not found", "ENOENT", "404", "NoSuchKey"}, ErrNotFound},
	{[]string{"no space left", "disk full", "ENOSPC", "quota exceeded"}, ErrDiskFull},
	{[]string{"timeout", "timed out", "deadline exceeded"}, ErrStorageTimeout},
	{[]string{"SlowDown", "rate exceeded", "throttl", "429", "TooManyRequests"}, ErrThrottled},
	{[]string{"NoCredentialProviders", "credentials", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "401", "Unauthorized"}, ErrAuth},
	{[]string{"connection refused", "no route to host", "network unreachable", "DNS", "dial tcp", "i/o timeout"}, ErrNetwork},
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrStorageTimeout
	}

	msg := err.Error()
	for _, entry := range classifierTable {
		if containsAny(msg, entry.patterns...) {
			return entry.kind
		}
	}
	return errors.New("storage error")
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
