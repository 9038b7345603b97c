// Package errors provides the structured error type shared by resilkit
// packages and their callers. It implements error codes, HTTP status
// mapping, and retryable detection; the resilience package consults the
// Retryable flag when deciding whether a failed call may be attempted again.
package errors
