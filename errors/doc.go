// Package errors provides the structured error type used across modkit.
// Every container failure is an AppError carrying a machine-readable code,
// so callers can branch with errors.Is against the exported sentinels and
// the introspection endpoints can render it as JSON.
package errors
