package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cache operations.
// Use errors.Is() to check for these specific conditions.
var (
	// ErrNotFound is returned by backends when a key doesn't exist or has
	// expired. The Store translates it into a plain miss.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when using a closed cache connection.
	ErrClosed = errors.New("cache: connection closed")

	// ErrInvalidTTL is returned when a TTL value is negative.
	ErrInvalidTTL = errors.New("cache: invalid TTL")
)

// ConfigError represents a configuration error during cache initialization.
// These errors are fail-fast and surface at application startup.
type ConfigError struct {
	Field   string // Configuration field that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache configuration error: %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("cache configuration error: %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: err}
}

// ConnectionError represents a cache connection error.
// These errors may be transient and are swallowed by the Store.
type ConnectionError struct {
	Op      string // Operation that failed (e.g., "dial", "ping")
	Address string // Cache server address
	Err     error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cache connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new connection error.
func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Address: address, Err: err}
}

// OperationError represents a failure of a single cache operation
// (Get, Set, Delete, DeletePattern, ...).
type OperationError struct {
	Op  string // Operation that failed
	Key string // Cache key or pattern involved
	Err error  // Underlying error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("cache operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}
