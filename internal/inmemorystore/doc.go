// Package inmemorystore provides a thread-safe, in-memory implementation
// of the genlog.Store interface. It is suitable for development, testing,
// or any run whose generation log does not need to outlive the process.
package inmemorystore
