// Package errors provides the shared AdapterError HTTP-status
// classification and the PackageNotFound error used by the registry,
// repo-host and aggregator fetchers. It imports only fmt, so any package
// can depend on it without an import cycle.
package errors
