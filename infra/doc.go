// Package infra holds the adapters around the core engines: logging,
// metrics exporters, error monitoring, CSV ingestion and the remote sinks
// that receive change records. Packages here depend on core interfaces,
// never the reverse.
package infra
