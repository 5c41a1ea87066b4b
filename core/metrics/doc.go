// Package metrics defines the events emitted by the matching, conflict,
// reassignment and sync components and the sink interface that records them.
// Sinks like PromSink and InfluxSink live in infra/metrics and register
// themselves with the factory. NewMetricsSink fans several sinks out through
// a MultiSink and can limit them to a subset of streams.
package metrics
