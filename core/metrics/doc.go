// Package metrics defines the sinks that observe simulation runs. Sinks such
// as the Prometheus and InfluxDB implementations in infra/metrics receive one
// record per run and may optionally implement the narrower recorder
// interfaces for data imports and result notifications. NewMetricsSink builds
// a MultiSink when several sinks are configured.
package metrics
