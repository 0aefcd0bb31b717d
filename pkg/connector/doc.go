// Package connector is the table framework the device registry connector is
// built on.
//
// # Architecture Overview
//
//   - core: the Table interface a host drives (Execute, Insert, Update,
//     Delete), the lazy RowIterator, quals and table definitions.
//
//   - base: BaseConnector, embedded by every table implementation. It owns the
//     tagged logger, the metrics collector, the span helper and on-demand
//     health checks.
//
//   - registry: a factory registry keyed by connector name plus a catalog of
//     connector descriptions and schema importers. Connectors self-register in
//     init.
//
//   - sources/iotcore: things, thing types and thing groups of AWS IoT Core.
//
// # Core Concepts
//
// Lazy scans: Execute returns immediately and the first backend call happens on
// the first Next. A caller that stops consuming stops further calls.
//
// Column-gated enrichment: expensive columns are only fetched when they are in
// the requested column list.
//
// Structured errors: every failure is a *errors.Error whose type tells the host
// whether it was a configuration, validation, backend or internal problem.
package connector
