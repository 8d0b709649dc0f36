// Package tracing is a thin wrapper around OpenTelemetry so workflow and
// scheduler code can emit spans through a small helper API (StartSpan,
// EndSpan) without importing the upstream packages directly.
package tracing
