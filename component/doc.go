// Package component manages the lifecycle of the long-running pieces of a
// steamlens process, such as the diagnostics server and the trace exporter.
//
// Components are started in registration order and stopped in reverse order.
package component
