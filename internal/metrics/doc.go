// Package metrics defines the Prometheus instrumentation for the messaging
// session and its monitoring API.
package metrics
