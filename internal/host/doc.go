// Package host provides the in-process editing host implementation the
// daemon runs the messaging session against.
package host
