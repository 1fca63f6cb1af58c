// Package server implements the HTTP monitoring API for the messaging
// daemon.
package server
