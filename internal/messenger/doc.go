// Package messenger implements the UDP messaging session between the
// editing host and external tooling clients.
//
// A Session owns one socket bind, a registry of live clients and the
// inbound message queue. The receive goroutine only decodes and
// enqueues; all registry mutation, dispatch and eviction happen on the
// scheduler tick, so handlers never race each other. The socket bind is
// deferred to the first tick, and a session that fails to bind stays
// closed for the rest of the process lifetime.
package messenger
