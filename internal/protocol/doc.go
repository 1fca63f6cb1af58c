// Package protocol defines the datagram wire format exchanged between the
// editing host and external tooling clients: the closed set of message
// kinds, the binary codec, and the pid-derived port pair.
package protocol
