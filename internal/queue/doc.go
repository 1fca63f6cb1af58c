// Package queue provides the thread-safe inbound message FIFO that hands
// datagrams decoded on the receive goroutine over to the processing tick.
package queue
