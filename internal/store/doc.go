// Package store provides the durable settings slots the messaging session
// uses to carry state, such as the connected-client set, across process
// restarts.
package store
