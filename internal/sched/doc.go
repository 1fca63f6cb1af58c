// Package sched provides the host event loop the messaging session
// registers its tick, quit and reload callbacks on.
package sched
