package protocol

// Port derivation constants. Ports are derived from the host process id so
// that concurrent host instances on one machine bind distinct, reproducible
// ports without any discovery handshake.
const (
	// BasePort anchors the per-process port window.
	BasePort = 56000

	// PortRange is the size of the pid-derived window.
	PortRange = 1000

	// MessagingPortOffset separates the messaging socket from the sibling
	// debugging port derived for the same process.
	MessagingPortOffset = 2
)

// DebugPort returns the debugging port derived from a process id.
func DebugPort(pid int) int {
	return BasePort + pid%PortRange
}

// MessagingPort returns the messaging port derived from a process id.
func MessagingPort(pid int) int {
	return DebugPort(pid) + MessagingPortOffset
}
