// Package registry tracks which tooling clients are currently alive. It
// owns the endpoint-keyed client map, timeout-based eviction, and the
// serializable projection that lets the client set survive a host restart.
package registry
