package registry

import (
	"encoding/json"
	"fmt"
	"net"
)

// PersistedClient is the serializable projection of a registry entry,
// written to the durable settings slot on shutdown and read back on the
// next startup.
type PersistedClient struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	// Zone carries the IPv6 scope for link-local clients, so an address
	// like fe80::1%eth0 stays routable across a restart.
	Zone string `json:"zone,omitempty"`
}

// Endpoint converts the persisted entry back into a network address.
func (p PersistedClient) Endpoint() (*net.UDPAddr, error) {
	ip := net.ParseIP(p.Address)
	if ip == nil {
		return nil, fmt.Errorf("malformed address %q", p.Address)
	}

	if p.Port < 1 || p.Port > 65535 {
		return nil, fmt.Errorf("port out of range: %d", p.Port)
	}

	return &net.UDPAddr{IP: ip, Port: p.Port, Zone: p.Zone}, nil
}

// EncodeClients serializes a registry snapshot for the settings slot.
// Timestamps are deliberately not persisted; restored entries start a fresh
// grace period instead.
func EncodeClients(clients []Client) (string, error) {
	persisted := make([]PersistedClient, 0, len(clients))
	for _, client := range clients {
		persisted = append(persisted, PersistedClient{
			Address: client.Endpoint.IP.String(),
			Port:    client.Endpoint.Port,
			Zone:    client.Endpoint.Zone,
		})
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return "", fmt.Errorf("failed to encode client set: %w", err)
	}

	return string(data), nil
}

// DecodeClients parses a persisted client set. Structural corruption of the
// whole value fails here; per-entry validation happens during restore so
// one bad entry cannot take the rest down.
func DecodeClients(data string) ([]PersistedClient, error) {
	var persisted []PersistedClient
	if err := json.Unmarshal([]byte(data), &persisted); err != nil {
		return nil, fmt.Errorf("failed to decode client set: %w", err)
	}

	return persisted, nil
}
