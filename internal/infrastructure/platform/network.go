package platform

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v4/net"
)

// InterfaceNetwork decides "unmetered" from interface names: an interface
// that is up, not loopback, has an address and whose name starts with one of
// the configured prefixes (wlan, wl, en, eth ...).
type InterfaceNetwork struct {
	prefixes   []string
	interfaces func(ctx context.Context) (net.InterfaceStatList, error)
}

func NewInterfaceNetwork(prefixes []string) *InterfaceNetwork {
	return &InterfaceNetwork{
		prefixes:   prefixes,
		interfaces: net.InterfacesWithContext,
	}
}

func (n *InterfaceNetwork) IsUnmetered(ctx context.Context) (bool, error) {
	list, err := n.interfaces(ctx)
	if err != nil {
		return false, err
	}
	for _, iface := range list {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") || len(iface.Addrs) == 0 {
			continue
		}
		for _, p := range n.prefixes {
			if strings.HasPrefix(iface.Name, p) {
				return true, nil
			}
		}
	}
	return false, nil
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
