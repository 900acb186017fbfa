package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hls-downloader/pkg/errors"
)

func fakeInterfaces(list net.InterfaceStatList) func(context.Context) (net.InterfaceStatList, error) {
	return func(context.Context) (net.InterfaceStatList, error) { return list, nil }
}

func TestIsUnmetered(t *testing.T) {
	addr := net.InterfaceAddrList{{Addr: "192.168.1.10/24"}}

	tests := []struct {
		name string
		list net.InterfaceStatList
		want bool
	}{
		{"wifi up", net.InterfaceStatList{{Name: "wlan0", Flags: []string{"up"}, Addrs: addr}}, true},
		{"only cellular", net.InterfaceStatList{{Name: "rmnet0", Flags: []string{"up"}, Addrs: addr}}, false},
		{"wifi down", net.InterfaceStatList{{Name: "wlan0", Flags: []string{}, Addrs: addr}}, false},
		{"wifi without address", net.InterfaceStatList{{Name: "wlan0", Flags: []string{"up"}}}, false},
		{"loopback ignored", net.InterfaceStatList{{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: addr}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewInterfaceNetwork([]string{"wl", "eth"})
			n.interfaces = fakeInterfaces(tt.list)
			got, err := n.IsUnmetered(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsUnmeteredRealInterfaces(t *testing.T) {
	_, err := NewInterfaceNetwork([]string{"eth"}).IsUnmetered(context.Background())
	assert.NoError(t, err)
}

func TestDiskGuard(t *testing.T) {
	g := NewDiskGuard("/data", 1000)
	g.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 500}, nil
	}
	err := g.EnsureFree(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientSpace))
	assert.True(t, apperrors.IsRetryable(err))

	g.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 5000}, nil
	}
	assert.NoError(t, g.EnsureFree(context.Background()))

	g.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.New("statfs failed")
	}
	assert.NoError(t, g.EnsureFree(context.Background()))
}

func TestDiskGuardRealVolume(t *testing.T) {
	free, err := NewDiskGuard(t.TempDir(), 1).FreeBytes(context.Background())
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}
