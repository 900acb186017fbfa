package platform

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"

	apperrors "hls-downloader/pkg/errors"
)

// DiskGuard refuses new work when the download volume runs low.
type DiskGuard struct {
	path    string
	minFree uint64
	usage   func(ctx context.Context, path string) (*disk.UsageStat, error)
}

func NewDiskGuard(path string, minFree uint64) *DiskGuard {
	return &DiskGuard{
		path:    path,
		minFree: minFree,
		usage:   disk.UsageWithContext,
	}
}

func (d *DiskGuard) FreeBytes(ctx context.Context) (uint64, error) {
	u, err := d.usage(ctx, d.path)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}

// EnsureFree returns a StorageError when free space is below the minimum.
// A failing probe is not treated as full.
func (d *DiskGuard) EnsureFree(ctx context.Context) error {
	if d.minFree == 0 {
		return nil
	}
	free, err := d.FreeBytes(ctx)
	if err != nil {
		return nil
	}
	if free < d.minFree {
		return &apperrors.StorageError{
			Path: d.path,
			Err:  fmt.Errorf("%w: %d bytes free, need %d", apperrors.ErrInsufficientSpace, free, d.minFree),
		}
	}
	return nil
}
