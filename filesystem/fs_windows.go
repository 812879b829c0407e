//go:build windows

package filesystem

import (
	"fmt"

	"github.com/pkg/sftp"
	"golang.org/x/sys/windows"
)

// blockSize is reported for windows volumes, GetDiskFreeSpaceEx only gives byte counts
const blockSize = 4096

// StatFS returns the status of the volume holding path, in the statvfs shape SFTP clients know
func (FS *LocalFS) StatFS(path string) (*sftp.StatVFS, error) {
	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("error getting file system info: %w", err)
	}

	var avail, total, free uint64
	err = windows.GetDiskFreeSpaceEx(dir, &avail, &total, &free)
	if err != nil {
		return nil, fmt.Errorf("error getting file system info: %w", err)
	}

	return &sftp.StatVFS{
		Bsize:   blockSize,
		Frsize:  blockSize,
		Blocks:  total / blockSize,
		Bfree:   free / blockSize,
		Bavail:  avail / blockSize,
		Namemax: 255,
	}, nil
}
