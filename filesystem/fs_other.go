//go:build !linux && !darwin && !windows

package filesystem

import (
	"fmt"
	"runtime"

	"github.com/pkg/sftp"
)

// StatFS is not available on this platform
func (FS *LocalFS) StatFS(path string) (*sftp.StatVFS, error) {
	return nil, fmt.Errorf("file system info is not supported on %s", runtime.GOOS)
}
