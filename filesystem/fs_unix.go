//go:build linux || darwin

package filesystem

import (
	"fmt"

	"github.com/pkg/sftp"
	"golang.org/x/sys/unix"
)

// StatFS reports the volume holding path as a statvfs record, DiskUsage reads the block counters
func (FS *LocalFS) StatFS(path string) (*sftp.StatVFS, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return nil, fmt.Errorf("error getting file system info: %w", err)
	}
	return statVFS(&st), nil
}

func statVFS(st *unix.Statfs_t) *sftp.StatVFS {
	return &sftp.StatVFS{
		Bsize:   uint64(st.Bsize),
		Frsize:  fragmentSize(st),
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Favail:  st.Ffree,
		Fsid:    uint64(uint32(st.Fsid.Val[1]))<<32 | uint64(uint32(st.Fsid.Val[0])),
		Flag:    uint64(st.Flags),
		Namemax: maxNameLength(st),
	}
}
