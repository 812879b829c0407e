package filesystem

import "golang.org/x/sys/unix"

// darwin counts blocks in Bsize and has no fragment size
func fragmentSize(st *unix.Statfs_t) uint64 {
	return uint64(st.Bsize)
}

// MAXPATHLEN, statfs does not report a name limit
func maxNameLength(*unix.Statfs_t) uint64 {
	return 1024
}
