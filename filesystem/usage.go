package filesystem

import "fmt"

// Usage is the space summary of the file system holding the root
type Usage struct {
	Total uint64
	Free  uint64
	Avail uint64
}

// DiskUsage reports the space of the file system holding the root
func DiskUsage(fsys FS) (*Usage, error) {
	stat, err := fsys.StatFS(fsys.RootDir())
	if err != nil {
		return nil, fmt.Errorf("error getting disk usage: %w", err)
	}
	return &Usage{
		Total: stat.TotalSpace(),
		Free:  stat.FreeSpace(),
		Avail: stat.Frsize * stat.Bavail,
	}, nil
}
