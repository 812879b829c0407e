package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"
)

// ChunkSize is the buffer size used when streaming file contents to or from a peer.
const ChunkSize = 8 * 1024

// FS is the file system the FTP and HTTP servers work against.
// Every caller supplied path goes through ResolveExisting, ResolveNewTarget or PrepareNewTarget first,
// the remaining methods only accept the absolute paths those return.
type FS interface {
	// RootDir returns the canonical root directory
	RootDir() string
	// VirtualPath converts a resolved path to a root relative path that always starts with "/"
	VirtualPath(name string) string
	// ResolveExisting resolves the argument against base (or root when it starts with "/") to an existing path
	ResolveExisting(base, arg string) (string, error)
	// ResolveNewTarget resolves the argument to a path whose parent exists, the last element may not exist yet
	ResolveNewTarget(base, arg string) (string, error)
	// PrepareNewTarget is ResolveNewTarget but it creates the missing parent directories inside the root
	PrepareNewTarget(base, arg string) (string, error)
	// Stat returns the file info following links
	Stat(name string) (fs.FileInfo, error)
	// Dir returns the direct children of the directory, entries without readable metadata are skipped
	Dir(dirName string) ([]Entry, error)
	// Open opens the file for reading
	Open(name string) (io.ReadCloser, error)
	// Create creates or truncates the file, missing parent directories are created
	Create(name string) (io.WriteCloser, error)
	// ReadFile streams the file to the writer in ChunkSize pieces
	ReadFile(name string, w io.Writer) (int64, error)
	// WriteFile creates or truncates the file and fills it with the data from the reader
	WriteFile(name string, r io.Reader) (int64, error)
	// Remove removes the file, or the directory with everything in it
	Remove(name string) error
	// Rename renames the file/folder or moves it to a different directory
	Rename(original string, target string) error
	// StatFS returns the file system status of the file system containing the path
	StatFS(path string) (*sftp.StatVFS, error)
}

// Ensure that LocalFS implements the FS interface
var _ FS = &LocalFS{}

// Entry is a single line of a directory listing
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// LocalFS serves a local directory as the root
type LocalFS struct {
	localDir string // directory as configured
	root     string // canonical form of localDir
}

// NewLocalFS creates the directory if it does not exist and returns a LocalFS rooted at it
func NewLocalFS(localDir string) (*LocalFS, error) {
	if localDir == "" {
		return nil, fmt.Errorf("%w: empty root directory", ErrPathViolation)
	}
	err := os.MkdirAll(localDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("error creating root directory: %w", err)
	}
	root, err := canonical(localDir)
	if err != nil {
		return nil, fmt.Errorf("error resolving root directory: %w", err)
	}
	return &LocalFS{localDir: localDir, root: root}, nil
}

// RootDir returns the canonical root directory
func (FS *LocalFS) RootDir() string {
	return FS.root
}

// VirtualPath converts a resolved path to the form the client sees, "/" is the root
func (FS *LocalFS) VirtualPath(name string) string {
	rel, err := filepath.Rel(FS.root, name)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// Stat returns the file info following links
func (FS *LocalFS) Stat(name string) (fs.FileInfo, error) {
	info, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, FS.VirtualPath(name))
	}
	if err != nil {
		return nil, fmt.Errorf("error getting file info: %w", err)
	}
	return info, nil
}

// Dir returns the direct children of the directory
func (FS *LocalFS) Dir(dirName string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dirName)
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, entry := range dirEntries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:  entry.Name(),
			IsDir: info.IsDir(),
			Size:  info.Size(),
		})
	}
	return entries, nil
}

// Open opens the file for reading
func (FS *LocalFS) Open(name string) (io.ReadCloser, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return file, nil
}

// Create creates or truncates the file, missing parent directories are created
func (FS *LocalFS) Create(name string) (io.WriteCloser, error) {
	err := os.MkdirAll(filepath.Dir(name), 0o755)
	if err != nil {
		return nil, fmt.Errorf("error creating parent directory: %w", err)
	}
	file, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}
	return file, nil
}

// ReadFile streams the file to the writer in ChunkSize pieces, it returns the number of bytes written
func (FS *LocalFS) ReadFile(name string, w io.Writer) (int64, error) {
	file, err := FS.Open(name)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	n, err := CopyChunks(w, file)
	if err != nil {
		return n, fmt.Errorf("error reading file: %w", err)
	}
	return n, nil
}

// WriteFile creates or truncates the file and copies the reader into it
func (FS *LocalFS) WriteFile(name string, r io.Reader) (int64, error) {
	file, err := FS.Create(name)
	if err != nil {
		return 0, err
	}

	n, err := CopyChunks(file, r)
	if err != nil {
		file.Close()
		return n, fmt.Errorf("error writing file: %w", err)
	}
	if err := file.Close(); err != nil {
		return n, fmt.Errorf("error writing file: %w", err)
	}
	return n, nil
}

// Remove removes a file, a directory is removed with all its contents
func (FS *LocalFS) Remove(name string) error {
	info, err := os.Lstat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, FS.VirtualPath(name))
	}
	if err != nil {
		return fmt.Errorf("error removing file: %w", err)
	}

	if info.IsDir() {
		err = os.RemoveAll(name)
	} else {
		err = os.Remove(name)
	}
	if err != nil {
		return fmt.Errorf("error removing file: %w", err)
	}
	return nil
}

// Rename renames the file/folder or moves it to a different directory
func (FS *LocalFS) Rename(original, target string) error {
	err := os.Rename(original, target)
	if err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}

// CopyChunks copies src to dst with a ChunkSize buffer, it does not use ReaderFrom/WriterTo
// so the peer always sees the data in the same sized pieces
func CopyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
