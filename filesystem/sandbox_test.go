package filesystem

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) *LocalFS {
	t.Helper()
	fsys, err := NewLocalFS(filepath.Join(t.TempDir(), "root"))
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(fsys.RootDir(), "docs", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fsys.RootDir(), "docs", "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fsys.RootDir(), "top.txt"), []byte("top"), 0o644))
	return fsys
}

func TestNewLocalFSCreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	fsys, err := NewLocalFS(dir)
	require.NoError(t, err)

	info, err := os.Stat(fsys.RootDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = NewLocalFS("")
	assert.ErrorIs(t, err, ErrPathViolation)
}

func TestResolveExisting(t *testing.T) {
	fsys := newTestFS(t)
	root := fsys.RootDir()
	docs := filepath.Join(root, "docs")

	tests := []struct {
		name string
		base string
		arg  string
		want string
	}{
		{name: "empty is base", base: docs, arg: "", want: docs},
		{name: "blank is base", base: docs, arg: "   ", want: docs},
		{name: "slash is root", base: docs, arg: "/", want: root},
		{name: "absolute from root", base: docs, arg: "/top.txt", want: filepath.Join(root, "top.txt")},
		{name: "relative to base", base: docs, arg: "a.txt", want: filepath.Join(docs, "a.txt")},
		{name: "nested relative", base: root, arg: "docs/deep", want: filepath.Join(docs, "deep")},
		{name: "dot segment", base: root, arg: "./docs/./a.txt", want: filepath.Join(docs, "a.txt")},
		{name: "trimmed", base: root, arg: "  top.txt\t", want: filepath.Join(root, "top.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fsys.ResolveExisting(tt.base, tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveExistingRejectsDotDot(t *testing.T) {
	fsys := newTestFS(t)
	// none of these exist on disk, a NotFound error would mean the disk was consulted first
	for _, arg := range []string{"..", "../", "/..", "docs/../../etc", "..missing", "x/..", "....", "/nope/../x"} {
		t.Run(arg, func(t *testing.T) {
			_, err := fsys.ResolveExisting(fsys.RootDir(), arg)
			assert.ErrorIs(t, err, ErrPathViolation)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestResolveExistingNotFound(t *testing.T) {
	fsys := newTestFS(t)
	_, err := fsys.ResolveExisting(fsys.RootDir(), "/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveExistingSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	fsys := newTestFS(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(fsys.RootDir(), "escape")))
	require.NoError(t, os.Symlink(filepath.Join(fsys.RootDir(), "docs"), filepath.Join(fsys.RootDir(), "inside")))

	_, err := fsys.ResolveExisting(fsys.RootDir(), "escape")
	assert.ErrorIs(t, err, ErrPathViolation)
	_, err = fsys.ResolveExisting(fsys.RootDir(), "/escape/secret")
	assert.ErrorIs(t, err, ErrPathViolation)

	got, err := fsys.ResolveExisting(fsys.RootDir(), "inside/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fsys.RootDir(), "docs", "a.txt"), got)
}

func TestResolveNewTarget(t *testing.T) {
	fsys := newTestFS(t)
	root := fsys.RootDir()
	docs := filepath.Join(root, "docs")

	tests := []struct {
		name string
		base string
		arg  string
		want string
	}{
		{name: "root file", base: docs, arg: "/new.txt", want: filepath.Join(root, "new.txt")},
		{name: "relative file", base: docs, arg: "new.txt", want: filepath.Join(docs, "new.txt")},
		{name: "existing parent", base: root, arg: "/docs/deep/new.bin", want: filepath.Join(docs, "deep", "new.bin")},
		{name: "existing file is overwritten", base: root, arg: "top.txt", want: filepath.Join(root, "top.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fsys.ResolveNewTarget(tt.base, tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, arg := range []string{"", "  ", "/docs/", "dir/", "../x", "/a/../b", "/missing/x.txt", "."} {
		t.Run("reject "+arg, func(t *testing.T) {
			_, err := fsys.ResolveNewTarget(root, arg)
			assert.ErrorIs(t, err, ErrPathViolation)
		})
	}
}

func TestResolveNewTargetSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	fsys := newTestFS(t)
	root := fsys.RootDir()
	outside := filepath.Join(t.TempDir(), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "out.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "docs", "a.txt"), filepath.Join(root, "in.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.txt"), filepath.Join(root, "dangling.txt")))

	for _, arg := range []string{"out.txt", "/out.txt", "dangling.txt"} {
		_, err := fsys.ResolveNewTarget(root, arg)
		assert.ErrorIs(t, err, ErrPathViolation, arg)
		_, err = fsys.PrepareNewTarget(root, arg)
		assert.ErrorIs(t, err, ErrPathViolation, arg)
	}

	got, err := fsys.ResolveNewTarget(root, "in.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "in.txt"), got)

	content, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(content))
}

func TestPrepareNewTarget(t *testing.T) {
	fsys := newTestFS(t)
	root := fsys.RootDir()

	got, err := fsys.PrepareNewTarget(root, "/x/y/z.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "x", "y", "z.bin"), got)

	info, err := os.Stat(filepath.Join(root, "x", "y"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = fsys.PrepareNewTarget(root, "/x/../../z.bin")
	assert.ErrorIs(t, err, ErrPathViolation)
}

func TestVirtualPath(t *testing.T) {
	fsys := newTestFS(t)
	assert.Equal(t, "/", fsys.VirtualPath(fsys.RootDir()))
	assert.Equal(t, "/docs/deep", fsys.VirtualPath(filepath.Join(fsys.RootDir(), "docs", "deep")))
}
