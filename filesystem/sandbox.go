package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathViolation is returned for arguments that are malformed or resolve outside the root
	ErrPathViolation = errors.New("invalid path")
	// ErrNotFound is returned when the path does not exist
	ErrNotFound = errors.New("path not found")
	// ErrNotDirectory is returned when a directory was expected
	ErrNotDirectory = errors.New("not a directory")
	// ErrNotFile is returned when a regular file was expected
	ErrNotFile = errors.New("not a file")
)

// ResolveExisting resolves the argument to an existing path inside the root.
// An empty argument resolves to base, an argument starting with "/" is taken from the root,
// anything else is relative to base.
func (FS *LocalFS) ResolveExisting(base, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathViolation, arg)
	}

	composed := base
	if arg != "" {
		composed = FS.compose(base, arg)
	}

	root, err := canonical(FS.localDir)
	if err != nil {
		return "", fmt.Errorf("%w: root: %v", ErrPathViolation, err)
	}
	target, err := canonical(composed)
	if err != nil {
		return "", err
	}
	if !within(root, target) {
		return "", fmt.Errorf("%w: %q resolves outside of the root", ErrPathViolation, arg)
	}
	return target, nil
}

// ResolveNewTarget resolves a path for a file that is about to be created.
// Only the parent directory is canonicalized, it must exist and be inside the root.
func (FS *LocalFS) ResolveNewTarget(base, arg string) (string, error) {
	parentArg, name, err := splitTarget(arg)
	if err != nil {
		return "", err
	}

	parent, err := FS.ResolveExisting(base, parentArg)
	if err != nil {
		return "", fmt.Errorf("%w: parent of %q: %v", ErrPathViolation, name, err)
	}
	target := filepath.Join(parent, name)

	// writes go through an existing link, it has to stay inside the root as well
	info, err := os.Lstat(target)
	if err == nil && info.Mode()&fs.ModeSymlink != 0 {
		root, err := canonical(FS.localDir)
		if err != nil {
			return "", fmt.Errorf("%w: root: %v", ErrPathViolation, err)
		}
		resolved, err := filepath.EvalSymlinks(target)
		if err != nil || !within(root, resolved) {
			return "", fmt.Errorf("%w: %q links outside of the root", ErrPathViolation, arg)
		}
	}
	return target, nil
}

// PrepareNewTarget creates the parent directories of the argument that are missing and then resolves it
// with ResolveNewTarget. The deepest existing ancestor must already be inside the root.
func (FS *LocalFS) PrepareNewTarget(base, arg string) (string, error) {
	parentArg, _, err := splitTarget(arg)
	if err != nil {
		return "", err
	}

	dir := base
	if parentArg != "" {
		dir = FS.compose(base, parentArg)
	}

	var missing []string
	for {
		existing, err := FS.ResolveExisting(dir, "")
		if err == nil {
			if len(missing) > 0 {
				err = os.MkdirAll(filepath.Join(append([]string{existing}, missing...)...), 0o755)
				if err != nil {
					return "", fmt.Errorf("error creating parent directory: %w", err)
				}
			}
			break
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		next := filepath.Dir(dir)
		if next == dir {
			return "", fmt.Errorf("%w: %q", ErrPathViolation, arg)
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = next
	}

	return FS.ResolveNewTarget(base, arg)
}

// compose joins the argument to the root or to base, it does not touch the disk
func (FS *LocalFS) compose(base, arg string) string {
	if strings.HasPrefix(arg, "/") {
		return filepath.Join(FS.localDir, filepath.FromSlash(strings.TrimLeft(arg, "/")))
	}
	return filepath.Join(base, filepath.FromSlash(arg))
}

// splitTarget validates a new target argument and splits it at the last "/"
func splitTarget(arg string) (parent, name string, err error) {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.HasSuffix(arg, "/") || strings.Contains(arg, "..") {
		return "", "", fmt.Errorf("%w: %q", ErrPathViolation, arg)
	}

	i := strings.LastIndex(arg, "/")
	switch {
	case i < 0:
		name = arg
	case i == 0:
		parent, name = "/", arg[1:]
	default:
		parent, name = arg[:i], arg[i+1:]
	}

	if name == "." || strings.ContainsRune(name, filepath.Separator) {
		return "", "", fmt.Errorf("%w: %q", ErrPathViolation, arg)
	}
	return parent, name, nil
}

// canonical returns the absolute path with every link resolved
func canonical(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathViolation, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathViolation, err)
	}
	return resolved, nil
}

// within reports whether target is root or nested under it, both must be canonical
func within(root, target string) bool {
	if target == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}
