package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shellserver "github.com/Paranoid-AF/shellserver"
)

// JumpRequest is one invocation of the directory jump command.
// Mutations run first, in field order, then the positional target resolves.
type JumpRequest struct {
	// Cwd is the host's current directory.
	Cwd string
	// Delete removes the path reference pointing at this directory.
	Delete string
	// DeleteRef removes the path reference with this alias.
	DeleteRef string
	// Add creates a path reference for this directory, named As when set.
	Add string
	As  string
	// Target is a path reference alias or a directory.
	Target string
	// Junction resolves the target through its symbolic link.
	Junction bool
	// Output asks for the target even when only mutations were requested.
	Output bool
}

// Jump runs the directory jump command and returns the directory the host
// should move to. An empty directory with a nil error means the request only
// changed path references. Rejected mutation arguments do not stop the
// request: they are joined into the returned error next to the directory.
func (f *Frontend) Jump(ctx context.Context, req JumpRequest) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}

	var errs []error
	mutated := false

	if req.Delete != "" {
		mutated = true
		if dir, err := resolveDir(req.Delete, req.Cwd); err != nil {
			errs = append(errs, err)
		} else if err := f.client.DeleteRef(dir); err != nil {
			return "", err
		}
		f.refs.Invalidate()
	}

	if req.DeleteRef != "" {
		mutated = true
		if err := f.client.DeleteRefByAlias(req.DeleteRef); err != nil {
			return "", err
		}
		f.refs.Invalidate()
	}

	if req.Add != "" {
		mutated = true
		if dir, err := resolveDir(req.Add, req.Cwd); err != nil {
			errs = append(errs, err)
		} else if err := f.client.AddRef(dir, req.As); err != nil {
			return "", err
		}
		f.refs.Invalidate()
	}

	if req.Target == "" && !req.Junction && !req.Output && mutated {
		return "", errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var target string
	switch {
	case req.Target != "":
		dir, err := f.resolveTarget(req.Target, req.Cwd)
		if err != nil {
			return "", errors.Join(append(errs, err)...)
		}
		target = dir
	case req.Junction:
		target = req.Cwd
	default:
		target = f.home
	}

	if req.Junction {
		dir, err := resolveJunction(target)
		if err != nil {
			return "", errors.Join(append(errs, err)...)
		}
		target = dir
	}
	return target, errors.Join(errs...)
}

// ResolveRef resolves a path reference alias, answering from the resolution
// cache when it can.
func (f *Frontend) ResolveRef(ref string) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}
	if dir, ok := f.refs.Lookup(ref); ok {
		return dir, nil
	}
	dir, err := f.client.ResolveRef(ref)
	if err != nil {
		return "", err
	}
	f.refs.Store(ref, dir)
	return dir, nil
}

// resolveTarget tries the argument as an alias first. The daemon does not
// resolve relative-looking arguments, so "./name" always means a directory.
func (f *Frontend) resolveTarget(arg, cwd string) (string, error) {
	dir, err := f.ResolveRef(arg)
	if err == nil {
		return dir, nil
	}
	if !errors.Is(err, shellserver.ErrNotFound) {
		return "", err
	}
	if filepath.IsAbs(arg) {
		return arg, nil
	}
	return resolveDir(arg, cwd)
}

// JumpFuzzy runs the fuzzy jump command. An absolute last argument is taken
// as is; otherwise the best ranked cache entry for the joined query wins.
// The daemon is told about the jump and the chosen directory is returned.
func (f *Frontend) JumpFuzzy(query []string) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}
	if len(query) == 0 {
		return "", fmt.Errorf("%w: fuzzy jump needs a query", shellserver.ErrInvalidArgument)
	}

	chosen := query[len(query)-1]
	if !filepath.IsAbs(chosen) {
		best, err := f.cache.Best(strings.Join(query, " "))
		if err != nil {
			return "", err
		}
		chosen = best.Path
	}

	if err := f.client.RecordJump(chosen); err != nil {
		return chosen, err
	}
	return chosen, nil
}

// resolveDir makes arg absolute against cwd and checks it is a directory.
func resolveDir(arg, cwd string) (string, error) {
	dir := joinPath(cwd, arg)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%q: %w", dir, shellserver.ErrNotFound)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %q is not a directory", shellserver.ErrInvalidArgument, dir)
	}
	return dir, nil
}

func resolveJunction(dir string) (string, error) {
	info, err := os.Lstat(dir)
	if err != nil || info.Mode()&(os.ModeSymlink|os.ModeIrregular) == 0 {
		return "", fmt.Errorf("link for %q: %w", dir, shellserver.ErrNotFound)
	}
	target, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("link for %q: %w", dir, shellserver.ErrNotFound)
	}
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		return "", fmt.Errorf("link for %q: %w", dir, shellserver.ErrNotFound)
	}
	return target, nil
}

// joinPath resolves p against base; an absolute p stands alone.
func joinPath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
